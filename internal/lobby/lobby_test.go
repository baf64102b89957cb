package lobby

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/saltwater-games/battleship/internal/protocol"
	"github.com/saltwater-games/battleship/internal/server"
	"github.com/saltwater-games/battleship/internal/store"
)

// lobbyFixture is a registry wired to a lobby over a free port.
type lobbyFixture struct {
	lobby    *Lobby
	registry *server.Registry
	store    store.Store
}

func startLobby(t *testing.T) *lobbyFixture {
	t.Helper()
	st, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	lb := New(st, 10)
	reg := server.New("127.0.0.1:0", lb.OnConnect)
	if err := reg.Start(); err != nil {
		t.Fatalf("registry start: %v", err)
	}
	t.Cleanup(func() { _ = reg.Stop() })
	return &lobbyFixture{lobby: lb, registry: reg, store: st}
}

// testConn is a raw protocol speaker for driving the lobby from outside.
type testConn struct {
	conn net.Conn
	r    *protocol.Reader
}

func (f *lobbyFixture) dial(t *testing.T) *testConn {
	t.Helper()
	conn, err := net.Dial("tcp", f.registry.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return &testConn{conn: conn, r: protocol.NewReader(conn)}
}

func (c *testConn) send(t *testing.T, m protocol.Message) {
	t.Helper()
	frame, err := protocol.Encode(m)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := c.conn.Write(frame); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func (c *testConn) recv(t *testing.T) protocol.Message {
	t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	m, err := c.r.Next()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

// loginAs logs one connection in and consumes the LoginResult.
func (c *testConn) loginAs(t *testing.T, name string) {
	t.Helper()
	c.send(t, protocol.Login{Username: name})
	res, ok := c.recv(t).(protocol.LoginResult)
	if !ok || !res.OK {
		t.Fatalf("login as %s failed: %#v", name, res)
	}
}

func TestLoginValidation(t *testing.T) {
	f := startLobby(t)

	cases := []struct {
		name     string
		username string
		wantOK   bool
	}{
		{"valid", "grace", true},
		{"empty", "", false},
		{"bad charset", "gr ace", false},
		{"too long", "abcdefghijklmnopqrstuvwxy", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := f.dial(t)
			c.send(t, protocol.Login{Username: tc.username})
			res, ok := c.recv(t).(protocol.LoginResult)
			if !ok {
				t.Fatal("want LoginResult")
			}
			if res.OK != tc.wantOK {
				t.Fatalf("login %q: ok = %v (%s), want %v", tc.username, res.OK, res.Reason, tc.wantOK)
			}
		})
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	f := startLobby(t)
	a := f.dial(t)
	a.loginAs(t, "grace")

	b := f.dial(t)
	b.send(t, protocol.Login{Username: "grace"})
	res, _ := b.recv(t).(protocol.LoginResult)
	if res.OK {
		t.Fatal("second login under a live username should be rejected")
	}
	if res.Reason != "username taken" {
		t.Fatalf("reason = %q", res.Reason)
	}
}

func TestUsernameFreedAfterDisconnect(t *testing.T) {
	f := startLobby(t)
	a := f.dial(t)
	a.loginAs(t, "grace")
	_ = a.conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for f.lobby.Snapshot().Online != 0 {
		if time.Now().After(deadline) {
			t.Fatal("player never dropped")
		}
		time.Sleep(5 * time.Millisecond)
	}

	b := f.dial(t)
	b.loginAs(t, "grace")
}

func TestPairingSendsMatchStart(t *testing.T) {
	f := startLobby(t)
	a := f.dial(t)
	a.loginAs(t, "grace")
	b := f.dial(t)
	b.loginAs(t, "alan")

	msA, _ := a.recv(t).(protocol.MatchStart)
	msB, _ := b.recv(t).(protocol.MatchStart)

	if msA.Opponent != "alan" || msB.Opponent != "grace" {
		t.Fatalf("opponents: a=%q b=%q", msA.Opponent, msB.Opponent)
	}
	if msA.GridSize != 10 || msB.GridSize != 10 {
		t.Fatalf("grid sizes: a=%d b=%d", msA.GridSize, msB.GridSize)
	}
	if !msA.YouStart || msB.YouStart {
		t.Fatalf("first turn should go to the earlier login: a=%v b=%v", msA.YouStart, msB.YouStart)
	}

	snap := f.lobby.Snapshot()
	if snap.Matches != 1 || snap.Waiting != 0 {
		t.Fatalf("snapshot = %+v, want one match and nobody waiting", snap)
	}
}

func TestRelayBetweenPlayers(t *testing.T) {
	f := startLobby(t)
	a := f.dial(t)
	a.loginAs(t, "grace")
	b := f.dial(t)
	b.loginAs(t, "alan")
	a.recv(t) // MatchStart
	b.recv(t)

	a.send(t, protocol.Shot{X: 2, Y: 3})
	if got := b.recv(t); got != (protocol.Shot{X: 2, Y: 3}) {
		t.Fatalf("relayed shot = %#v", got)
	}

	b.send(t, protocol.ShotResult{X: 2, Y: 3, Hit: true})
	if got := a.recv(t); got != (protocol.ShotResult{X: 2, Y: 3, Hit: true}) {
		t.Fatalf("relayed result = %#v", got)
	}

	a.send(t, protocol.Chat{Text: "gg"})
	if got := b.recv(t); got != (protocol.Chat{Text: "gg"}) {
		t.Fatalf("relayed chat = %#v", got)
	}
}

func TestGameOverRecordsResult(t *testing.T) {
	f := startLobby(t)
	a := f.dial(t)
	a.loginAs(t, "grace")
	b := f.dial(t)
	b.loginAs(t, "alan")
	a.recv(t)
	b.recv(t)

	// alan concedes: grace wins
	b.send(t, protocol.GameOver{Winner: "grace"})
	if got := a.recv(t); got != (protocol.GameOver{Winner: "grace"}) {
		t.Fatalf("forwarded game over = %#v", got)
	}

	waitForWins(t, f.store, "grace", 1)
	p, err := f.store.FindPlayer(context.Background(), "alan")
	if err != nil {
		t.Fatalf("FindPlayer: %v", err)
	}
	if p.Losses != 1 {
		t.Fatalf("alan losses = %d, want 1", p.Losses)
	}
}

func TestDisconnectForfeitsMatch(t *testing.T) {
	f := startLobby(t)
	a := f.dial(t)
	a.loginAs(t, "grace")
	b := f.dial(t)
	b.loginAs(t, "alan")
	a.recv(t)
	b.recv(t)

	_ = b.conn.Close()
	if got := a.recv(t); got != (protocol.GameOver{Winner: "grace"}) {
		t.Fatalf("survivor notification = %#v", got)
	}
	waitForWins(t, f.store, "grace", 1)
}

func TestMessageBeforeLoginClosesConnection(t *testing.T) {
	f := startLobby(t)
	c := f.dial(t)
	c.send(t, protocol.Shot{X: 0, Y: 0})

	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.r.Next(); err == nil {
		t.Fatal("connection should be closed after pre-login domain message")
	}
}

func waitForWins(t *testing.T, st store.Store, username string, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		p, err := st.FindPlayer(context.Background(), username)
		if err == nil && p.Wins == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("%s wins never reached %d", username, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
