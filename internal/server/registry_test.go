package server

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/saltwater-games/battleship/internal/protocol"
	"github.com/saltwater-games/battleship/internal/session"
)

// startRegistry brings up a registry on a free port and stops it when the
// test ends.
func startRegistry(t *testing.T, onConnect ConnectHandler) *Registry {
	t.Helper()
	r := New("127.0.0.1:0", onConnect)
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = r.Stop() })
	return r
}

func dial(t *testing.T, r *Registry) net.Conn {
	t.Helper()
	conn, err := net.Dial("tcp", r.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestAssignsUniqueIncreasingIDs(t *testing.T) {
	var mu sync.Mutex
	ids := []uint64{}
	connected := make(chan struct{}, 8)

	r := startRegistry(t, func(c *Client) (session.MessageHandler, session.DisconnectHandler) {
		mu.Lock()
		ids = append(ids, c.ID)
		mu.Unlock()
		connected <- struct{}{}
		return func(protocol.Message) {}, nil
	})

	for i := 0; i < 4; i++ {
		dial(t, r)
		select {
		case <-connected:
		case <-time.After(2 * time.Second):
			t.Fatalf("connection %d not registered in time", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	seen := map[uint64]bool{}
	for i, id := range ids {
		if seen[id] {
			t.Fatalf("id %d assigned twice", id)
		}
		seen[id] = true
		if i > 0 && id <= ids[i-1] {
			t.Fatalf("ids not strictly increasing: %v", ids)
		}
	}
}

func TestRegistryEntryRemovedOnDisconnect(t *testing.T) {
	disconnected := make(chan uint64, 1)
	r := startRegistry(t, func(c *Client) (session.MessageHandler, session.DisconnectHandler) {
		id := c.ID
		return func(protocol.Message) {}, func(error) { disconnected <- id }
	})

	conn := dial(t, r)
	deadline := time.Now().Add(2 * time.Second)
	for len(r.Clients()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn.Close()
	select {
	case <-disconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("disconnect handler never fired")
	}
	deadline = time.Now().Add(2 * time.Second)
	for len(r.Clients()) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("registry still holds %d clients", len(r.Clients()))
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPerConnectionOrderingAcrossTwoClients(t *testing.T) {
	const perClient = 100

	type delivery struct {
		client uint64
		shot   protocol.Shot
	}
	deliveries := make(chan delivery, 2*perClient)

	r := startRegistry(t, func(c *Client) (session.MessageHandler, session.DisconnectHandler) {
		id := c.ID
		return func(m protocol.Message) {
			if s, ok := m.(protocol.Shot); ok {
				deliveries <- delivery{client: id, shot: s}
			}
		}, nil
	})

	// two writers with distinct interleavings
	var wg sync.WaitGroup
	for w := 0; w < 2; w++ {
		conn := dial(t, r)
		wg.Add(1)
		go func(conn net.Conn, pause time.Duration) {
			defer wg.Done()
			for i := 0; i < perClient; i++ {
				frame, _ := protocol.Encode(protocol.Shot{X: uint8(i % 250), Y: uint8(i / 250)})
				if _, err := conn.Write(frame); err != nil {
					t.Errorf("write: %v", err)
					return
				}
				time.Sleep(pause)
			}
		}(conn, time.Duration(w)*time.Microsecond)
	}
	wg.Wait()

	perSeq := map[uint64][]protocol.Shot{}
	for total := 0; total < 2*perClient; total++ {
		select {
		case d := <-deliveries:
			perSeq[d.client] = append(perSeq[d.client], d.shot)
		case <-time.After(5 * time.Second):
			t.Fatal("timed out draining deliveries")
		}
	}

	clients := 0
	for id, seq := range perSeq {
		if len(seq) == 0 {
			continue
		}
		clients++
		if len(seq) != perClient {
			t.Fatalf("client %d delivered %d messages, want %d", id, len(seq), perClient)
		}
		for i, s := range seq {
			want := protocol.Shot{X: uint8(i % 250), Y: uint8(i / 250)}
			if s != want {
				t.Fatalf("client %d message %d out of order: got %#v, want %#v", id, i, s, want)
			}
		}
	}
	if clients != 2 {
		t.Fatalf("deliveries spread over %d clients, want 2", clients)
	}
}

func TestStopDrainsAcceptance(t *testing.T) {
	r := New("127.0.0.1:0", func(*Client) (session.MessageHandler, session.DisconnectHandler) {
		return func(protocol.Message) {}, nil
	})
	if err := r.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	addr := r.Addr().String()
	if err := r.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond); err == nil {
		conn.Close()
		t.Fatal("dial succeeded after Stop")
	}
	if err := r.Stop(); err != ErrNotRunning {
		t.Fatalf("second Stop = %v, want ErrNotRunning", err)
	}
}

func TestConnectHandlerCanReject(t *testing.T) {
	r := startRegistry(t, func(*Client) (session.MessageHandler, session.DisconnectHandler) {
		return nil, nil
	})
	conn := dial(t, r)

	// a rejected connection is closed by the server; the read unblocks
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 1)
	if _, err := conn.Read(buf); err == nil {
		t.Fatal("expected closed connection, read succeeded")
	}
	if len(r.Clients()) != 0 {
		t.Fatalf("rejected client left in registry")
	}
}
