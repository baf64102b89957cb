// internal/lobby/lobby.go
//
// Lobby and match coordination on top of the connection registry.
// Responsibilities:
//   - Login boundary: the first message on every connection must be a
//     Login; usernames are validated and must be unique among live
//     players.
//   - Pairing: two logged-in players waiting at the same time form a
//     match; both receive MatchStart.
//   - Relay: in-match domain messages are forwarded verbatim to the
//     opponent. The server owns no battlefield; grids live with the
//     clients' game logic.
//   - Results: GameOver updates the aggregate tallies; a mid-match
//     disconnect forfeits to the survivor.
//
// All state is guarded by one mutex. Handlers run on each connection's
// receive goroutine; sends to peers happen outside the lock.

package lobby

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/saltwater-games/battleship/internal/protocol"
	"github.com/saltwater-games/battleship/internal/server"
	"github.com/saltwater-games/battleship/internal/session"
	"github.com/saltwater-games/battleship/internal/store"
)

// Stats is a point-in-time lobby summary for diagnostics.
type Stats struct {
	Online  int `json:"online"`
	Waiting int `json:"waiting"`
	Matches int `json:"matches"`
}

type player struct {
	client   *server.Client
	username string
	loginAt  time.Time
	match    *match
}

type match struct {
	a, b *player
	over bool
}

// opponent returns the other side of the match.
func (m *match) opponent(p *player) *player {
	if m.a == p {
		return m.b
	}
	return m.a
}

// Lobby pairs logged-in connections and relays their match traffic.
type Lobby struct {
	store    store.Store
	gridSize uint8
	logger   zerolog.Logger

	mu      sync.Mutex
	players map[uint64]*player // by registry client id
	names   map[string]*player // live usernames
	waiting *player
}

// New builds a lobby. st may be nil, in which case no results are
// persisted.
func New(st store.Store, gridSize uint8) *Lobby {
	return &Lobby{
		store:    st,
		gridSize: gridSize,
		logger:   log.With().Str("component", "lobby").Logger(),
		players:  make(map[uint64]*player),
		names:    make(map[string]*player),
	}
}

// OnConnect is the registry's connect handler.
func (l *Lobby) OnConnect(c *server.Client) (session.MessageHandler, session.DisconnectHandler) {
	p := &player{client: c}
	onMessage := func(m protocol.Message) { l.handle(p, m) }
	onDisconnect := func(error) { l.dropped(p) }
	return onMessage, onDisconnect
}

// Snapshot reports current lobby occupancy.
func (l *Lobby) Snapshot() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	matches := 0
	for _, p := range l.players {
		if p.match != nil && p.match.a == p {
			matches++
		}
	}
	waiting := 0
	if l.waiting != nil {
		waiting = 1
	}
	return Stats{Online: len(l.players), Waiting: waiting, Matches: matches}
}

func (l *Lobby) handle(p *player, m protocol.Message) {
	switch msg := m.(type) {
	case protocol.Login:
		l.login(p, msg)
	case protocol.PlaceShip, protocol.MoveShip, protocol.MoveResult,
		protocol.Shot, protocol.ShotResult, protocol.Chat:
		l.relay(p, m)
	case protocol.GameOver:
		l.gameOver(p, msg)
	default:
		l.logger.Warn().Str("kind", m.Kind().String()).Msg("unexpected message, closing connection")
		_ = p.client.Session.Close()
	}
}

// login validates the username, claims it, and pairs the player with
// whoever is already waiting.
func (l *Lobby) login(p *player, msg protocol.Login) {
	result := protocol.LoginResult{OK: true}
	var starts []*player

	l.mu.Lock()
	switch {
	case p.username != "":
		result = protocol.LoginResult{Reason: "already logged in"}
	case validateUsername(msg.Username) != nil:
		result = protocol.LoginResult{Reason: validateUsername(msg.Username).Error()}
	case l.names[msg.Username] != nil:
		result = protocol.LoginResult{Reason: "username taken"}
	default:
		p.username = msg.Username
		p.loginAt = time.Now()
		l.players[p.client.ID] = p
		l.names[p.username] = p
		if l.waiting != nil && l.waiting != p {
			m := &match{a: l.waiting, b: p}
			m.a.match, m.b.match = m, m
			l.waiting = nil
			starts = []*player{m.a, m.b}
		} else {
			l.waiting = p
		}
	}
	l.mu.Unlock()

	if !result.OK {
		l.logger.Info().Str("username", msg.Username).Str("reason", result.Reason).Msg("login rejected")
		_ = p.client.Session.Send(result)
		return
	}

	l.persistPlayer(p.username)
	l.logger.Info().Str("username", p.username).Uint64("client", p.client.ID).Msg("logged in")
	_ = p.client.Session.Send(result)

	// the earlier login opens the match
	for i, side := range starts {
		opp := starts[1-i]
		_ = side.client.Session.Send(protocol.MatchStart{
			GridSize: l.gridSize,
			YouStart: i == 0,
			Opponent: opp.username,
		})
	}
	if starts != nil {
		l.logger.Info().Str("a", starts[0].username).Str("b", starts[1].username).Msg("match started")
	}
}

// relay forwards an in-match message to the opponent unchanged.
func (l *Lobby) relay(p *player, m protocol.Message) {
	l.mu.Lock()
	var opp *player
	if p.username == "" {
		l.mu.Unlock()
		l.logger.Warn().Str("kind", m.Kind().String()).Msg("message before login, closing connection")
		_ = p.client.Session.Close()
		return
	}
	if p.match != nil && !p.match.over {
		opp = p.match.opponent(p)
	}
	l.mu.Unlock()

	if opp == nil {
		// no match yet; nothing to relay
		return
	}
	_ = opp.client.Session.Send(m)
}

// gameOver closes out a match reported by one of its players.
func (l *Lobby) gameOver(p *player, msg protocol.GameOver) {
	l.mu.Lock()
	m := p.match
	var opp *player
	if m != nil && !m.over {
		m.over = true
		opp = m.opponent(p)
		m.a.match, m.b.match = nil, nil
	}
	l.mu.Unlock()

	if opp == nil {
		return
	}
	_ = opp.client.Session.Send(msg)

	winner, loser := msg.Winner, p.username
	if winner == loser {
		loser = opp.username
	} else if winner == opp.username {
		loser = p.username
	}
	l.persistResult(winner, loser)
	l.logger.Info().Str("winner", winner).Str("loser", loser).Msg("match finished")
}

// dropped handles a connection ending for any reason. A mid-match
// disconnect forfeits to the survivor.
func (l *Lobby) dropped(p *player) {
	l.mu.Lock()
	delete(l.players, p.client.ID)
	if p.username != "" && l.names[p.username] == p {
		delete(l.names, p.username)
	}
	if l.waiting == p {
		l.waiting = nil
	}
	var opp *player
	if m := p.match; m != nil && !m.over {
		m.over = true
		opp = m.opponent(p)
		m.a.match, m.b.match = nil, nil
	}
	l.mu.Unlock()

	if p.username != "" {
		l.logger.Info().Str("username", p.username).Msg("player left")
	}
	if opp != nil {
		_ = opp.client.Session.Send(protocol.GameOver{Winner: opp.username})
		l.persistResult(opp.username, p.username)
	}
}

func (l *Lobby) persistPlayer(username string) {
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.store.EnsurePlayer(ctx, username); err != nil {
		l.logger.Warn().Err(err).Str("username", username).Msg("persist player")
	}
}

func (l *Lobby) persistResult(winner, loser string) {
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := l.store.RecordResult(ctx, winner, loser); err != nil {
		l.logger.Warn().Err(err).Str("winner", winner).Msg("persist result")
	}
}

// validateUsername applies the lobby's naming rules.
func validateUsername(u string) error {
	if len(u) == 0 {
		return errors.New("empty username")
	}
	if len(u) > 24 {
		return errors.New("username too long")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	return nil
}
