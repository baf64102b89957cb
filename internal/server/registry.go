// internal/server/registry.go
//
// Server-side connection registry.
// Responsibilities:
//   - Listen for inbound TCP connections between Start and Stop.
//   - Per accepted connection: assign a registry-unique id, build a
//     session, and ask the external ConnectHandler for the message and
//     disconnect handlers to wire into it.
//   - Track live client records in a mutex-guarded map; remove each entry
//     exactly once when its session ends.
//   - Feed externally upgraded streams (WebSocket) through the same path
//     via AcceptStream.
//
// Stop closes the listening socket and returns once no new connection can
// be accepted. Live sessions are deliberately left running; shutdown
// drains acceptance, not play.

package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/saltwater-games/battleship/internal/session"
)

var (
	ErrNotRunning     = errors.New("server: not running")
	ErrAlreadyRunning = errors.New("server: already running")
)

// Client is the lightweight identity record for one accepted connection.
type Client struct {
	ID      uint64
	Remote  string
	Session *session.Session
}

// ConnectHandler is consulted once per accepted connection. It receives
// the new client's identity and returns the handlers to wire into the
// client's session. A nil message handler rejects the connection.
type ConnectHandler func(*Client) (session.MessageHandler, session.DisconnectHandler)

// Registry accepts connections and owns the live client map.
type Registry struct {
	addr      string
	onConnect ConnectHandler
	logger    zerolog.Logger

	nextID atomic.Uint64

	mu       sync.Mutex
	listener net.Listener
	clients  map[uint64]*Client

	acceptDone chan struct{}
}

// New builds a registry listening on addr once started. onConnect must be
// non-nil; it is the single boundary to the game logic above.
func New(addr string, onConnect ConnectHandler) *Registry {
	return &Registry{
		addr:      addr,
		onConnect: onConnect,
		logger:    log.With().Str("component", "registry").Logger(),
		clients:   make(map[uint64]*Client),
	}
}

// Start opens the listening socket and launches the accept loop. Returns
// once the socket is listening.
func (r *Registry) Start() error {
	if r.onConnect == nil {
		return errors.New("server: connect handler not registered")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener != nil {
		return ErrAlreadyRunning
	}
	ln, err := net.Listen("tcp", r.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", r.addr, err)
	}
	r.listener = ln
	r.acceptDone = make(chan struct{})
	go r.acceptLoop(ln, r.acceptDone)

	r.logger.Info().Str("addr", ln.Addr().String()).Msg("listening")
	return nil
}

// Stop closes the listening socket. It returns only after the accept loop
// has exited, at which point no new connection can arrive. Open client
// sessions keep running.
func (r *Registry) Stop() error {
	r.mu.Lock()
	ln := r.listener
	done := r.acceptDone
	r.listener = nil
	r.mu.Unlock()

	if ln == nil {
		return ErrNotRunning
	}
	err := ln.Close()
	<-done
	r.logger.Info().Msg("stopped accepting connections")
	return err
}

// Addr reports the bound listening address, useful with ":0".
func (r *Registry) Addr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listener == nil {
		return nil
	}
	return r.listener.Addr()
}

// Clients snapshots the live client records.
func (r *Registry) Clients() []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Client, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c)
	}
	return out
}

// AcceptStream runs an externally established stream (e.g. an upgraded
// WebSocket) through the same registration path as a TCP accept.
func (r *Registry) AcceptStream(stream io.ReadWriteCloser, remote string) (*Client, error) {
	return r.register(stream, remote)
}

func (r *Registry) acceptLoop(ln net.Listener, done chan struct{}) {
	defer close(done)
	for {
		conn, err := ln.Accept()
		if err != nil {
			// closed listener means Stop; anything else is equally final
			if !errors.Is(err, net.ErrClosed) {
				r.logger.Warn().Err(err).Msg("accept failed")
			}
			return
		}
		if _, err := r.register(conn, conn.RemoteAddr().String()); err != nil {
			r.logger.Warn().Err(err).Str("remote", conn.RemoteAddr().String()).Msg("rejecting connection")
			_ = conn.Close()
		}
	}
}

// register assigns an id, wires handlers from the connect callback, and
// starts the session. Ids come from an atomic counter owned by this
// registry; they strictly increase and are never reused.
func (r *Registry) register(stream io.ReadWriteCloser, remote string) (*Client, error) {
	client := &Client{
		ID:     r.nextID.Add(1),
		Remote: remote,
	}
	sess := session.New(stream)
	client.Session = sess

	onMessage, onDisconnect := r.onConnect(client)
	if onMessage == nil {
		return nil, fmt.Errorf("connect handler rejected client %d", client.ID)
	}

	sess.OnMessage(onMessage)
	sess.OnDisconnect(func(cause error) {
		r.unregister(client.ID)
		if onDisconnect != nil {
			onDisconnect(cause)
		}
	})

	r.mu.Lock()
	r.clients[client.ID] = client
	r.mu.Unlock()

	if err := sess.Start(); err != nil {
		r.unregister(client.ID)
		return nil, err
	}
	r.logger.Debug().Uint64("client", client.ID).Str("remote", remote).Msg("connection accepted")
	return client, nil
}

func (r *Registry) unregister(id uint64) {
	r.mu.Lock()
	_, present := r.clients[id]
	delete(r.clients, id)
	r.mu.Unlock()
	if present {
		r.logger.Debug().Uint64("client", id).Msg("connection closed")
	}
}
