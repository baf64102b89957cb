// internal/session/session.go
//
// One persistent message stream, used identically by the client and the
// server side of a connection.
// Responsibilities:
//   - Own exactly one bidirectional byte stream.
//   - Run one receive loop goroutine that decodes frames and hands each
//     message to the registered handler, in arrival order.
//   - Serialize outgoing messages through Send.
//   - Report teardown through the disconnect handler, exactly once,
//     whether the peer closed, the stream failed, decoding failed, or the
//     owner called Close.
//
// Lifecycle: Connecting → Open → Closing → Closed. Closed is terminal;
// Send on a closed session returns ErrClosed.

package session

import (
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/saltwater-games/battleship/internal/protocol"
)

// State of a session. Transitions are one-way.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

var (
	// ErrClosed is returned by Send once the session has closed.
	ErrClosed = errors.New("session: connection closed")
	// ErrNoHandler is returned by Start when no message handler was
	// registered. Callers must wire handlers before any stream work begins.
	ErrNoHandler = errors.New("session: message handler not registered")
	// ErrStarted is returned by Start when the session already runs.
	ErrStarted = errors.New("session: already started")
)

// MessageHandler consumes one decoded message. It runs on the session's
// receive goroutine; messages of one session never arrive concurrently.
type MessageHandler func(protocol.Message)

// DisconnectHandler observes teardown. Fired exactly once per session.
type DisconnectHandler func(err error)

// Session owns one open stream, its receive loop, and its send path.
type Session struct {
	stream io.ReadWriteCloser
	logger zerolog.Logger

	state atomic.Int32

	onMessage    MessageHandler
	onDisconnect DisconnectHandler

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// New wraps an established stream. The session does not read from the
// stream until Start.
func New(stream io.ReadWriteCloser) *Session {
	s := &Session{
		stream: stream,
		logger: log.With().Str("component", "session").Logger(),
		done:   make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))
	return s
}

// OnMessage registers the message handler. Must happen before Start.
func (s *Session) OnMessage(h MessageHandler) { s.onMessage = h }

// OnDisconnect registers the disconnect handler. Must happen before Start.
func (s *Session) OnDisconnect(h DisconnectHandler) { s.onDisconnect = h }

// Start moves the session to Open and launches the receive loop. Fails
// fast when no message handler is registered, before any stream work.
func (s *Session) Start() error {
	if s.onMessage == nil {
		return ErrNoHandler
	}
	if !s.state.CompareAndSwap(int32(StateConnecting), int32(StateOpen)) {
		return ErrStarted
	}
	go s.receiveLoop()
	return nil
}

// State reports the session's current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Send encodes m and writes the frame to the peer. Concurrent callers are
// serialized; the frame boundary is never interleaved.
func (s *Session) Send(m protocol.Message) error {
	if s.State() >= StateClosing {
		return ErrClosed
	}
	frame, err := protocol.Encode(m)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.State() >= StateClosing {
		return ErrClosed
	}
	if _, err := s.stream.Write(frame); err != nil {
		s.teardown(err)
		return ErrClosed
	}
	return nil
}

// Close tears the session down locally. Safe to call any number of times;
// the disconnect handler still fires only once.
func (s *Session) Close() error {
	s.teardown(nil)
	return nil
}

// Done is closed once the session has fully torn down. Useful for tests
// and for callers that need to wait out the receive loop.
func (s *Session) Done() <-chan struct{} { return s.done }

// receiveLoop decodes frames until the stream ends, a frame is malformed,
// or the session is closed. Each decoded message is handed to the handler
// on this goroutine, preserving arrival order.
func (s *Session) receiveLoop() {
	r := protocol.NewReader(s.stream)
	for {
		msg, err := r.Next()
		if err != nil {
			if err == io.EOF {
				s.teardown(nil)
			} else {
				s.teardown(err)
			}
			return
		}
		if s.State() != StateOpen {
			// closed while a frame was in flight; drop it
			return
		}
		s.onMessage(msg)
	}
}

// teardown drives Closing → Closed, closes the stream (unblocking the
// receive loop), and fires the disconnect handler once.
func (s *Session) teardown(cause error) {
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosing))
		_ = s.stream.Close()
		s.state.Store(int32(StateClosed))

		var perr *protocol.ProtocolError
		switch {
		case cause == nil:
		case errors.As(cause, &perr):
			s.logger.Warn().Str("reason", perr.Reason).Msg("closing connection on decode failure")
		default:
			s.logger.Debug().Err(cause).Msg("connection ended")
		}

		if s.onDisconnect != nil {
			s.onDisconnect(cause)
		}
		close(s.done)
	})
}
