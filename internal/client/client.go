// internal/client/client.go
//
// Client-side counterpart of the server registry: opens one outbound
// connection, wraps it in a session, and exposes send/receive to the rest
// of the client process. The owner's disconnect callback fires whenever
// the receive loop ends, including a server-initiated close.

package client

import (
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/saltwater-games/battleship/internal/protocol"
	"github.com/saltwater-games/battleship/internal/session"
)

// Client manages one connection to a battleship server.
type Client struct {
	addr   string
	logger zerolog.Logger

	onMessage    session.MessageHandler
	onDisconnect session.DisconnectHandler

	sess *session.Session
}

// New prepares a client for addr. Handlers must be set before Connect.
func New(addr string) *Client {
	return &Client{
		addr:   addr,
		logger: log.With().Str("component", "client").Str("server", addr).Logger(),
	}
}

// OnMessage registers the handler invoked once per decoded message, in
// arrival order.
func (c *Client) OnMessage(h session.MessageHandler) { c.onMessage = h }

// OnDisconnect registers the handler fired exactly once when the
// connection ends, for any reason.
func (c *Client) OnDisconnect(h session.DisconnectHandler) { c.onDisconnect = h }

// Connect dials the server and starts the receive loop. The context
// bounds only the dial; an established connection outlives it.
func (c *Client) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.addr, err)
	}

	sess := session.New(conn)
	sess.OnMessage(c.onMessage)
	sess.OnDisconnect(c.onDisconnect)
	if err := sess.Start(); err != nil {
		_ = conn.Close()
		return err
	}
	c.sess = sess
	c.logger.Debug().Msg("connected")
	return nil
}

// Send serializes and writes one message to the server.
func (c *Client) Send(m protocol.Message) error {
	if c.sess == nil {
		return session.ErrClosed
	}
	return c.sess.Send(m)
}

// Close tears down the connection. The disconnect handler still fires
// exactly once.
func (c *Client) Close() error {
	if c.sess == nil {
		return nil
	}
	return c.sess.Close()
}

// Done is closed once the underlying session has torn down.
func (c *Client) Done() <-chan struct{} {
	if c.sess == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.sess.Done()
}
