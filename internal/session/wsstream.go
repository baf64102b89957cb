// internal/session/wsstream.go
//
// Adapter that presents a gorilla/websocket connection as the plain byte
// stream a Session expects. Each Write becomes one binary WebSocket
// message (conveniently, one protocol frame); Read drains incoming binary
// messages in order. Text frames are rejected as a framing violation.

package session

import (
	"fmt"
	"io"
	"time"

	"github.com/gorilla/websocket"
)

type wsStream struct {
	conn *websocket.Conn
	cur  io.Reader // remainder of the message being drained
}

// NewWSStream wraps an upgraded websocket connection for use with New.
func NewWSStream(conn *websocket.Conn) io.ReadWriteCloser {
	return &wsStream{conn: conn}
}

func (w *wsStream) Read(p []byte) (int, error) {
	for {
		if w.cur == nil {
			msgType, r, err := w.conn.NextReader()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return 0, io.EOF
				}
				return 0, err
			}
			if msgType != websocket.BinaryMessage {
				return 0, fmt.Errorf("websocket: unexpected %d message type", msgType)
			}
			w.cur = r
		}
		n, err := w.cur.Read(p)
		if err == io.EOF {
			// message drained; move on to the next one
			w.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (w *wsStream) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *wsStream) Close() error {
	_ = w.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return w.conn.Close()
}
