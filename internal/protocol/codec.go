// internal/protocol/codec.go
//
// Binary codec for the battleship wire protocol.
// Responsibilities:
//   - Encode: message value → self-delimiting frame.
//   - Decode: one complete frame → message value.
//   - Reader: pull decoded messages off an io.Reader, one per Next().
//
// Frame layout (big-endian):
//   kind    uint8
//   length  uint16   payload byte count
//   payload [length]byte
//
// Strings inside payloads are length-prefixed (uint8 for usernames,
// uint16 for chat text). Booleans are a single 0/1 byte.
//
// Guarantees:
//   - Decode(Encode(m)) == m for every representable message.
//   - Malformed input surfaces as *ProtocolError; the caller should treat
//     it as fatal for the connection it came from.

package protocol

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	headerSize = 3
	// maxPayload bounds a single frame; anything larger is a framing error.
	maxPayload = 4 << 10
)

// ProtocolError marks bytes that cannot be decoded as a valid frame.
// Fatal for the connection that produced them.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string { return "protocol: " + e.Reason }

func protoErrf(format string, args ...any) *ProtocolError {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...)}
}

// Encode serializes m into one self-delimiting frame.
func Encode(m Message) ([]byte, error) {
	var body bytes.Buffer

	switch v := m.(type) {
	case Login:
		if err := writeString8(&body, v.Username); err != nil {
			return nil, err
		}
	case LoginResult:
		body.WriteByte(boolByte(v.OK))
		if err := writeString8(&body, v.Reason); err != nil {
			return nil, err
		}
	case MatchStart:
		body.WriteByte(v.GridSize)
		body.WriteByte(boolByte(v.YouStart))
		if err := writeString8(&body, v.Opponent); err != nil {
			return nil, err
		}
	case PlaceShip:
		body.Write([]byte{v.ShipID, v.Class, v.X, v.Y, v.Orientation})
	case MoveShip:
		body.Write([]byte{v.ShipID, v.Direction})
	case MoveResult:
		body.Write([]byte{v.ShipID, boolByte(v.OK)})
	case Shot:
		body.Write([]byte{v.X, v.Y})
	case ShotResult:
		body.Write([]byte{v.X, v.Y, boolByte(v.Hit), boolByte(v.Sunk)})
	case GameOver:
		if err := writeString8(&body, v.Winner); err != nil {
			return nil, err
		}
	case Chat:
		if err := writeString16(&body, v.Text); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("encode: unsupported message %T", m)
	}

	if body.Len() > maxPayload {
		return nil, fmt.Errorf("encode: payload %d exceeds %d bytes", body.Len(), maxPayload)
	}

	frame := make([]byte, headerSize+body.Len())
	frame[0] = byte(m.Kind())
	binary.BigEndian.PutUint16(frame[1:3], uint16(body.Len()))
	copy(frame[headerSize:], body.Bytes())
	return frame, nil
}

// Decode parses exactly one complete frame.
func Decode(frame []byte) (Message, error) {
	if len(frame) < headerSize {
		return nil, protoErrf("short frame: %d bytes", len(frame))
	}
	kind := Kind(frame[0])
	length := int(binary.BigEndian.Uint16(frame[1:3]))
	if len(frame) != headerSize+length {
		return nil, protoErrf("frame length mismatch: header says %d, have %d", length, len(frame)-headerSize)
	}
	return decodePayload(kind, frame[headerSize:])
}

func decodePayload(kind Kind, p []byte) (Message, error) {
	r := bytes.NewReader(p)
	var m Message
	var err error

	switch kind {
	case KindLogin:
		var name string
		if name, err = readString8(r); err == nil {
			m = Login{Username: name}
		}
	case KindLoginResult:
		var ok byte
		var reason string
		if ok, err = r.ReadByte(); err == nil {
			if reason, err = readString8(r); err == nil {
				m = LoginResult{OK: ok == 1, Reason: reason}
			}
		}
	case KindMatchStart:
		buf := make([]byte, 2)
		if _, err = io.ReadFull(r, buf); err == nil {
			var opp string
			if opp, err = readString8(r); err == nil {
				m = MatchStart{GridSize: buf[0], YouStart: buf[1] == 1, Opponent: opp}
			}
		}
	case KindPlaceShip:
		buf := make([]byte, 5)
		if _, err = io.ReadFull(r, buf); err == nil {
			m = PlaceShip{ShipID: buf[0], Class: buf[1], X: buf[2], Y: buf[3], Orientation: buf[4]}
		}
	case KindMoveShip:
		buf := make([]byte, 2)
		if _, err = io.ReadFull(r, buf); err == nil {
			m = MoveShip{ShipID: buf[0], Direction: buf[1]}
		}
	case KindMoveResult:
		buf := make([]byte, 2)
		if _, err = io.ReadFull(r, buf); err == nil {
			m = MoveResult{ShipID: buf[0], OK: buf[1] == 1}
		}
	case KindShot:
		buf := make([]byte, 2)
		if _, err = io.ReadFull(r, buf); err == nil {
			m = Shot{X: buf[0], Y: buf[1]}
		}
	case KindShotResult:
		buf := make([]byte, 4)
		if _, err = io.ReadFull(r, buf); err == nil {
			m = ShotResult{X: buf[0], Y: buf[1], Hit: buf[2] == 1, Sunk: buf[3] == 1}
		}
	case KindGameOver:
		var winner string
		if winner, err = readString8(r); err == nil {
			m = GameOver{Winner: winner}
		}
	case KindChat:
		var text string
		if text, err = readString16(r); err == nil {
			m = Chat{Text: text}
		}
	default:
		return nil, protoErrf("unknown kind 0x%02x", byte(kind))
	}

	if err != nil {
		return nil, protoErrf("truncated %s payload", kind)
	}
	if r.Len() != 0 {
		return nil, protoErrf("%s payload has %d trailing bytes", kind, r.Len())
	}
	return m, nil
}

// Reader decodes a stream of frames from an underlying io.Reader.
type Reader struct {
	br *bufio.Reader
}

// NewReader wraps src for frame-at-a-time decoding.
func NewReader(src io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(src)}
}

// Next blocks until one complete frame is available and returns the
// decoded message. Returns io.EOF on a clean end-of-stream (stream closed
// between frames) and *ProtocolError on malformed bytes, including a
// stream that ends mid-frame.
func (r *Reader) Next() (Message, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(r.br, header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, protoErrf("stream ended mid-header")
		}
		return nil, err
	}

	length := int(binary.BigEndian.Uint16(header[1:3]))
	if length > maxPayload {
		return nil, protoErrf("payload %d exceeds %d bytes", length, maxPayload)
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(r.br, payload); err != nil {
		if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, protoErrf("stream ended mid-payload")
		}
		return nil, err
	}
	return decodePayload(Kind(header[0]), payload)
}

/* ----------------------------- primitives ------------------------------ */

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

func writeString8(w *bytes.Buffer, s string) error {
	if len(s) > 0xff {
		return fmt.Errorf("encode: string of %d bytes exceeds uint8 prefix", len(s))
	}
	w.WriteByte(byte(len(s)))
	w.WriteString(s)
	return nil
}

func writeString16(w *bytes.Buffer, s string) error {
	if len(s) > 0xffff {
		return fmt.Errorf("encode: string of %d bytes exceeds uint16 prefix", len(s))
	}
	var n [2]byte
	binary.BigEndian.PutUint16(n[:], uint16(len(s)))
	w.Write(n[:])
	w.WriteString(s)
	return nil
}

func readString8(r *bytes.Reader) (string, error) {
	n, err := r.ReadByte()
	if err != nil {
		return "", err
	}
	buf := make([]byte, int(n))
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readString16(r *bytes.Reader) (string, error) {
	var n [2]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return "", err
	}
	buf := make([]byte, int(binary.BigEndian.Uint16(n[:])))
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}
