// internal/protocol/message.go
//
// Message definitions for the battleship wire protocol.
// Defines:
//   - Kind: one byte discriminator for every message on the wire.
//   - Message: interface implemented by all protocol messages.
//   - One struct per message kind, client→server and server→client.
//
// Every message is self-describing: the kind plus its payload fully
// determine the logical value, no external context required.

package protocol

// Kind discriminates the message frames on the wire.
type Kind uint8

const (
	// Client → server.
	KindLogin     Kind = 0x01 // request a lobby seat under a username
	KindPlaceShip Kind = 0x02
	KindMoveShip  Kind = 0x03
	KindShot      Kind = 0x04
	KindChat      Kind = 0x05

	// Server → client (or relayed peer → peer).
	KindLoginResult Kind = 0x10
	KindMatchStart  Kind = 0x11
	KindMoveResult  Kind = 0x12
	KindShotResult  Kind = 0x13
	KindGameOver    Kind = 0x14
)

// String names a kind for logs.
func (k Kind) String() string {
	switch k {
	case KindLogin:
		return "login"
	case KindPlaceShip:
		return "place_ship"
	case KindMoveShip:
		return "move_ship"
	case KindShot:
		return "shot"
	case KindChat:
		return "chat"
	case KindLoginResult:
		return "login_result"
	case KindMatchStart:
		return "match_start"
	case KindMoveResult:
		return "move_result"
	case KindShotResult:
		return "shot_result"
	case KindGameOver:
		return "game_over"
	}
	return "unknown"
}

// Message is implemented by every protocol message.
type Message interface {
	Kind() Kind
}

// Login requests a lobby seat under a username. First message on every
// connection.
type Login struct {
	Username string
}

func (Login) Kind() Kind { return KindLogin }

// LoginResult answers a Login. Reason is empty on success.
type LoginResult struct {
	OK     bool
	Reason string
}

func (LoginResult) Kind() Kind { return KindLoginResult }

// MatchStart tells a client it has been paired. YouStart decides the
// opening turn.
type MatchStart struct {
	GridSize uint8
	YouStart bool
	Opponent string
}

func (MatchStart) Kind() Kind { return KindMatchStart }

// PlaceShip announces one ship placement to the opponent.
type PlaceShip struct {
	ShipID      uint8
	Class       uint8
	X, Y        uint8
	Orientation uint8
}

func (PlaceShip) Kind() Kind { return KindPlaceShip }

// MoveShip requests a one-cell translation of an own ship.
type MoveShip struct {
	ShipID    uint8
	Direction uint8
}

func (MoveShip) Kind() Kind { return KindMoveShip }

// MoveResult reports whether a MoveShip was committed.
type MoveResult struct {
	ShipID uint8
	OK     bool
}

func (MoveResult) Kind() Kind { return KindMoveResult }

// Shot carries one fired coordinate toward the opponent.
type Shot struct {
	X, Y uint8
}

func (Shot) Kind() Kind { return KindShot }

// ShotResult reports the outcome of a Shot back to the shooter.
type ShotResult struct {
	X, Y uint8
	Hit  bool
	Sunk bool
}

func (ShotResult) Kind() Kind { return KindShotResult }

// GameOver ends a match and names the winner.
type GameOver struct {
	Winner string
}

func (GameOver) Kind() Kind { return KindGameOver }

// Chat is free-form text relayed to the opponent.
type Chat struct {
	Text string
}

func (Chat) Kind() Kind { return KindChat }
