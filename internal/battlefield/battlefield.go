// internal/battlefield/battlefield.go
//
// Battlefield aggregate for one player.
// Responsibilities:
//   - Own the fleet plus the two tracking grids (self and enemy view).
//   - Decide locally whether an incoming shot hits (Strike).
//   - Validate outgoing shots against the enemy view (Shoot) and record
//     their reported outcomes (RecordShotResult).
//
// Grids are length x length. Enemy-view cells are exactly one of
// hidden/hit/miss. Ship placement is validated for bounds and overlap at
// construction time.

package battlefield

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// CellState is one cell of the enemy-view tracking grid.
type CellState uint8

const (
	CellHidden CellState = iota
	CellHit
	CellMiss
)

var (
	ErrBadPlacement = errors.New("battlefield: ship placement out of bounds")
	ErrOverlap      = errors.New("battlefield: ships overlap")
	ErrDuplicateID  = errors.New("battlefield: duplicate ship id")
)

// Battlefield holds one player's complete game state.
type Battlefield struct {
	length int
	ships  []*Ship
	self   [][]CellState // strikes the opponent reported against us
	enemy  [][]CellState // outcomes of our own shots
}

// New validates the fleet and builds a battlefield. Every ship must lie
// fully inside the grid, ids must be unique, and no two ships may share a
// cell.
func New(length int, ships []*Ship) (*Battlefield, error) {
	if length <= 0 {
		return nil, fmt.Errorf("battlefield: invalid length %d", length)
	}

	occupied := make(map[Cell]uint8)
	seen := make(map[uint8]bool)
	for _, s := range ships {
		if seen[s.id] {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, s.id)
		}
		seen[s.id] = true
		s.bounds = length
		if !s.fits(s.x, s.y) {
			return nil, fmt.Errorf("%w: %s at (%d,%d)", ErrBadPlacement, s.class, s.x, s.y)
		}
		for _, c := range s.Cells() {
			if other, taken := occupied[c]; taken {
				return nil, fmt.Errorf("%w: ships %d and %d at (%d,%d)", ErrOverlap, other, s.id, c.X, c.Y)
			}
			occupied[c] = s.id
		}
	}

	b := &Battlefield{
		length: length,
		ships:  ships,
		self:   newGrid(length),
		enemy:  newGrid(length),
	}

	classes := make([]string, len(ships))
	for i, s := range ships {
		classes[i] = s.class.String()
	}
	log.Debug().Int("size", length).Strs("ships", classes).Msg("battlefield created")
	return b, nil
}

func newGrid(length int) [][]CellState {
	g := make([][]CellState, length)
	for i := range g {
		g[i] = make([]CellState, length)
	}
	return g
}

// Length returns the grid side length.
func (b *Battlefield) Length() int { return b.length }

// Ship looks up an owned ship by id.
func (b *Battlefield) Ship(id uint8) *Ship {
	for _, s := range b.ships {
		if s.id == id {
			return s
		}
	}
	return nil
}

// Fleet returns the owned ships in placement order.
func (b *Battlefield) Fleet() []*Ship { return b.ships }

// Move translates the identified ship one cell. False when no such ship
// exists, when the move would leave the grid, or when it would overlap
// another ship.
func (b *Battlefield) Move(shipID uint8, d Direction) bool {
	ship := b.Ship(shipID)
	if ship == nil {
		return false
	}
	dx, dy, ok := d.delta()
	if !ok {
		return false
	}

	occupied := make(map[Cell]bool)
	for _, other := range b.ships {
		if other.id == shipID {
			continue
		}
		for _, c := range other.Cells() {
			occupied[c] = true
		}
	}
	for _, c := range ship.Cells() {
		if occupied[Cell{X: c.X + dx, Y: c.Y + dy}] {
			return false
		}
	}
	return ship.Move(d)
}

// Strike is an incoming shot from the opponent. The first ship occupying
// (x, y) records the hit; the self grid tracks the outcome either way.
// Iteration order does not matter under the no-overlap invariant.
func (b *Battlefield) Strike(x, y int) bool {
	if !b.inBounds(x, y) {
		return false
	}
	for _, s := range b.ships {
		if s.StrikeAt(x, y) {
			b.self[y][x] = CellHit
			return true
		}
	}
	b.self[y][x] = CellMiss
	return false
}

// Shoot validates an outgoing shot coordinate before it is sent to the
// opponent: the cell must be inside the grid and not already shot at.
func (b *Battlefield) Shoot(x, y int) bool {
	return b.inBounds(x, y) && b.enemy[y][x] == CellHidden
}

// RecordShotResult writes the opponent's answer to one of our shots into
// the enemy-view grid. Out-of-range coordinates are ignored.
func (b *Battlefield) RecordShotResult(x, y int, hit bool) {
	if !b.inBounds(x, y) {
		return
	}
	if hit {
		b.enemy[y][x] = CellHit
	} else {
		b.enemy[y][x] = CellMiss
	}
}

// EnemyCell reports the tracked state of one enemy-view cell.
func (b *Battlefield) EnemyCell(x, y int) CellState {
	if !b.inBounds(x, y) {
		return CellHidden
	}
	return b.enemy[y][x]
}

// SelfCell reports the tracked state of one self-view cell.
func (b *Battlefield) SelfCell(x, y int) CellState {
	if !b.inBounds(x, y) {
		return CellHidden
	}
	return b.self[y][x]
}

// Destroyed reports whether every owned ship is sunk.
func (b *Battlefield) Destroyed() bool {
	for _, s := range b.ships {
		if !s.Sunk() {
			return false
		}
	}
	return len(b.ships) > 0
}

func (b *Battlefield) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.length && y < b.length
}
