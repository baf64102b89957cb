// internal/battlefield/ship.go
//
// Ship geometry and damage state.
// Defines:
//   - Class: fleet catalog with fixed per-class extents.
//   - Orientation / Direction enums.
//   - Ship: one placed vessel; Move and StrikeAt mutate it.
//
// A ship's occupied cells are fully determined by origin + orientation +
// class extents. Damage is tracked per cell; a fully damaged ship stays in
// the fleet flagged as sunk, it is never removed.

package battlefield

// Class tags a ship variant. Extents are fixed per class.
type Class uint8

const (
	ClassBattleship Class = iota // 5x1
	ClassCruiser                 // 4x1
	ClassFrigate                 // 3x1
	ClassSubmarine               // 3x1
	ClassDestroyer               // 2x1
)

// classNames indexed by Class.
var classNames = [...]string{"Battleship", "Cruiser", "Frigate", "Submarine", "Destroyer"}

// classLengths indexed by Class.
var classLengths = [...]int{5, 4, 3, 3, 2}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "Unknown"
}

// Length returns the long-axis cell count for the class.
func (c Class) Length() int {
	if int(c) < len(classLengths) {
		return classLengths[c]
	}
	return 0
}

// Orientation of a ship's long axis.
type Orientation uint8

const (
	Horizontal Orientation = iota
	Vertical
)

// Direction of a one-cell move.
type Direction uint8

const (
	Up Direction = iota
	Down
	Left
	Right
)

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	}
	return "unknown"
}

// delta returns the (dx, dy) of a one-cell move. Ok is false for an
// unknown direction.
func (d Direction) delta() (dx, dy int, ok bool) {
	switch d {
	case Up:
		return 0, -1, true
	case Down:
		return 0, 1, true
	case Left:
		return -1, 0, true
	case Right:
		return 1, 0, true
	}
	return 0, 0, false
}

// Cell is one grid coordinate.
type Cell struct {
	X, Y int
}

// Ship is one placed vessel on a battlefield.
type Ship struct {
	id          uint8
	class       Class
	x, y        int // origin: smallest occupied coordinate on each axis
	orientation Orientation
	hits        []bool // indexed along the long axis from the origin
	bounds      int    // battlefield side length, set at placement
}

// NewShip places a ship at (x, y). The origin is the leftmost cell for
// horizontal ships, the topmost for vertical ones.
func NewShip(id uint8, class Class, x, y int, o Orientation) *Ship {
	return &Ship{
		id:          id,
		class:       class,
		x:           x,
		y:           y,
		orientation: o,
		hits:        make([]bool, class.Length()),
	}
}

// ID returns the ship's battlefield-unique identifier.
func (s *Ship) ID() uint8 { return s.id }

// Class returns the ship's variant tag.
func (s *Ship) Class() Class { return s.class }

// Origin returns the ship's origin coordinate.
func (s *Ship) Origin() (x, y int) { return s.x, s.y }

// Orientation returns the ship's long-axis orientation.
func (s *Ship) Orientation() Orientation { return s.orientation }

// Cells lists every coordinate the ship currently occupies.
func (s *Ship) Cells() []Cell {
	cells := make([]Cell, s.class.Length())
	for i := range cells {
		if s.orientation == Horizontal {
			cells[i] = Cell{X: s.x + i, Y: s.y}
		} else {
			cells[i] = Cell{X: s.x, Y: s.y + i}
		}
	}
	return cells
}

// Move translates the ship one cell in the given direction. The move is
// committed only if every occupied cell stays within the battlefield
// bounds; otherwise the ship is unchanged and Move returns false.
func (s *Ship) Move(d Direction) bool {
	dx, dy, ok := d.delta()
	if !ok {
		return false
	}
	nx, ny := s.x+dx, s.y+dy
	if !s.fits(nx, ny) {
		return false
	}
	s.x, s.y = nx, ny
	return true
}

// StrikeAt records a hit if (x, y) is one of the ship's occupied cells.
// Striking an already-hit cell re-reports true without changing state.
func (s *Ship) StrikeAt(x, y int) bool {
	for i, c := range s.Cells() {
		if c.X == x && c.Y == y {
			s.hits[i] = true
			return true
		}
	}
	return false
}

// Sunk reports whether every cell of the ship has been hit.
func (s *Ship) Sunk() bool {
	for _, h := range s.hits {
		if !h {
			return false
		}
	}
	return true
}

// HitCount returns the number of damaged cells.
func (s *Ship) HitCount() int {
	n := 0
	for _, h := range s.hits {
		if h {
			n++
		}
	}
	return n
}

// fits reports whether the ship, with origin at (x, y), would lie fully
// within the battlefield.
func (s *Ship) fits(x, y int) bool {
	if x < 0 || y < 0 {
		return false
	}
	ex, ey := x, y
	if s.orientation == Horizontal {
		ex = x + s.class.Length() - 1
	} else {
		ey = y + s.class.Length() - 1
	}
	return ex < s.bounds && ey < s.bounds
}
