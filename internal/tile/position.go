package tile

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// Position is a tile coordinate on the 3D integer grid.
// Ordering is lexicographic by X, Y, Z.
type Position struct {
	X, Y, Z int32
}

// Zero is the grid origin.
var Zero = Position{}

// New returns the position (x, y, z). Out of range values are kept as is;
// use IsValid to check them.
func New(x, y, z int32) Position {
	return Position{X: x, Y: y, Z: z}
}

// IsValid reports whether X and Y fit the addressable int16 range.
func (p Position) IsValid() bool {
	return p.X >= MinXY && p.X <= MaxXY && p.Y >= MinXY && p.Y <= MaxXY
}

// Coordinates implements Point.
func (p Position) Coordinates() (x, y, z int32) {
	return p.X, p.Y, p.Z
}

// Generate implements Point. The receiver is ignored.
func (Position) Generate(x, y, z int32) Position {
	return Position{X: x, Y: y, Z: z}
}

// Offset moves the position on its floor. Z is unchanged.
func (p Position) Offset(dx, dy int32) Position {
	return Position{X: p.X + dx, Y: p.Y + dy, Z: p.Z}
}

// Compare orders positions by X, then Y, then Z.
func (p Position) Compare(o Position) int {
	if c := cmp.Compare(p.X, o.X); c != 0 {
		return c
	}
	if c := cmp.Compare(p.Y, o.Y); c != 0 {
		return c
	}
	return cmp.Compare(p.Z, o.Z)
}

// Less reports whether p sorts before o.
func (p Position) Less(o Position) bool {
	return p.Compare(o) < 0
}

func (p Position) String() string {
	return fmt.Sprintf("(%d, %d, %d)", p.X, p.Y, p.Z)
}

// Neighbors returns the four cardinal neighbours (N, E, S, W) followed by
// the four diagonal ones (NE, SE, SW, NW).
func (p Position) Neighbors() [8]Position {
	return [8]Position{
		p.Offset(0, 1),
		p.Offset(1, 0),
		p.Offset(0, -1),
		p.Offset(-1, 0),
		p.Offset(1, 1),
		p.Offset(1, -1),
		p.Offset(-1, -1),
		p.Offset(-1, 1),
	}
}

// IsDiagonal reports whether p and o are diagonal 8-neighbours.
func (p Position) IsDiagonal(o Position) bool {
	return span(p.X, o.X) == 1 && span(p.Y, o.Y) == 1
}

// IsAdjacent reports whether p and o are distinct 8-connected neighbours on
// the same floor.
func (p Position) IsAdjacent(o Position) bool {
	if p.Z != o.Z || p == o {
		return false
	}
	return span(p.X, o.X) <= 1 && span(p.Y, o.Y) <= 1
}

// Distance returns the Euclidean distance between the XY projections of a
// and b. Z is ignored.
func Distance(a, b Position) float64 {
	dx := float64(a.X) - float64(b.X)
	dy := float64(a.Y) - float64(b.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// SortPositions sorts in place by (X, Y, Z).
func SortPositions(ps []Position) {
	slices.SortFunc(ps, Position.Compare)
}

// Transition records a positional change of a tile occupant. On spawn From
// equals To.
type Transition struct {
	From, To Position
}

// Positions returns the distinct positions touched by the transition.
func (t Transition) Positions() []Position {
	if t.From == t.To {
		return []Position{t.To}
	}
	return []Position{t.From, t.To}
}

// span is |a - b| computed without int32 overflow.
func span(a, b int32) int64 {
	return abs64(int64(a) - int64(b))
}

func abs64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
