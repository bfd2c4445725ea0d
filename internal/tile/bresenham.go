package tile

// LineIterator walks the 2D Bresenham line between two tiles. Z of the
// start tile is carried unchanged. Arithmetic is done in int64 so lines
// between out-of-range positions do not overflow.
type LineIterator struct {
	currentX, currentY int64
	targetX, targetY   int64
	z                  int32
	deltaX, deltaY     int64 // deltaY is stored negated
	stepX, stepY       int64
	err                int64
	started            bool
	done               bool
}

// NewLineIterator creates a Bresenham iterator from a to b.
func NewLineIterator(a, b Position) *LineIterator {
	ax, ay := int64(a.X), int64(a.Y)
	bx, by := int64(b.X), int64(b.Y)
	it := &LineIterator{
		currentX: ax, currentY: ay,
		targetX: bx, targetY: by,
		z:      a.Z,
		deltaX: abs64(bx - ax),
		deltaY: -abs64(by - ay),
		stepX:  1,
		stepY:  1,
	}
	if ax > bx {
		it.stepX = -1
	}
	if ay > by {
		it.stepY = -1
	}
	it.err = it.deltaX + it.deltaY
	return it
}

// Next advances to the next tile. The first call yields the start tile.
// Returns false once the target has been yielded.
func (it *LineIterator) Next() bool {
	if it.done {
		return false
	}
	if !it.started {
		it.started = true
		return true
	}
	if it.currentX == it.targetX && it.currentY == it.targetY {
		it.done = true
		return false
	}

	e2 := 2 * it.err
	if e2 >= it.deltaY {
		it.err += it.deltaY
		it.currentX += it.stepX
	}
	if e2 <= it.deltaX {
		it.err += it.deltaX
		it.currentY += it.stepY
	}
	return true
}

// Position returns the current tile.
func (it *LineIterator) Position() Position {
	return Position{X: int32(it.currentX), Y: int32(it.currentY), Z: it.z}
}

// Len returns the number of tiles on the line, both ends included.
func (it *LineIterator) Len() int64 {
	return max(it.deltaX, -it.deltaY) + 1
}

// maxLinePrealloc caps the capacity Bresenham reserves up front.
const maxLinePrealloc = 1 << 12

// Bresenham returns every tile of the line from a to b, both included.
// All tiles lie on a's floor.
func Bresenham(a, b Position) []Position {
	it := NewLineIterator(a, b)
	line := make([]Position, 0, min(it.Len(), maxLinePrealloc))
	for it.Next() {
		line = append(line, it.Position())
	}
	return line
}

// IsDirectlyConnected reports whether a and b share a floor and every tile
// of the Bresenham line between them belongs to set.
func IsDirectlyConnected(a, b Position, set map[Position]struct{}) bool {
	if a.Z != b.Z {
		return false
	}
	it := NewLineIterator(a, b)
	for it.Next() {
		if _, ok := set[it.Position()]; !ok {
			return false
		}
	}
	return true
}
