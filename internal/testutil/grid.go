package testutil

import (
	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

// Grid is an ASCII floor plan on floor z. '#' marks a blocked tile and
// every other glyph is open. Rows grow y, columns grow x, and anything
// outside the plan is blocked.
type Grid struct {
	rows []string
	z    int32
}

// ParseGrid builds a grid from its rows.
func ParseGrid(z int32, rows ...string) Grid {
	return Grid{rows: rows, z: z}
}

func (g Grid) glyph(p tile.Position) (byte, bool) {
	if p.Z != g.z || p.Y < 0 || int(p.Y) >= len(g.rows) {
		return 0, false
	}
	row := g.rows[p.Y]
	if p.X < 0 || int(p.X) >= len(row) {
		return 0, false
	}
	return row[p.X], true
}

// Walkable reports whether p lies inside the plan and is not a wall.
func (g Grid) Walkable(p tile.Position) bool {
	c, ok := g.glyph(p)
	return ok && c != '#'
}

// Find returns the first tile holding glyph c.
func (g Grid) Find(c byte) (tile.Position, bool) {
	for y, row := range g.rows {
		for x := range len(row) {
			if row[x] == c {
				return tile.New(int32(x), int32(y), g.z), true
			}
		}
	}
	return tile.Position{}, false
}

// Blocked lists every wall tile in row-major order.
func (g Grid) Blocked() []tile.Position {
	var out []tile.Position
	for y, row := range g.rows {
		for x := range len(row) {
			if row[x] == '#' {
				out = append(out, tile.New(int32(x), int32(y), g.z))
			}
		}
	}
	return out
}
