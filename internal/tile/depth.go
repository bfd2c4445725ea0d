package tile

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultTileSize is the sprite edge in pixels used when no layout is
// configured.
const DefaultTileSize = 32.0

// ZTransform returns the render depth of an occupant of pos on layer.
// Depth grows toward the bottom-right of a floor and with the layer inside a
// tile. The result is clamped to [0, MaxDepth].
func ZTransform(pos Position, layer Layer) float64 {
	planar := (MaxZTransform*float64(pos.X) - MaxZTransform*float64(pos.Y)) / planarSpan
	return clampDepth(float64(pos.Z) + planar + layer.Z())
}

func clampDepth(z float64) float64 {
	return min(max(z, 0), MaxDepth)
}

// Layout maps tile coordinates to world space.
type Layout struct {
	TileSize float64
}

// NewLayout returns a layout with the given tile size, falling back to
// DefaultTileSize for non-positive values.
func NewLayout(tileSize float64) Layout {
	if tileSize <= 0 {
		tileSize = DefaultTileSize
	}
	return Layout{TileSize: tileSize}
}

// ToVec3 returns the world-space coordinate of an occupant: X and Y scaled
// by the tile size, Z the render depth.
func (l Layout) ToVec3(pos Position, layer Layer) r3.Vec {
	return r3.Vec{
		X: float64(pos.X) * l.TileSize,
		Y: float64(pos.Y) * l.TileSize,
		Z: ZTransform(pos, layer),
	}
}

// FromVec3 returns the tile containing the world-space point v on floor z.
func (l Layout) FromVec3(v r3.Vec, z int32) Position {
	return Position{
		X: int32(math.Round(v.X / l.TileSize)),
		Y: int32(math.Round(v.Y / l.TileSize)),
		Z: z,
	}
}

// ToVec3 uses a layout with DefaultTileSize.
func ToVec3(pos Position, layer Layer) r3.Vec {
	return NewLayout(DefaultTileSize).ToVec3(pos, layer)
}
