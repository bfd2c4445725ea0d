package tile

import (
	"math"
	"slices"
)

// TilesOnArcCircumference samples the arc of the given radius around center
// every step degrees in [start, end] and returns the distinct tiles hit,
// sorted by (X, Y). Angles above 360 wrap naturally.
// Returns nil when step, radius or the angular span is zero.
func TilesOnArcCircumference(center Position, radius uint8, start, end, step int) []Position {
	if step <= 0 || radius == 0 || start == end {
		return nil
	}
	if start > end {
		start, end = end, start
	}

	r := float64(radius)
	seen := make(map[Position]struct{}, (end-start)/step+1)
	tiles := make([]Position, 0, (end-start)/step+1)
	for angle := start; angle <= end; angle += step {
		rad := float64(angle) * math.Pi / 180
		p := center.Offset(
			int32(math.Round(math.Cos(rad)*r)),
			int32(math.Round(math.Sin(rad)*r)),
		)
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		tiles = append(tiles, p)
	}

	slices.SortFunc(tiles, Position.Compare)
	return tiles
}

// AngleBetween returns the direction of b - a in whole degrees, in [0, 360).
// Coincident tiles yield 0.
func AngleBetween(a, b Position) int {
	dx := float64(b.X) - float64(a.X)
	dy := float64(b.Y) - float64(a.Y)
	deg := int(math.Round(math.Atan2(dy, dx) * 180 / math.Pi))
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}
