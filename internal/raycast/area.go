// Package raycast turns radial areas into rays, intersects them with the
// tile grid and runs per-caster visibility or reachability queries against
// the navigability cache.
package raycast

import (
	"fmt"

	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

// Circle presets sample a full turn starting at 45 degrees.
const (
	circleStart      uint16 = 45
	circleEnd        uint16 = 405
	DefaultAngleStep        = 1
)

// RadialArea is a sampled arc of tiles around Center. It is comparable and
// used as the intersection cache key.
type RadialArea[P tile.Point[P]] struct {
	Range     uint8
	Center    P
	AngleStep int
	Start     uint16
	End       uint16
}

// NewRadialArea builds an area, swapping start and end so Start <= End.
func NewRadialArea[P tile.Point[P]](center P, rng uint8, start, end uint16, step int) RadialArea[P] {
	if start > end {
		start, end = end, start
	}
	return RadialArea[P]{Range: rng, Center: center, AngleStep: step, Start: start, End: end}
}

// Circle returns a full circle of radius rng.
func Circle[P tile.Point[P]](center P, rng uint8) RadialArea[P] {
	return NewRadialArea(center, rng, circleStart, circleEnd, DefaultAngleStep)
}

// Sector returns the arc between angles a and b, in degrees.
func Sector[P tile.Point[P]](center P, rng uint8, a, b uint16) RadialArea[P] {
	return NewRadialArea(center, rng, a, b, DefaultAngleStep)
}

// WithStep returns a copy of a sampled every step degrees.
func (a RadialArea[P]) WithStep(step int) RadialArea[P] {
	a.AngleStep = step
	return a
}

// WithCenter returns a copy of a moved to center.
func (a RadialArea[P]) WithCenter(center P) RadialArea[P] {
	a.Center = center
	return a
}

// IsEmpty reports whether the area samples no tiles.
func (a RadialArea[P]) IsEmpty() bool {
	return a.Range == 0 || a.AngleStep <= 0 || a.Start == a.End
}

// Targets returns the arc tiles the rays are cast toward, sorted on (x, y).
func (a RadialArea[P]) Targets() []P {
	if a.IsEmpty() {
		return nil
	}
	center := tile.ToPosition(a.Center)
	arc := tile.TilesOnArcCircumference(center, a.Range, int(a.Start), int(a.End), a.AngleStep)
	targets := make([]P, len(arc))
	for i, pos := range arc {
		targets[i] = tile.FromPosition[P](pos)
	}
	return targets
}

func (a RadialArea[P]) String() string {
	x, y, z := a.Center.Coordinates()
	return fmt.Sprintf("area(%d,%d,%d r=%d %d..%d/%d)", x, y, z, a.Range, a.Start, a.End, a.AngleStep)
}
