package raycast

import (
	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

// Sight is one ray of a perspective together with the tiles it walks,
// ordered from the center outward.
type Sight[P tile.Point[P]] struct {
	Ray  Ray
	Area []P
}

// Perspective is the set of rays cast from a radial area.
type Perspective[P tile.Point[P]] struct {
	Center P
	Sights []Sight[P]
}

// NewPerspective casts one ray toward every arc tile of area. Each ray is
// bounded by the distance to its arc tile and the tile's Bresenham line is
// its target area.
func NewPerspective[P tile.Point[P]](area RadialArea[P]) Perspective[P] {
	p := Perspective[P]{Center: area.Center}
	targets := area.Targets()
	if len(targets) == 0 {
		return p
	}

	center := tile.ToPosition(area.Center)
	origin := point(area.Center)
	p.Sights = make([]Sight[P], 0, len(targets))
	for _, target := range targets {
		end := tile.ToPosition(target)
		end.Z = center.Z

		line := tile.Bresenham(center, end)
		walk := make([]P, len(line))
		for i, pos := range line {
			walk[i] = tile.FromPosition[P](pos)
		}
		p.Sights = append(p.Sights, Sight[P]{
			Ray:  NewRay(origin, point(tile.FromPosition[P](end))),
			Area: walk,
		})
	}
	return p
}

// Len returns the number of rays.
func (p Perspective[P]) Len() int { return len(p.Sights) }

// Intersections returns, per ray, the target tiles whose default box the
// ray crosses.
func (p Perspective[P]) Intersections() [][]P {
	return p.IntersectionsWith(TileBox[P])
}

// IntersectionsWith is Intersections with a custom collider.
func (p Perspective[P]) IntersectionsWith(collider Collider[P]) [][]P {
	if len(p.Sights) == 0 {
		return nil
	}
	out := make([][]P, 0, len(p.Sights))
	for _, s := range p.Sights {
		hits := make([]P, 0, len(s.Area))
		for _, pos := range s.Area {
			if _, ok := s.Ray.Intersects(collider(pos)); ok {
				hits = append(hits, pos)
			}
		}
		out = append(out, hits)
	}
	return out
}
