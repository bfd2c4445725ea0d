package raycast

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

// Ray is a bounded 3D segment starting at Origin.
type Ray struct {
	Origin r3.Vec
	Dir    r3.Vec // unit length
	Length float64
}

// NewRay returns the ray from a to b. A zero-length ray has a zero Dir.
func NewRay(a, b r3.Vec) Ray {
	d := r3.Sub(b, a)
	n := r3.Norm(d)
	if n == 0 {
		return Ray{Origin: a}
	}
	return Ray{Origin: a, Dir: r3.Scale(1/n, d), Length: n}
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) r3.Vec {
	return r3.Add(r.Origin, r3.Scale(t, r.Dir))
}

// Intersects runs a slab test against box and returns the entry parameter
// when the segment [0, Length] touches it.
func (r Ray) Intersects(box r3.Box) (float64, bool) {
	tmin, tmax := 0.0, r.Length
	origin := [3]float64{r.Origin.X, r.Origin.Y, r.Origin.Z}
	dir := [3]float64{r.Dir.X, r.Dir.Y, r.Dir.Z}
	lo := [3]float64{box.Min.X, box.Min.Y, box.Min.Z}
	hi := [3]float64{box.Max.X, box.Max.Y, box.Max.Z}

	for i := range 3 {
		if dir[i] == 0 {
			if origin[i] < lo[i] || origin[i] > hi[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / dir[i]
		t1 := (lo[i] - origin[i]) * inv
		t2 := (hi[i] - origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

// Collider maps a point to the box a ray must cross to touch it.
type Collider[P tile.Point[P]] func(P) r3.Box

// TileBox is the default collider: a flat 0.7 x 0.7 square centred on the
// tile at its floor height.
func TileBox[P tile.Point[P]](p P) r3.Box {
	c := point(p)
	h := tile.TileHalfExtent
	return r3.Box{
		Min: r3.Vec{X: c.X - h, Y: c.Y - h, Z: c.Z},
		Max: r3.Vec{X: c.X + h, Y: c.Y + h, Z: c.Z},
	}
}

func point[P tile.Point[P]](p P) r3.Vec {
	x, y, z := p.Coordinates()
	return r3.Vec{X: float64(x), Y: float64(y), Z: float64(z)}
}
