package tile

// Point is the coordinate capability consumed by the pathfinder and the
// ray-casting engine. Position is the default implementation; other
// coordinate types can be plugged in for non-grid worlds.
//
// Generate must not depend on its receiver: callers invoke it on the zero
// value of P.
type Point[P any] interface {
	comparable
	Coordinates() (x, y, z int32)
	Generate(x, y, z int32) P
}

// ToPosition projects any Point onto the tile grid.
func ToPosition[P Point[P]](p P) Position {
	x, y, z := p.Coordinates()
	return Position{X: x, Y: y, Z: z}
}

// FromPosition builds a P from grid coordinates.
func FromPosition[P Point[P]](pos Position) P {
	var zero P
	return zero.Generate(pos.X, pos.Y, pos.Z)
}
