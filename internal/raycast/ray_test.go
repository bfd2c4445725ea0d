package raycast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

func TestNewRay(t *testing.T) {
	r := NewRay(r3.Vec{}, r3.Vec{X: 3, Y: 4})
	assert.InDelta(t, 5.0, r.Length, 1e-9)
	assert.InDelta(t, 0.6, r.Dir.X, 1e-9)
	assert.InDelta(t, 0.8, r.Dir.Y, 1e-9)
	end := r.At(r.Length)
	assert.InDelta(t, 3.0, end.X, 1e-9)
	assert.InDelta(t, 4.0, end.Y, 1e-9)

	zero := NewRay(r3.Vec{X: 1}, r3.Vec{X: 1})
	assert.Zero(t, zero.Length)
	assert.Equal(t, r3.Vec{}, zero.Dir)
}

func TestRayIntersects(t *testing.T) {
	ray := NewRay(r3.Vec{}, r3.Vec{X: 5})

	tests := []struct {
		name  string
		box   r3.Box
		want  bool
		enter float64
	}{
		{"origin tile", TileBox(tile.New(0, 0, 0)), true, 0},
		{"on the line", TileBox(tile.New(3, 0, 0)), true, 2.65},
		{"end tile", TileBox(tile.New(5, 0, 0)), true, 4.65},
		{"beyond the end", TileBox(tile.New(6, 0, 0)), false, 0},
		{"behind origin", TileBox(tile.New(-1, 0, 0)), false, 0},
		{"beside the line", TileBox(tile.New(2, 1, 0)), false, 0},
		{"other floor", TileBox(tile.New(2, 0, 1)), false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enter, ok := ray.Intersects(tt.box)
			require.Equal(t, tt.want, ok)
			if ok {
				assert.InDelta(t, tt.enter, enter, 1e-9)
			}
		})
	}
}

func TestRayIntersectsDiagonal(t *testing.T) {
	ray := NewRay(r3.Vec{}, r3.Vec{X: 4, Y: 4})
	for i := int32(0); i <= 4; i++ {
		_, ok := ray.Intersects(TileBox(tile.New(i, i, 0)))
		assert.True(t, ok, "tile %d", i)
	}
	_, ok := ray.Intersects(TileBox(tile.New(1, 0, 0)))
	assert.False(t, ok)
}

func TestTileBox(t *testing.T) {
	b := TileBox(tile.New(2, -3, 4))
	assert.InDelta(t, 1.65, b.Min.X, 1e-9)
	assert.InDelta(t, 2.35, b.Max.X, 1e-9)
	assert.InDelta(t, -3.35, b.Min.Y, 1e-9)
	assert.Equal(t, 4.0, b.Min.Z)
	assert.Equal(t, 4.0, b.Max.Z)
}
