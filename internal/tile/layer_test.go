package tile

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// orderedLayers lists layers in their render order.
func orderedLayers() []Layer {
	return []Layer{
		Ground,
		Edge,
		Bottom(RelativeObject, 0),
		Bottom(RelativeObject, 1),
		Bottom(RelativeObject, 255),
		Bottom(RelativeCreature, 0),
		Bottom(RelativeCreature, 200),
		Bottom(RelativeEffect, 0),
		Bottom(RelativeMissile, 0),
		Bottom(RelativeMissile, 255),
		Top,
		Hud(255),
		Hud(224),
		Hud(100),
		Hud(1),
		Hud(0),
	}
}

func TestLayerOrder(t *testing.T) {
	layers := orderedLayers()
	assert.True(t, slices.IsSortedFunc(layers, Layer.Compare))

	shuffled := slices.Clone(layers)
	slices.Reverse(shuffled)
	slices.SortFunc(shuffled, Layer.Compare)
	assert.Equal(t, layers, shuffled)
}

func TestLayerZ(t *testing.T) {
	assert.Equal(t, 0.0, Ground.Z())
	assert.InDelta(t, LayerWidth, Edge.Z(), 1e-12)
	assert.InDelta(t, 2*LayerWidth, Bottom(RelativeObject, 0).Z(), 1e-12)
	assert.Equal(t, float64(MaxZTransform+1), Top.Z())
	assert.Equal(t, MaxDepth, Hud(0).Z())
	assert.Equal(t, 989.0, Hud(10).Z())
	assert.Equal(t, float64(MaxZTransform+2), Hud(250).Z())

	// Bottom stays inside its slot.
	assert.Less(t, Bottom(RelativeMissile, 255).Z(), 3*LayerWidth)
}

func TestLayerZFollowsOrder(t *testing.T) {
	layers := orderedLayers()
	for i := 1; i < len(layers); i++ {
		assert.LessOrEqual(t, layers[i-1].Z(), layers[i].Z(), "%s vs %s", layers[i-1], layers[i])
	}
}

func TestLayerIsValid(t *testing.T) {
	assert.True(t, Bottom(RelativeMissile, 9).IsValid())
	assert.False(t, Bottom(RelativeLayer(9), 0).IsValid())
	assert.False(t, Layer{Kind: LayerKind(42)}.IsValid())
	assert.True(t, Top.IsOverlay())
	assert.True(t, Hud(3).IsOverlay())
	assert.False(t, Bottom(RelativeObject, 0).IsOverlay())
}

func TestZTransformBounds(t *testing.T) {
	corners := []Position{
		New(MinXY, MinXY, MinZ),
		New(MinXY, MaxXY, MinZ),
		New(MaxXY, MinXY, MaxZ),
		New(MaxXY, MaxXY, MaxZ),
		New(0, 0, 0),
		New(MaxXY, MinXY, MinZ),
	}
	for _, pos := range corners {
		for _, l := range orderedLayers() {
			z := ZTransform(pos, l)
			assert.GreaterOrEqual(t, z, 0.0, "%v %s", pos, l)
			assert.LessOrEqual(t, z, MaxDepth, "%v %s", pos, l)
		}
	}
}

func TestZTransformStacksWithinTile(t *testing.T) {
	pos := New(100, -40, 3)
	layers := orderedLayers()
	for i := 1; i < len(layers); i++ {
		assert.LessOrEqual(t, ZTransform(pos, layers[i-1]), ZTransform(pos, layers[i]))
	}
}

func TestZTransformBottomRightOrder(t *testing.T) {
	l := Bottom(RelativeCreature, 3)

	// Along a row: x ascending draws later.
	for x := int32(-50); x < 50; x++ {
		require.Less(t, ZTransform(New(x, 7, 5), l), ZTransform(New(x+1, 7, 5), l))
	}
	// Along a column: y descending draws later.
	for y := int32(50); y > -50; y-- {
		require.Less(t, ZTransform(New(7, y, 5), l), ZTransform(New(7, y-1, 5), l))
	}
}

func TestLayoutToVec3(t *testing.T) {
	layout := NewLayout(16)
	v := layout.ToVec3(New(2, -3, 0), Ground)
	assert.Equal(t, 32.0, v.X)
	assert.Equal(t, -48.0, v.Y)
	assert.InDelta(t, ZTransform(New(2, -3, 0), Ground), v.Z, 1e-12)

	assert.Equal(t, New(2, -3, 5), layout.FromVec3(v, 5))
	assert.Equal(t, DefaultTileSize, NewLayout(0).TileSize)
	assert.Equal(t, float64(DefaultTileSize)*4, ToVec3(New(4, 0, 0), Ground).X)
}
