package tile

import "math"

// Grid boundaries. X and Y are stored as int32 but only the int16 range is
// addressable; Z is unbounded in storage, floors live in [MinZ, MaxZ].
const (
	MinXY = math.MinInt16
	MaxXY = math.MaxInt16
	MinZ  = -128
	MaxZ  = 127
)

// Render depth constants.
const (
	MaxDepth          = 999.0
	MaxZTile          = 127
	MaxZTransform     = 900 - MaxZTile                   // 773
	planarSpan        = 65535.0                          // MaxXY - MinXY
	LayerWidth        = float64(MaxZTransform) / (2 * planarSpan)
	relativeSlotWidth = LayerWidth / 5
	orderSlots        = 256.0
)

// AABB extents of a tile for ray intersection (0.7 x 0.7 x 0, centred).
const TileHalfExtent = 0.35
