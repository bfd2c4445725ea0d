// Package nav holds the navigability capability and the per-tile flag cache
// derived from the tile index.
package nav

import (
	"github.com/Ry-ot/Ryot-sub001/internal/content"
	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

// Navigable is the walkable / sight-blocking capability of a tile occupant.
// Values combine monoidally with Append; the zero value of N is the
// identity and must report IsDefault.
type Navigable[N any] interface {
	IsWalkable() bool
	BlocksSight() bool
	Append(other N) N
	IsDefault() bool
}

// Reader gives read access to cached navigability by position.
type Reader[N any] interface {
	Read(pos tile.Position) N
}

// Flags is the standard navigability bitmask. The zero value is walkable
// and transparent.
type Flags uint8

const (
	FlagUnwalkable Flags = 1 << iota
	FlagBlocksSight
)

// NewFlags builds flags from the two booleans.
func NewFlags(walkable, blocksSight bool) Flags {
	var f Flags
	if !walkable {
		f |= FlagUnwalkable
	}
	if blocksSight {
		f |= FlagBlocksSight
	}
	return f
}

// FlagsFromSpec converts catalog flags.
func FlagsFromSpec(s content.FlagSpec) Flags {
	return NewFlags(!s.Unwalkable, s.BlocksSight)
}

func (f Flags) IsWalkable() bool  { return f&FlagUnwalkable == 0 }
func (f Flags) BlocksSight() bool { return f&FlagBlocksSight != 0 }
func (f Flags) IsDefault() bool   { return f == 0 }

// Append combines two occupants of the same tile: walkable only if both
// are, blocking sight if either does.
func (f Flags) Append(other Flags) Flags {
	return f | other
}

// Ground is the unit navigability: always walkable, never blocks sight.
type Ground struct{}

func (Ground) IsWalkable() bool     { return true }
func (Ground) BlocksSight() bool    { return false }
func (Ground) Append(Ground) Ground { return Ground{} }
func (Ground) IsDefault() bool      { return true }
