package tile

import (
	"cmp"
	"fmt"
)

// LayerKind is the coarse render slot of a tile occupant. The set is closed.
type LayerKind uint8

const (
	KindGround LayerKind = iota
	KindEdge
	KindBottom
	KindTop
	KindHud

	layerKinds // always last
)

func (k LayerKind) String() string {
	switch k {
	case KindGround:
		return "ground"
	case KindEdge:
		return "edge"
	case KindBottom:
		return "bottom"
	case KindTop:
		return "top"
	case KindHud:
		return "hud"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// RelativeLayer orders occupants of the Bottom slot.
type RelativeLayer uint8

const (
	RelativeObject RelativeLayer = iota
	RelativeCreature
	RelativeEffect
	RelativeMissile
)

func (r RelativeLayer) String() string {
	switch r {
	case RelativeObject:
		return "object"
	case RelativeCreature:
		return "creature"
	case RelativeEffect:
		return "effect"
	case RelativeMissile:
		return "missile"
	default:
		return fmt.Sprintf("relative(%d)", uint8(r))
	}
}

// BottomLayer is a sub-slot of the Bottom layer.
type BottomLayer struct {
	Order    uint8         `json:"order" yaml:"order"`
	Relative RelativeLayer `json:"relative" yaml:"relative"`
}

// Layer is the render stacking slot of a tile occupant. Bottom is only
// meaningful for KindBottom and Order only for KindHud; use the
// constructors to keep the other fields zero so Layer stays usable as a map
// key.
type Layer struct {
	Kind   LayerKind   `json:"kind" yaml:"kind"`
	Bottom BottomLayer `json:"bottom,omitempty" yaml:"bottom,omitempty"`
	Order  uint8       `json:"order,omitempty" yaml:"order,omitempty"`
}

// Layer constructors.
var (
	Ground = Layer{Kind: KindGround}
	Edge   = Layer{Kind: KindEdge}
	Top    = Layer{Kind: KindTop}
)

// Bottom returns the Bottom layer for the given relative layer and order.
func Bottom(rel RelativeLayer, order uint8) Layer {
	return Layer{Kind: KindBottom, Bottom: BottomLayer{Order: order, Relative: rel}}
}

// Hud returns the Hud layer with the given order. Lower orders draw above.
func Hud(order uint8) Layer {
	return Layer{Kind: KindHud, Order: order}
}

// IsValid reports whether the layer uses a known kind and relative layer.
func (l Layer) IsValid() bool {
	if l.Kind >= layerKinds {
		return false
	}
	return l.Kind != KindBottom || l.Bottom.Relative <= RelativeMissile
}

// IsOverlay reports whether the layer is drawn above the world (Top, Hud).
func (l Layer) IsOverlay() bool {
	return l.Kind == KindTop || l.Kind == KindHud
}

// Z returns the depth contribution of the layer within a tile.
func (l Layer) Z() float64 {
	switch l.Kind {
	case KindGround:
		return 0
	case KindEdge:
		return LayerWidth
	case KindBottom:
		return 2*LayerWidth + l.Bottom.z()
	case KindTop:
		return MaxZTransform + 1
	case KindHud:
		return max(MaxDepth-float64(l.Order), MaxZTransform+2)
	default:
		return 0
	}
}

func (b BottomLayer) z() float64 {
	slot := float64(b.Relative) * relativeSlotWidth
	return slot + float64(b.Order)/orderSlots*relativeSlotWidth
}

// Compare defines the total render order of layers:
// Ground < Edge < Bottom(relative, order) < Top < Hud.
// Hud layers are ordered by depth, higher orders first.
func (l Layer) Compare(o Layer) int {
	if c := cmp.Compare(l.Kind, o.Kind); c != 0 {
		return c
	}
	switch l.Kind {
	case KindBottom:
		if c := cmp.Compare(l.Bottom.Relative, o.Bottom.Relative); c != 0 {
			return c
		}
		return cmp.Compare(l.Bottom.Order, o.Bottom.Order)
	case KindHud:
		if c := cmp.Compare(l.Z(), o.Z()); c != 0 {
			return c
		}
		return cmp.Compare(o.Order, l.Order)
	}
	return 0
}

// Less reports whether l renders below o.
func (l Layer) Less(o Layer) bool {
	return l.Compare(o) < 0
}

func (l Layer) String() string {
	switch l.Kind {
	case KindBottom:
		return fmt.Sprintf("bottom(%s, %d)", l.Bottom.Relative, l.Bottom.Order)
	case KindHud:
		return fmt.Sprintf("hud(%d)", l.Order)
	default:
		return l.Kind.String()
	}
}
