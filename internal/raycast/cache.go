package raycast

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Ry-ot/Ryot-sub001/internal/metrics"
	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

// IntersectionCache memoises Perspective intersections per radial area.
// Entries are computed on first miss and kept until Clear.
type IntersectionCache[P tile.Point[P]] struct {
	collider Collider[P]
	metrics  *metrics.Metrics

	mu      sync.RWMutex
	entries map[RadialArea[P]][][]P
	flight  singleflight.Group
}

// NewIntersectionCache creates a cache. A nil collider selects TileBox.
func NewIntersectionCache[P tile.Point[P]](collider Collider[P], m *metrics.Metrics) *IntersectionCache[P] {
	if collider == nil {
		collider = TileBox[P]
	}
	return &IntersectionCache[P]{
		collider: collider,
		metrics:  m,
		entries:  make(map[RadialArea[P]][][]P),
	}
}

// Lookup returns the cached intersections of area without computing them.
func (c *IntersectionCache[P]) Lookup(area RadialArea[P]) ([][]P, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[area]
	return v, ok
}

// Get returns the intersections of area, computing them on a miss.
// Concurrent misses for the same area compute once. The returned slices
// are shared and must not be modified.
func (c *IntersectionCache[P]) Get(area RadialArea[P]) [][]P {
	if v, ok := c.Lookup(area); ok {
		c.metrics.CacheLookup(true)
		return v
	}
	c.metrics.CacheLookup(false)

	v, _, _ := c.flight.Do(fmt.Sprintf("%#v", area), func() (any, error) {
		if v, ok := c.Lookup(area); ok {
			return v, nil
		}
		v := NewPerspective(area).IntersectionsWith(c.collider)
		c.mu.Lock()
		c.entries[area] = v
		c.mu.Unlock()
		return v, nil
	})
	return v.([][]P)
}

// Len returns the number of cached areas.
func (c *IntersectionCache[P]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear evicts every entry.
func (c *IntersectionCache[P]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}
