package nav

import (
	"maps"
	"sync"

	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

// FlagCache maps positions to their combined navigability. Absent entries
// read as the zero value of N. Reads take a shared lock; writes are applied
// in batches under a single exclusive lock.
type FlagCache[N Navigable[N]] struct {
	mu    sync.RWMutex
	flags map[tile.Position]N
}

// NewFlagCache creates an empty cache.
func NewFlagCache[N Navigable[N]]() *FlagCache[N] {
	return &FlagCache[N]{flags: make(map[tile.Position]N)}
}

// Read returns the cached navigability at pos, or the default.
func (c *FlagCache[N]) Read(pos tile.Position) N {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.flags[pos]
}

// Lookup is Read with a presence flag.
func (c *FlagCache[N]) Lookup(pos tile.Position) (N, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n, ok := c.flags[pos]
	return n, ok
}

// Len returns the number of non-default entries.
func (c *FlagCache[N]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.flags)
}

// Snapshot returns a copy of the cache contents.
func (c *FlagCache[N]) Snapshot() map[tile.Position]N {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.flags)
}

// Clear drops every entry.
func (c *FlagCache[N]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.flags)
}

// Apply writes a batch of entries. Default values remove the entry.
func (c *FlagCache[N]) Apply(batch map[tile.Position]N) {
	if len(batch) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for pos, n := range batch {
		if n.IsDefault() {
			delete(c.flags, pos)
			continue
		}
		c.flags[pos] = n
	}
}
