// Package tilemap is the layered tile index: for every position, the
// handles of its occupants ordered by render layer.
package tilemap

import (
	"slices"
	"sync"

	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

// Entry is one occupant of a tile.
type Entry[H comparable] struct {
	Layer  tile.Layer
	Handle H
}

type slot struct {
	pos   tile.Position
	layer tile.Layer
}

// MapTiles maps (position, layer) to a host handle. A handle occupies at
// most one slot; inserting it elsewhere moves it. Per-position stacks are
// kept sorted by layer. Safe for concurrent use; readers share a lock.
type MapTiles[H comparable] struct {
	mu       sync.RWMutex
	tiles    map[tile.Position][]Entry[H]
	where    map[H]slot
	previous map[H]tile.Position
}

// New creates an empty index.
func New[H comparable]() *MapTiles[H] {
	return &MapTiles[H]{
		tiles:    make(map[tile.Position][]Entry[H]),
		where:    make(map[H]slot),
		previous: make(map[H]tile.Position),
	}
}

// Insert places h at (pos, layer) and returns the handle it displaced, if
// any. If h already occupied another slot it is moved.
func (m *MapTiles[H]) Insert(pos tile.Position, layer tile.Layer, h H) (H, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertLocked(pos, layer, h)
}

func (m *MapTiles[H]) insertLocked(pos tile.Position, layer tile.Layer, h H) (H, bool) {
	if at, ok := m.where[h]; ok {
		if at.pos == pos && at.layer == layer {
			var zero H
			return zero, false
		}
		m.removeLocked(at.pos, at.layer)
	}

	stack := m.tiles[pos]
	i, found := slices.BinarySearchFunc(stack, layer, func(e Entry[H], l tile.Layer) int {
		return e.Layer.Compare(l)
	})

	var displaced H
	if found {
		displaced = stack[i].Handle
		delete(m.where, displaced)
		stack[i].Handle = h
	} else {
		stack = slices.Insert(stack, i, Entry[H]{Layer: layer, Handle: h})
	}
	m.tiles[pos] = stack
	m.where[h] = slot{pos: pos, layer: layer}
	return displaced, found
}

// Remove clears (pos, layer) and returns the handle that was there.
func (m *MapTiles[H]) Remove(pos tile.Position, layer tile.Layer) (H, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(pos, layer)
}

func (m *MapTiles[H]) removeLocked(pos tile.Position, layer tile.Layer) (H, bool) {
	var zero H
	stack := m.tiles[pos]
	i, found := slices.BinarySearchFunc(stack, layer, func(e Entry[H], l tile.Layer) int {
		return e.Layer.Compare(l)
	})
	if !found {
		return zero, false
	}

	h := stack[i].Handle
	stack = slices.Delete(stack, i, i+1)
	if len(stack) == 0 {
		delete(m.tiles, pos)
	} else {
		m.tiles[pos] = stack
	}
	delete(m.where, h)
	return h, true
}

// RemoveHandle removes h from whichever slot it occupies and forgets its
// tracked position.
func (m *MapTiles[H]) RemoveHandle(h H) (tile.Position, tile.Layer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.previous, h)
	at, ok := m.where[h]
	if !ok {
		return tile.Position{}, tile.Layer{}, false
	}
	m.removeLocked(at.pos, at.layer)
	return at.pos, at.layer, true
}

// Locate returns the slot occupied by h.
func (m *MapTiles[H]) Locate(h H) (tile.Position, tile.Layer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	at, ok := m.where[h]
	return at.pos, at.layer, ok
}

// Get returns the occupants of pos in ascending layer order. The slice is a
// copy.
func (m *MapTiles[H]) Get(pos tile.Position) []Entry[H] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.tiles[pos])
}

// At returns the handle at (pos, layer).
func (m *MapTiles[H]) At(pos tile.Position, layer tile.Layer) (H, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, e := range m.tiles[pos] {
		if e.Layer == layer {
			return e.Handle, true
		}
	}
	var zero H
	return zero, false
}

// Occupants returns the handles at pos in ascending layer order.
func (m *MapTiles[H]) Occupants(pos tile.Position) []H {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stack := m.tiles[pos]
	if len(stack) == 0 {
		return nil
	}
	handles := make([]H, len(stack))
	for i, e := range stack {
		handles[i] = e.Handle
	}
	return handles
}

// TopMostVisible walks pos from the highest layer down and returns the
// first handle accepted by visible.
func (m *MapTiles[H]) TopMostVisible(pos tile.Position, visible func(H) bool) (H, bool) {
	return m.topMost(pos, visible, false)
}

// TopMostVisibleBottom is TopMostVisible ignoring Top and Hud layers.
func (m *MapTiles[H]) TopMostVisibleBottom(pos tile.Position, visible func(H) bool) (H, bool) {
	return m.topMost(pos, visible, true)
}

func (m *MapTiles[H]) topMost(pos tile.Position, visible func(H) bool, skipOverlay bool) (H, bool) {
	for _, e := range slices.Backward(m.Get(pos)) {
		if skipOverlay && e.Layer.IsOverlay() {
			continue
		}
		if visible(e.Handle) {
			return e.Handle, true
		}
	}
	var zero H
	return zero, false
}

// Positions returns every occupied position sorted by (X, Y, Z).
func (m *MapTiles[H]) Positions() []tile.Position {
	m.mu.RLock()
	positions := make([]tile.Position, 0, len(m.tiles))
	for pos := range m.tiles {
		positions = append(positions, pos)
	}
	m.mu.RUnlock()

	tile.SortPositions(positions)
	return positions
}

// Len returns the number of occupied slots.
func (m *MapTiles[H]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.where)
}

// Snapshot returns a deep copy of the index.
func (m *MapTiles[H]) Snapshot() map[tile.Position][]Entry[H] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap := make(map[tile.Position][]Entry[H], len(m.tiles))
	for pos, stack := range m.tiles {
		snap[pos] = slices.Clone(stack)
	}
	return snap
}

// Track records that h now stands at pos and returns the transition from
// its previously tracked position. The first call for a handle yields a
// transition with From == To.
func (m *MapTiles[H]) Track(h H, pos tile.Position) tile.Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	from, ok := m.previous[h]
	if !ok {
		from = pos
	}
	m.previous[h] = pos
	return tile.Transition{From: from, To: pos}
}

// PreviousPosition returns the last position tracked for h.
func (m *MapTiles[H]) PreviousPosition(h H) (tile.Position, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	pos, ok := m.previous[h]
	return pos, ok
}
