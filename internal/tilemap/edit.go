package tilemap

import "github.com/Ry-ot/Ryot-sub001/internal/tile"

// Edit is a reversible change to one slot of the index. Apply records what
// it overwrote so Revert restores the index exactly.
type Edit[H comparable] struct {
	Position tile.Position
	Layer    tile.Layer
	Handle   H
	Delete   bool

	applied      bool
	prior        H
	hadPrior     bool
	movedFrom    slot
	wasElsewhere bool
	noop         bool
}

// Insert returns an edit placing h at (pos, layer).
func Insert[H comparable](pos tile.Position, layer tile.Layer, h H) *Edit[H] {
	return &Edit[H]{Position: pos, Layer: layer, Handle: h}
}

// Delete returns an edit clearing (pos, layer).
func Delete[H comparable](pos tile.Position, layer tile.Layer) *Edit[H] {
	return &Edit[H]{Position: pos, Layer: layer, Delete: true}
}

// Applied reports whether the edit is currently in effect.
func (e *Edit[H]) Applied() bool { return e.applied }

// Apply performs the edit and returns the transitions the flag cache must
// recompute. A second Apply without Revert is a no-op.
func (e *Edit[H]) Apply(m *MapTiles[H]) []tile.Transition {
	if e.applied {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e.applied = true
	changes := []tile.Transition{{From: e.Position, To: e.Position}}

	if e.Delete {
		e.prior, e.hadPrior = m.removeLocked(e.Position, e.Layer)
		return changes
	}

	e.wasElsewhere, e.noop = false, false
	if at, ok := m.where[e.Handle]; ok {
		if at.pos == e.Position && at.layer == e.Layer {
			e.noop, e.hadPrior = true, false
			return changes
		}
		e.movedFrom, e.wasElsewhere = at, true
		changes = append(changes, tile.Transition{From: at.pos, To: e.Position})
	}
	e.prior, e.hadPrior = m.insertLocked(e.Position, e.Layer, e.Handle)
	return changes
}

// Revert undoes a previously applied edit.
func (e *Edit[H]) Revert(m *MapTiles[H]) []tile.Transition {
	if !e.applied {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e.applied = false
	changes := []tile.Transition{{From: e.Position, To: e.Position}}

	if e.noop {
		return changes
	}
	if !e.Delete {
		m.removeLocked(e.Position, e.Layer)
		if e.wasElsewhere {
			m.insertLocked(e.movedFrom.pos, e.movedFrom.layer, e.Handle)
			changes = append(changes, tile.Transition{From: e.Position, To: e.movedFrom.pos})
		}
	}
	if e.hadPrior {
		m.insertLocked(e.Position, e.Layer, e.prior)
	}
	return changes
}

// Displaced returns the handle the applied edit removed from its slot, if
// any.
func (e *Edit[H]) Displaced() []H {
	if !e.applied || !e.hadPrior {
		return nil
	}
	return []H{e.prior}
}
