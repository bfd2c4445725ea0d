package host

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/Ry-ot/Ryot-sub001/internal/pathfind"
	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

// Walkable reports whether pos can be stepped on according to the flag
// cache as of the last tick.
func (w *World) Walkable(pos tile.Position) bool {
	return pos.IsValid() && w.flags.Read(pos).IsWalkable()
}

// RequestPath asks for a route from e's position. Any request e already has
// is superseded. The result is available from Path after a later Tick.
func (w *World) RequestPath(e ecs.Entity, q pathfind.Query[tile.Position]) error {
	w.mu.Lock()
	from, _, ok := w.locate(e)
	if ok {
		delete(w.paths, e)
	}
	w.mu.Unlock()

	if !ok {
		return fmt.Errorf("request path for %v: %w", e, ErrUnknownEntity)
	}
	if err := w.pathfinder.Submit(e, from, q, w.Walkable); err != nil {
		return fmt.Errorf("request path for %v: %w", e, err)
	}
	return nil
}

// CancelPath abandons e's pending request.
func (w *World) CancelPath(e ecs.Entity) bool {
	return w.pathfinder.Cancel(e)
}

// PathState returns the state of e's latest request.
func (w *World) PathState(e ecs.Entity) pathfind.State {
	return w.pathfinder.State(e)
}

// Path returns the last path harvested for e.
func (w *World) Path(e ecs.Entity) (pathfind.Path[tile.Position], bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.paths[e]
	return p, ok
}
