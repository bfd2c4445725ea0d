package host

import (
	"fmt"

	"github.com/mlange-42/ark/ecs"

	"github.com/Ry-ot/Ryot-sub001/internal/nav"
	"github.com/Ry-ot/Ryot-sub001/internal/raycast"
	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

// CastRays attaches a caster request to e. The area is re-centred on e now
// and whenever e moves, which also re-arms one-shot requests.
func (w *World) CastRays(e ecs.Entity, rc raycast.RayCasting[nav.Flags, tile.Position]) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	pos, _, ok := w.locate(e)
	if !ok {
		return fmt.Errorf("cast rays from %v: %w", e, ErrUnknownEntity)
	}
	rc.Area = rc.Area.WithCenter(pos)
	w.casts[e] = rc
	w.rays.Set(e, rc)
	return nil
}

// StopRays detaches e's caster request. Its result is dropped at the next
// tick.
func (w *World) StopRays(e ecs.Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.casts, e)
	w.rays.Remove(e)
}

// ShareVision copies what e sees onto targets every tick.
func (w *World) ShareVision(e ecs.Entity, targets ...ecs.Entity) {
	w.rays.ShareWith(e, targets...)
}

// Propagation returns what e saw or reached in the last processed tick.
func (w *World) Propagation(e ecs.Entity) (raycast.Propagation[tile.Position], bool) {
	return w.rays.Result(e)
}
