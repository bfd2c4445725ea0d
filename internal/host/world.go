// Package host is a reference host for the spatial engine: an ark ECS
// world whose entities occupy the tile index and drive the flag cache,
// the pathfinder and the ray-casting engine once per tick.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mlange-42/ark/ecs"
	"golang.org/x/sync/errgroup"

	"github.com/Ry-ot/Ryot-sub001/internal/config"
	"github.com/Ry-ot/Ryot-sub001/internal/content"
	"github.com/Ry-ot/Ryot-sub001/internal/metrics"
	"github.com/Ry-ot/Ryot-sub001/internal/nav"
	"github.com/Ry-ot/Ryot-sub001/internal/pathfind"
	"github.com/Ry-ot/Ryot-sub001/internal/raycast"
	"github.com/Ry-ot/Ryot-sub001/internal/tile"
	"github.com/Ry-ot/Ryot-sub001/internal/tilemap"
	"github.com/Ry-ot/Ryot-sub001/internal/tilestore"
)

var (
	// ErrUnknownEntity is returned for entities that are dead or were never
	// placed on the map.
	ErrUnknownEntity = errors.New("host: unknown entity")
	// ErrInvalidPosition is returned for positions outside the map range.
	ErrInvalidPosition = errors.New("host: invalid position")
)

// maxHistory bounds the undo stack of map edits.
const maxHistory = 256

// Placement is where an entity sits in the tile index.
type Placement struct {
	Pos   tile.Position
	Layer tile.Layer
}

// Appearance is the catalog entry an entity renders as.
type Appearance struct {
	Content content.ID
}

// Visibility hides an entity from the flag cache and from top-most queries.
type Visibility struct {
	Visible bool
}

// Navigability is an entity's own contribution to its tile's flags, on top
// of its catalog entry.
type Navigability struct {
	Flags nav.Flags
}

// Options wires a World to its collaborators.
type Options struct {
	Config  config.Engine
	Catalog content.Catalog[nav.Flags]
	Store   *tilestore.Store
	Metrics *metrics.Metrics
}

// World owns the ECS world and every engine component. Its methods are
// safe for concurrent use; mutations are serialised.
type World struct {
	cfg     config.Engine
	layout  tile.Layout
	store   *tilestore.Store
	metrics *metrics.Metrics

	mu           sync.Mutex
	ecs          *ecs.World
	mapper       *ecs.Map3[Placement, Appearance, Visibility]
	placement    *ecs.Map[Placement]
	appearance   *ecs.Map[Appearance]
	visibility   *ecs.Map[Visibility]
	navigability *ecs.Map[Navigability]

	tiles      *tilemap.MapTiles[ecs.Entity]
	flags      *nav.FlagCache[nav.Flags]
	updater    *nav.Updater[ecs.Entity, nav.Flags]
	pathfinder *pathfind.Pathfinder[ecs.Entity, tile.Position]
	rays       *raycast.Engine[ecs.Entity, nav.Flags, tile.Position]

	pending []tile.Transition
	dirty   map[tile.Position]struct{}
	history []*tilemap.Edit[ecs.Entity]
	casts   map[ecs.Entity]raycast.RayCasting[nav.Flags, tile.Position]
	paths   map[ecs.Entity]pathfind.Path[tile.Position]
}

// New builds a World from opts.
func New(opts Options) *World {
	world := ecs.NewWorld()
	w := &World{
		cfg:          opts.Config,
		layout:       tile.NewLayout(opts.Config.TileSize),
		store:        opts.Store,
		metrics:      opts.Metrics,
		ecs:          world,
		mapper:       ecs.NewMap3[Placement, Appearance, Visibility](world),
		placement:    ecs.NewMap[Placement](world),
		appearance:   ecs.NewMap[Appearance](world),
		visibility:   ecs.NewMap[Visibility](world),
		navigability: ecs.NewMap[Navigability](world),
		tiles:        tilemap.New[ecs.Entity](),
		flags:        nav.NewFlagCache[nav.Flags](),
		dirty:        make(map[tile.Position]struct{}),
		casts:        make(map[ecs.Entity]raycast.RayCasting[nav.Flags, tile.Position]),
		paths:        make(map[ecs.Entity]pathfind.Path[tile.Position]),
	}

	w.updater = nav.NewUpdater[ecs.Entity, nav.Flags](w.flags, w.tiles, entityView{w}, opts.Catalog)

	w.pathfinder = pathfind.New[ecs.Entity, tile.Position](pathfind.Options{
		Workers:        opts.Config.Pathfinding.Workers,
		QueueSize:      opts.Config.Pathfinding.QueueSize,
		DefaultTimeout: opts.Config.Pathfinding.DefaultTimeout,
		MaxExpansions:  opts.Config.Pathfinding.MaxExpansions,
		Metrics:        opts.Metrics,
	})
	w.rays = raycast.NewEngine[ecs.Entity, nav.Flags, tile.Position](w.flags, raycast.EngineOptions[tile.Position]{
		Workers: opts.Config.Raycast.Workers,
		Metrics: opts.Metrics,
	})
	return w
}

// entityView adapts the ECS components to the flag cache updater. It is
// only called from Tick with w.mu held.
type entityView struct{ w *World }

func (v entityView) Occupant(e ecs.Entity) (nav.Occupant[nav.Flags], bool) {
	w := v.w
	if !w.ecs.Alive(e) || !w.placement.Has(e) {
		return nav.Occupant[nav.Flags]{}, false
	}
	var o nav.Occupant[nav.Flags]
	if w.appearance.Has(e) {
		o.Content, o.HasContent = w.appearance.Get(e).Content, true
	}
	if w.visibility.Has(e) {
		o.Visible = w.visibility.Get(e).Visible
	}
	if w.navigability.Has(e) {
		o.Flags = w.navigability.Get(e).Flags
	}
	return o, true
}

// Flags returns the navigability cache.
func (w *World) Flags() *nav.FlagCache[nav.Flags] { return w.flags }

// Tiles returns the tile index.
func (w *World) Tiles() *tilemap.MapTiles[ecs.Entity] { return w.tiles }

// Layout returns the world-space projection.
func (w *World) Layout() tile.Layout { return w.layout }

// Len returns the number of live entities placed on the map.
func (w *World) Len() int { return w.tiles.Len() }

func (w *World) touch(changes ...tile.Transition) {
	w.pending = append(w.pending, changes...)
	for _, c := range changes {
		for _, pos := range c.Positions() {
			w.dirty[pos] = struct{}{}
		}
	}
}

// Draw creates an entity showing id at (pos, layer). An entity already in
// that slot is displaced and kept alive until the edit leaves the undo
// history.
func (w *World) Draw(pos tile.Position, layer tile.Layer, id content.ID) (ecs.Entity, error) {
	if !pos.IsValid() {
		return ecs.Entity{}, fmt.Errorf("draw at %s: %w", pos, ErrInvalidPosition)
	}
	if !layer.IsValid() {
		return ecs.Entity{}, fmt.Errorf("draw at %s: invalid layer %s", pos, layer)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	e := w.mapper.NewEntity(&Placement{Pos: pos, Layer: layer}, &Appearance{Content: id}, &Visibility{Visible: true})
	edit := tilemap.Insert(pos, layer, e)
	w.touch(edit.Apply(w.tiles)...)
	w.tiles.Track(e, pos)
	w.record(edit)
	return e, nil
}

// Erase removes whatever occupies (pos, layer). It reports whether a slot
// was cleared.
func (w *World) Erase(pos tile.Position, layer tile.Layer) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.tiles.At(pos, layer); !ok {
		return false
	}
	edit := tilemap.Delete[ecs.Entity](pos, layer)
	w.touch(edit.Apply(w.tiles)...)
	w.record(edit)
	return true
}

// Undo reverts the most recent Draw or Erase still in history.
func (w *World) Undo() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.history) == 0 {
		return false
	}
	edit := w.history[len(w.history)-1]
	w.history[len(w.history)-1] = nil
	w.history = w.history[:len(w.history)-1]

	w.touch(edit.Revert(w.tiles)...)
	if !edit.Delete {
		w.despawnIfUnplaced(edit.Handle)
	}
	return true
}

func (w *World) record(edit *tilemap.Edit[ecs.Entity]) {
	w.history = append(w.history, edit)
	if len(w.history) <= maxHistory {
		return
	}
	w.forget(w.history[0])
	w.history[0] = nil
	w.history = w.history[1:]
}

// forget drops an edit from history, despawning any entity it was keeping
// alive for undo.
func (w *World) forget(edit *tilemap.Edit[ecs.Entity]) {
	for _, e := range edit.Displaced() {
		w.despawnIfUnplaced(e)
	}
}

func (w *World) clearHistory() {
	for _, edit := range w.history {
		w.forget(edit)
	}
	clear(w.history)
	w.history = w.history[:0]
}

func (w *World) despawnIfUnplaced(e ecs.Entity) {
	if _, _, placed := w.tiles.Locate(e); placed || !w.ecs.Alive(e) {
		return
	}
	w.despawnLocked(e)
}

// Move relocates e to pos on the same layer, displacing any occupant.
// Moving clears the undo history.
func (w *World) Move(e ecs.Entity, to tile.Position) error {
	if !to.IsValid() {
		return fmt.Errorf("move to %s: %w", to, ErrInvalidPosition)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	from, layer, ok := w.locate(e)
	if !ok {
		return fmt.Errorf("move %v: %w", e, ErrUnknownEntity)
	}
	if from == to {
		return nil
	}

	w.clearHistory()
	if displaced, ok := w.tiles.Insert(to, layer, e); ok {
		w.despawnLocked(displaced)
	}
	w.touch(w.tiles.Track(e, to))
	w.placement.Get(e).Pos = to

	if rc, ok := w.casts[e]; ok {
		rc.Area = rc.Area.WithCenter(to)
		w.casts[e] = rc
		w.rays.Set(e, rc)
	}
	return nil
}

// Despawn removes e from the map and the ECS world.
func (w *World) Despawn(e ecs.Entity) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.ecs.Alive(e) {
		return fmt.Errorf("despawn %v: %w", e, ErrUnknownEntity)
	}
	w.clearHistory()
	w.despawnLocked(e)
	return nil
}

func (w *World) despawnLocked(e ecs.Entity) {
	if pos, _, ok := w.tiles.RemoveHandle(e); ok {
		w.touch(tile.Transition{From: pos, To: pos})
	}
	w.pathfinder.Forget(e)
	w.rays.Remove(e)
	delete(w.casts, e)
	delete(w.paths, e)
	if w.ecs.Alive(e) {
		w.ecs.RemoveEntity(e)
	}
}

// SetVisible shows or hides e.
func (w *World) SetVisible(e ecs.Entity, visible bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	pos, _, ok := w.locate(e)
	if !ok {
		return fmt.Errorf("set visibility of %v: %w", e, ErrUnknownEntity)
	}
	w.visibility.Get(e).Visible = visible
	w.touch(tile.Transition{From: pos, To: pos})
	return nil
}

// SetContent changes what e renders as.
func (w *World) SetContent(e ecs.Entity, id content.ID) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	pos, _, ok := w.locate(e)
	if !ok {
		return fmt.Errorf("set content of %v: %w", e, ErrUnknownEntity)
	}
	w.appearance.Get(e).Content = id
	w.touch(tile.Transition{From: pos, To: pos})
	return nil
}

// SetNavigability gives e flags of its own, folded with its catalog entry.
func (w *World) SetNavigability(e ecs.Entity, flags nav.Flags) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	pos, _, ok := w.locate(e)
	if !ok {
		return fmt.Errorf("set navigability of %v: %w", e, ErrUnknownEntity)
	}
	if w.navigability.Has(e) {
		w.navigability.Get(e).Flags = flags
	} else {
		w.navigability.Add(e, &Navigability{Flags: flags})
	}
	w.touch(tile.Transition{From: pos, To: pos})
	return nil
}

// Position returns where e stands.
func (w *World) Position(e ecs.Entity) (tile.Position, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	pos, _, ok := w.locate(e)
	return pos, ok
}

func (w *World) locate(e ecs.Entity) (tile.Position, tile.Layer, bool) {
	if !w.ecs.Alive(e) {
		return tile.Position{}, tile.Layer{}, false
	}
	return w.tiles.Locate(e)
}

// TopMost returns the highest visible entity at pos. With bottomOnly set,
// Top and Hud occupants are ignored.
func (w *World) TopMost(pos tile.Position, bottomOnly bool) (ecs.Entity, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	visible := func(e ecs.Entity) bool {
		return w.ecs.Alive(e) && w.visibility.Has(e) && w.visibility.Get(e).Visible
	}
	if bottomOnly {
		return w.tiles.TopMostVisibleBottom(pos, visible)
	}
	return w.tiles.TopMostVisible(pos, visible)
}

// Tick runs one engine step: flag refresh, path harvest, then the ray
// casting pipeline.
func (w *World) Tick(ctx context.Context) error {
	w.mu.Lock()
	pending := w.pending
	w.pending = nil
	w.updater.Update(pending)
	w.metrics.SetFlagEntries(w.flags.Len())

	for _, r := range w.pathfinder.Harvest() {
		if r.Found {
			w.paths[r.Handle] = r.Path
		} else {
			delete(w.paths, r.Handle)
		}
		if r.Err != nil {
			slog.Error("path request failed", "entity", r.Handle, "error", r.Err)
		}
	}
	w.mu.Unlock()

	if err := w.rays.Tick(ctx); err != nil {
		return fmt.Errorf("ray casting: %w", err)
	}
	return nil
}

// Run starts the pathfinder workers and ticks every cfg.TickInterval until
// ctx is cancelled.
func (w *World) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.pathfinder.Run(ctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(w.cfg.TickInterval)
		defer ticker.Stop()

		slog.Info("world ticking", "interval", w.cfg.TickInterval)
		for {
			select {
			case <-ctx.Done():
				slog.Info("world stopping")
				w.pathfinder.Close()
				return nil
			case <-ticker.C:
				if err := w.Tick(ctx); err != nil && ctx.Err() == nil {
					return err
				}
			}
		}
	})

	return g.Wait()
}
