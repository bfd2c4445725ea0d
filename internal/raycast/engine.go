package raycast

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ry-ot/Ryot-sub001/internal/metrics"
	"github.com/Ry-ot/Ryot-sub001/internal/nav"
	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

// Condition decides whether a ray passes through pos given its cached
// navigability. A false result records a collision.
type Condition[N nav.Navigable[N], P tile.Point[P]] func(flags N, pos P) bool

// Visible passes through tiles that do not block sight.
func Visible[N nav.Navigable[N], P tile.Point[P]](flags N, _ P) bool {
	return !flags.BlocksSight()
}

// Walkable passes through tiles that can be walked on.
func Walkable[N nav.Navigable[N], P tile.Point[P]](flags N, _ P) bool {
	return flags.IsWalkable()
}

// Execution is how often a caster is processed. The zero value runs once.
type Execution struct {
	Interval time.Duration
}

// Once processes the caster a single time.
func Once() Execution { return Execution{} }

// Every reprocesses the caster at most once per d.
func Every(d time.Duration) Execution { return Execution{Interval: d} }

// IsOnce reports whether the caster runs a single time.
func (e Execution) IsOnce() bool { return e.Interval <= 0 }

// RayCasting is a caster request.
type RayCasting[N nav.Navigable[N], P tile.Point[P]] struct {
	Area      RadialArea[P]
	Condition Condition[N, P]
	Execution Execution
	// MaxCollisions is how many blocking tiles a ray pierces before it
	// stops. Zero stops at the first one.
	MaxCollisions int32
	// Reversed walks every ray from its far end toward the center.
	Reversed bool
}

// NewRayCasting returns a one-shot request over area.
func NewRayCasting[N nav.Navigable[N], P tile.Point[P]](area RadialArea[P], cond Condition[N, P]) RayCasting[N, P] {
	return RayCasting[N, P]{Area: area, Condition: cond}
}

// Collision is a tile that failed the caster condition.
type Collision[P tile.Point[P]] struct {
	Position P
	Distance float64
	Previous P
	Pierced  bool
}

// Propagation is what a caster sees or reaches.
type Propagation[P tile.Point[P]] struct {
	Collisions     []Collision[P]
	AreaOfInterest []P
}

// Contains reports whether pos is in the area of interest.
func (p Propagation[P]) Contains(pos P) bool {
	return slices.Contains(p.AreaOfInterest, pos)
}

func (p Propagation[P]) merge(o Propagation[P]) Propagation[P] {
	return Propagation[P]{
		Collisions:     append(slices.Clip(p.Collisions), o.Collisions...),
		AreaOfInterest: append(slices.Clip(p.AreaOfInterest), o.AreaOfInterest...),
	}
}

// Propagate walks every ray of intersections under rc and returns the
// result.
func Propagate[N nav.Navigable[N], P tile.Point[P]](rc RayCasting[N, P], flags nav.Reader[N], intersections [][]P) Propagation[P] {
	var out Propagation[P]
	center := rc.Area.Center

	for _, ray := range intersections {
		if len(ray) == 0 {
			continue
		}
		walk := ray
		if rc.Reversed {
			walk = slices.Clone(ray)
			slices.Reverse(walk)
		}

		previous := walk[0]
		var hits int32
		for _, pos := range walk {
			if rc.Condition(flags.Read(tile.ToPosition(pos)), pos) {
				out.AreaOfInterest = append(out.AreaOfInterest, pos)
				previous = pos
				continue
			}

			pierced := hits < rc.MaxCollisions
			hits++
			out.Collisions = append(out.Collisions, Collision[P]{
				Position: pos,
				Distance: tile.Distance(tile.ToPosition(center), tile.ToPosition(pos)),
				Previous: previous,
				Pierced:  pierced,
			})
			if !pierced {
				break
			}
			previous = pos
		}
	}
	return out
}

type caster[N nav.Navigable[N], P tile.Point[P]] struct {
	cast    RayCasting[N, P]
	lastRun time.Time
	ran     bool
}

func (c *caster[N, P]) due(now time.Time) bool {
	if !c.ran {
		return true
	}
	if c.cast.Execution.IsOnce() {
		return false
	}
	return now.Sub(c.lastRun) >= c.cast.Execution.Interval
}

// EngineOptions configures an Engine.
type EngineOptions[P tile.Point[P]] struct {
	Workers  int
	Collider Collider[P]
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// Engine runs the caster pipeline: cache update, parallel processing,
// result sharing and clean-up. Results are keyed by host handle.
type Engine[H comparable, N nav.Navigable[N], P tile.Point[P]] struct {
	flags   nav.Reader[N]
	cache   *IntersectionCache[P]
	workers int
	metrics *metrics.Metrics
	now     func() time.Time

	mu      sync.RWMutex
	casters map[H]*caster[N, P]
	results map[H]Propagation[P]
	shared  map[H]Propagation[P]
	shares  map[H][]H
	// Share sources in ShareWith call order.
	sharers []H
	removed map[H]struct{}
}

// NewEngine creates an engine reading navigability from flags.
func NewEngine[H comparable, N nav.Navigable[N], P tile.Point[P]](flags nav.Reader[N], opts EngineOptions[P]) *Engine[H, N, P] {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine[H, N, P]{
		flags:   flags,
		cache:   NewIntersectionCache(opts.Collider, opts.Metrics),
		workers: opts.Workers,
		metrics: opts.Metrics,
		now:     opts.Now,
		casters: make(map[H]*caster[N, P]),
		results: make(map[H]Propagation[P]),
		shared:  make(map[H]Propagation[P]),
		shares:  make(map[H][]H),
		removed: make(map[H]struct{}),
	}
}

// Cache returns the intersection cache.
func (e *Engine[H, N, P]) Cache() *IntersectionCache[P] { return e.cache }

// Set attaches or replaces the request of h. A replaced request runs on the
// next Process.
func (e *Engine[H, N, P]) Set(h H, rc RayCasting[N, P]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.casters[h] = &caster[N, P]{cast: rc}
	delete(e.removed, h)
}

// Remove detaches the request of h. Its result is dropped at the next
// Cleanup.
func (e *Engine[H, N, P]) Remove(h H) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.casters, h)
	e.unshare(h)
	e.removed[h] = struct{}{}
}

// ShareWith copies the result of h onto targets at every Share. Sources
// merge in the order they were first shared; calling it again for h only
// replaces the targets.
func (e *Engine[H, N, P]) ShareWith(h H, targets ...H) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(targets) == 0 {
		e.unshare(h)
		return
	}
	if _, ok := e.shares[h]; !ok {
		e.sharers = append(e.sharers, h)
	}
	e.shares[h] = slices.Clone(targets)
}

func (e *Engine[H, N, P]) unshare(h H) {
	if _, ok := e.shares[h]; !ok {
		return
	}
	delete(e.shares, h)
	if i := slices.Index(e.sharers, h); i >= 0 {
		e.sharers = slices.Delete(e.sharers, i, i+1)
	}
}

// Casters returns the number of attached requests.
func (e *Engine[H, N, P]) Casters() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.casters)
}

// Result returns what h sees, including anything shared with it.
func (e *Engine[H, N, P]) Result(h H) (Propagation[P], bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	own, ok := e.results[h]
	shared, sok := e.shared[h]
	switch {
	case ok && sok:
		return own.merge(shared), true
	case ok:
		return own, true
	case sok:
		return shared, true
	}
	return Propagation[P]{}, false
}

// UpdateCache computes intersections for every area not cached yet.
func (e *Engine[H, N, P]) UpdateCache() {
	e.mu.RLock()
	areas := make([]RadialArea[P], 0, len(e.casters))
	for _, c := range e.casters {
		areas = append(areas, c.cast.Area)
	}
	e.mu.RUnlock()

	for _, area := range areas {
		e.cache.Get(area)
	}
}

type job[H comparable, N nav.Navigable[N], P tile.Point[P]] struct {
	handle H
	owner  *caster[N, P]
	cast   RayCasting[N, P]
	result Propagation[P]
	ok     bool
	done   bool
}

// Process runs every due caster in parallel. A caster whose condition
// panics keeps its previous result.
func (e *Engine[H, N, P]) Process(ctx context.Context) error {
	now := e.now()

	e.mu.RLock()
	jobs := make([]*job[H, N, P], 0, len(e.casters))
	for h, c := range e.casters {
		if c.due(now) {
			jobs = append(jobs, &job[H, N, P]{handle: h, owner: c, cast: c.cast})
		}
	}
	e.mu.RUnlock()

	e.metrics.SetCasters(len(jobs))
	if len(jobs) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, j := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			j.result, j.ok = e.run(j)
			j.done = true
			return nil
		})
	}
	err := g.Wait()

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, j := range jobs {
		c := e.casters[j.handle]
		if c != j.owner || !j.done {
			continue
		}
		c.lastRun = now
		// A one-shot caster stays armed until it completes a step.
		if j.ok || !c.cast.Execution.IsOnce() {
			c.ran = true
		}
		if j.ok {
			e.results[j.handle] = j.result
		}
	}
	return err
}

func (e *Engine[H, N, P]) run(j *job[H, N, P]) (out Propagation[P], ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("ray cast condition panicked, keeping previous result",
				"caster", fmt.Sprint(j.handle), "area", j.cast.Area.String(), "panic", r)
			ok = false
		}
	}()
	if j.cast.Area.IsEmpty() {
		return Propagation[P]{}, true
	}
	return Propagate(j.cast, e.flags, e.cache.Get(j.cast.Area)), true
}

// Share rebuilds the results shared from casters onto their targets.
func (e *Engine[H, N, P]) Share() {
	e.mu.Lock()
	defer e.mu.Unlock()

	clear(e.shared)
	for _, src := range e.sharers {
		res, ok := e.results[src]
		if !ok {
			continue
		}
		for _, dst := range e.shares[src] {
			if dst == src {
				continue
			}
			e.shared[dst] = e.shared[dst].merge(res)
		}
	}
}

// Cleanup drops results of requests removed before this call and retires
// one-shot casters that already ran. A retired caster's result survives
// until the next Cleanup.
func (e *Engine[H, N, P]) Cleanup() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for h := range e.removed {
		if _, ok := e.casters[h]; !ok {
			delete(e.results, h)
		}
		delete(e.removed, h)
	}
	for h, c := range e.casters {
		if c.ran && c.cast.Execution.IsOnce() {
			delete(e.casters, h)
			e.unshare(h)
			e.removed[h] = struct{}{}
		}
	}
}

// Tick runs the full pipeline once.
func (e *Engine[H, N, P]) Tick(ctx context.Context) error {
	e.UpdateCache()
	if err := e.Process(ctx); err != nil {
		return fmt.Errorf("process casters: %w", err)
	}
	e.Share()
	e.Cleanup()
	return nil
}
