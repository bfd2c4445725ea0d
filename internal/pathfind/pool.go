package pathfind

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Ry-ot/Ryot-sub001/internal/metrics"
	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

var (
	// ErrQueueFull is returned by Submit when the request queue is at capacity.
	ErrQueueFull = errors.New("pathfind: request queue full")
	// ErrClosed is returned by Submit after Close.
	ErrClosed = errors.New("pathfind: pathfinder closed")
	// ErrTaskPanicked is reported for a search whose validator panicked.
	ErrTaskPanicked = errors.New("pathfind: task panicked")
)

// State is the lifecycle of the request attached to one handle.
type State uint8

const (
	StateIdle State = iota
	StateRunning
	StatePathAvailable
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StatePathAvailable:
		return "path_available"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// Result is a harvested search outcome.
type Result[H comparable, P tile.Point[P]] struct {
	Handle H
	Query  Query[P]
	Path   Path[P]
	Found  bool
	Err    error
}

// Options configures a Pathfinder.
type Options struct {
	Workers        int
	QueueSize      int
	DefaultTimeout time.Duration
	MaxExpansions  int
	Metrics        *metrics.Metrics
}

// DefaultOptions returns a small pool suitable for tests and tools.
func DefaultOptions() Options {
	return Options{Workers: 4, QueueSize: 1024}
}

type task[H comparable, P tile.Point[P]] struct {
	handle H
	from   P
	query  Query[P]
	valid  func(P) bool
	ctx    context.Context
	cancel context.CancelFunc

	path  Path[P]
	found bool
	err   error
	took  time.Duration
}

// Pathfinder runs path requests on a worker pool. Each handle has at most
// one live request; a newer request for the same handle supersedes the
// older one and the older result is discarded at harvest.
type Pathfinder[H comparable, P tile.Point[P]] struct {
	opts  Options
	queue chan *task[H, P]

	mu       sync.Mutex
	live     map[H]*task[H, P]
	states   map[H]State
	finished []*task[H, P]
	closed   bool
}

// New creates a pathfinder. Workers start with Run.
func New[H comparable, P tile.Point[P]](opts Options) *Pathfinder[H, P] {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	return &Pathfinder[H, P]{
		opts:   opts,
		queue:  make(chan *task[H, P], opts.QueueSize),
		live:   make(map[H]*task[H, P]),
		states: make(map[H]State),
	}
}

// Run starts the workers and blocks until ctx is cancelled.
func (pf *Pathfinder[H, P]) Run(ctx context.Context) error {
	slog.Info("pathfinder started", "workers", pf.opts.Workers, "queue", pf.opts.QueueSize)

	g, ctx := errgroup.WithContext(ctx)
	for range pf.opts.Workers {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case t := <-pf.queue:
					pf.execute(t)
				}
			}
		})
	}
	err := g.Wait()

	slog.Info("pathfinder stopped")
	return err
}

// Submit queues a request for h, cancelling any request h already has.
// Timeout and MaxExpansions left at zero inherit the pool defaults; pass
// NoTimeout for an unbounded search.
func (pf *Pathfinder[H, P]) Submit(h H, from P, q Query[P], valid func(P) bool) error {
	if q.Timeout == 0 {
		q.Timeout = pf.opts.DefaultTimeout
	}
	if q.MaxExpansions == 0 {
		q.MaxExpansions = pf.opts.MaxExpansions
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task[H, P]{handle: h, from: from, query: q, valid: valid, ctx: ctx, cancel: cancel}

	pf.mu.Lock()
	defer pf.mu.Unlock()

	if pf.closed {
		cancel()
		return ErrClosed
	}

	select {
	case pf.queue <- t:
	default:
		cancel()
		pf.opts.Metrics.PathfindDone(metrics.OutcomeRejected, 0)
		return ErrQueueFull
	}

	if old, ok := pf.live[h]; ok {
		old.cancel()
	}
	pf.live[h] = t
	pf.states[h] = StateRunning
	return nil
}

// Cancel abandons the live request of h. It reports whether there was one.
func (pf *Pathfinder[H, P]) Cancel(h H) bool {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	t, ok := pf.live[h]
	if !ok {
		return false
	}
	t.cancel()
	delete(pf.live, h)
	pf.states[h] = StateCancelled
	return true
}

// Forget cancels any request of h and drops its state.
func (pf *Pathfinder[H, P]) Forget(h H) {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	if t, ok := pf.live[h]; ok {
		t.cancel()
		delete(pf.live, h)
	}
	delete(pf.states, h)
}

// State returns the request state of h.
func (pf *Pathfinder[H, P]) State(h H) State {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return pf.states[h]
}

// Pending returns the number of requests not yet harvested.
func (pf *Pathfinder[H, P]) Pending() int {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	return len(pf.live)
}

// Harvest collects finished searches without blocking. Results whose
// request was cancelled or superseded are dropped.
func (pf *Pathfinder[H, P]) Harvest() []Result[H, P] {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	if len(pf.finished) == 0 {
		return nil
	}

	results := make([]Result[H, P], 0, len(pf.finished))
	for _, t := range pf.finished {
		if pf.live[t.handle] != t {
			pf.opts.Metrics.PathfindDone(metrics.OutcomeCancelled, t.took)
			continue
		}
		delete(pf.live, t.handle)
		t.cancel()

		switch {
		case t.err != nil:
			pf.states[t.handle] = StateFailed
			pf.opts.Metrics.PathfindDone(metrics.OutcomePanicked, t.took)
		case t.found:
			pf.states[t.handle] = StatePathAvailable
			pf.opts.Metrics.PathfindDone(metrics.OutcomeFound, t.took)
		default:
			pf.states[t.handle] = StateFailed
			pf.opts.Metrics.PathfindDone(metrics.OutcomeNotFound, t.took)
		}

		results = append(results, Result[H, P]{
			Handle: t.handle,
			Query:  t.query,
			Path:   t.path,
			Found:  t.found,
			Err:    t.err,
		})
	}
	clear(pf.finished)
	pf.finished = pf.finished[:0]
	return results
}

// Close rejects further submissions and cancels every live request.
func (pf *Pathfinder[H, P]) Close() {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	pf.closed = true
	for h, t := range pf.live {
		t.cancel()
		delete(pf.live, h)
		pf.states[h] = StateCancelled
	}
}

func (pf *Pathfinder[H, P]) execute(t *task[H, P]) {
	if t.ctx.Err() == nil {
		start := time.Now()
		t.path, t.found, t.err = pf.search(t)
		t.took = time.Since(start)
		if !t.found && t.err == nil {
			slog.Debug("no path found", "handle", t.handle, "took", t.took, "timeout", t.query.Timeout)
		}
	}

	pf.mu.Lock()
	pf.finished = append(pf.finished, t)
	pf.mu.Unlock()
}

func (pf *Pathfinder[H, P]) search(t *task[H, P]) (path Path[P], found bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("path search panicked", "handle", t.handle, "panic", r)
			path, found, err = Path[P]{}, false, fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	path, found = FindContext(t.ctx, t.from, t.query, t.valid)
	return path, found, nil
}
