// Package pathfind implements weighted 2D A* over the tile grid and an
// asynchronous worker pool that runs searches on behalf of host entities.
package pathfind

import (
	"container/heap"
	"context"
	"math"
	"slices"
	"time"

	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

// Default query weights.
const (
	DefaultCardinalCost    uint32  = 1
	DefaultDiagonalCost    uint32  = 500
	DefaultSuccessDistance float64 = 1.0
)

// NoTimeout asks for a search without a wall-time bound. Unlike a zero
// Timeout it is not replaced by a pool default.
const NoTimeout time.Duration = -1

// Query describes one path request. The zero value is not usable; start
// from NewQuery.
type Query[P tile.Point[P]] struct {
	To           P
	CardinalCost uint32
	DiagonalCost uint32
	// SuccessDistance accepts any node strictly closer to To than this.
	// The bound is exclusive: with 2.0 a node exactly 2 tiles away is
	// rejected, so the default 1.0 only accepts To itself. Reaching To is
	// always accepted.
	SuccessDistance float64
	// Timeout bounds the search wall time. Zero or negative means no limit
	// for Find; the Pathfinder fills a zero Timeout from its default.
	Timeout time.Duration
	// MaxExpansions bounds the number of nodes closed. Zero means no limit.
	MaxExpansions int
	// AvoidCorners rejects a diagonal step unless both cardinal
	// neighbours it cuts across are valid.
	AvoidCorners bool
}

// NewQuery returns a query toward to with the default weights.
func NewQuery[P tile.Point[P]](to P) Query[P] {
	return Query[P]{
		To:              to,
		CardinalCost:    DefaultCardinalCost,
		DiagonalCost:    DefaultDiagonalCost,
		SuccessDistance: DefaultSuccessDistance,
	}
}

// WithTimeout returns a copy of q bounded by d.
func (q Query[P]) WithTimeout(d time.Duration) Query[P] {
	q.Timeout = d
	return q
}

// WithCosts returns a copy of q with the given step weights.
func (q Query[P]) WithCosts(cardinal, diagonal uint32) Query[P] {
	q.CardinalCost, q.DiagonalCost = cardinal, diagonal
	return q
}

// Path is a found route. Steps starts at the origin.
type Path[P tile.Point[P]] struct {
	Steps []P
	Cost  uint32
}

// Len returns the number of steps including the origin.
func (p Path[P]) Len() int { return len(p.Steps) }

// Last returns the final step.
func (p Path[P]) Last() (P, bool) {
	if len(p.Steps) == 0 {
		var zero P
		return zero, false
	}
	return p.Steps[len(p.Steps)-1], true
}

// Find runs A* from from toward q.To, expanding only positions accepted by
// valid. It reports false when no goal is reachable within the limits.
func Find[P tile.Point[P]](from P, q Query[P], valid func(P) bool) (Path[P], bool) {
	return FindContext(context.Background(), from, q, valid)
}

// FindContext is Find that also stops when ctx is done.
func FindContext[P tile.Point[P]](ctx context.Context, from P, q Query[P], valid func(P) bool) (Path[P], bool) {
	s := search[P]{
		ctx:   ctx,
		query: q,
		valid: valid,
		start: time.Now(),
		best:  make(map[P]uint32, 256),
	}
	goal := s.run(from)
	if goal == nil {
		return Path[P]{}, false
	}

	steps := make([]P, 0, 32)
	for n := goal; n != nil; n = n.parent {
		steps = append(steps, n.pos)
	}
	slices.Reverse(steps)
	return Path[P]{Steps: steps, Cost: goal.g}, true
}

type node[P tile.Point[P]] struct {
	pos    P
	parent *node[P]
	g      uint32
	f      float64
	seq    uint64
	index  int
}

type search[P tile.Point[P]] struct {
	ctx      context.Context
	query    Query[P]
	valid    func(P) bool
	start    time.Time
	best     map[P]uint32
	seq      uint64
	timedOut bool
}

func (s *search[P]) run(from P) *node[P] {
	open := &nodeHeap[P]{}
	heap.Init(open)
	s.push(open, &node[P]{pos: from})

	closed := make(map[P]struct{}, 256)
	expansions := 0

	for open.Len() > 0 {
		current := heap.Pop(open).(*node[P])
		if _, done := closed[current.pos]; done {
			continue
		}
		if s.isGoal(current.pos) {
			return current
		}
		closed[current.pos] = struct{}{}

		expansions++
		if s.query.MaxExpansions > 0 && expansions > s.query.MaxExpansions {
			return nil
		}
		if s.ctx.Err() != nil {
			return nil
		}

		for _, next := range s.neighbors(current) {
			if _, done := closed[next.pos]; done {
				continue
			}
			if g, seen := s.best[next.pos]; seen && g <= next.g {
				continue
			}
			s.push(open, next)
		}
	}
	return nil
}

func (s *search[P]) push(open *nodeHeap[P], n *node[P]) {
	n.f = float64(n.g) + heuristic(n.pos, s.query.To)
	n.seq = s.seq
	s.seq++
	s.best[n.pos] = n.g
	heap.Push(open, n)
}

func (s *search[P]) isGoal(p P) bool {
	return p == s.query.To || distance(p, s.query.To) < s.query.SuccessDistance
}

var (
	cardinals = [4][2]int32{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}
	// Each diagonal lists the two cardinal indices it cuts across.
	diagonals = [4]struct {
		dx, dy     int32
		adj1, adj2 int
	}{
		{1, -1, 0, 1},
		{1, 1, 1, 2},
		{-1, 1, 2, 3},
		{-1, -1, 3, 0},
	}
)

// neighbors returns the valid cardinal then diagonal successors of n. Once
// the timeout elapses it returns nothing, draining the open set.
func (s *search[P]) neighbors(n *node[P]) []*node[P] {
	if s.timedOut {
		return nil
	}
	if s.query.Timeout > 0 && time.Since(s.start) > s.query.Timeout {
		s.timedOut = true
		return nil
	}

	x, y, z := n.pos.Coordinates()
	out := make([]*node[P], 0, 8)

	var open [4]bool
	for i, d := range cardinals {
		p := n.pos.Generate(x+d[0], y+d[1], z)
		if !s.valid(p) {
			continue
		}
		open[i] = true
		out = append(out, &node[P]{pos: p, parent: n, g: n.g + s.query.CardinalCost})
	}

	for _, d := range diagonals {
		if s.query.AvoidCorners && (!open[d.adj1] || !open[d.adj2]) {
			continue
		}
		p := n.pos.Generate(x+d.dx, y+d.dy, z)
		if !s.valid(p) {
			continue
		}
		out = append(out, &node[P]{pos: p, parent: n, g: n.g + s.query.DiagonalCost})
	}
	return out
}

// heuristic is the planar Euclidean distance scaled down by three so it
// stays below the cost of any real route under the default weights.
func heuristic[P tile.Point[P]](a, b P) float64 {
	return distance(a, b) / 3
}

func distance[P tile.Point[P]](a, b P) float64 {
	ax, ay, _ := a.Coordinates()
	bx, by, _ := b.Coordinates()
	dx := float64(ax) - float64(bx)
	dy := float64(ay) - float64(by)
	return math.Sqrt(dx*dx + dy*dy)
}

// nodeHeap is a min-heap on f, ties broken by insertion order.
type nodeHeap[P tile.Point[P]] []*node[P]

func (h nodeHeap[P]) Len() int { return len(h) }
func (h nodeHeap[P]) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap[P]) Swap(i, j int) { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *nodeHeap[P]) Push(x any)   { n := x.(*node[P]); n.index = len(*h); *h = append(*h, n) }
func (h *nodeHeap[P]) Pop() any {
	old := *h
	n := len(old)
	nd := old[n-1]
	old[n-1] = nil
	nd.index = -1
	*h = old[:n-1]
	return nd
}
