package raycast

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ry-ot/Ryot-sub001/internal/metrics"
	"github.com/Ry-ot/Ryot-sub001/internal/nav"
	"github.com/Ry-ot/Ryot-sub001/internal/testutil"
	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

var (
	visible  = Condition[nav.Flags, tile.Position](Visible[nav.Flags, tile.Position])
	walkable = Condition[nav.Flags, tile.Position](Walkable[nav.Flags, tile.Position])
	opaque   = nav.NewFlags(true, true)
)

func flagsWith(entries map[tile.Position]nav.Flags) *nav.FlagCache[nav.Flags] {
	c := nav.NewFlagCache[nav.Flags]()
	c.Apply(entries)
	return c
}

// rayToward returns the intersections of the ray of area ending at target.
func rayToward(t *testing.T, area RadialArea[tile.Position], target tile.Position) [][]tile.Position {
	t.Helper()
	p := NewPerspective(area)
	inters := p.Intersections()
	for i, s := range p.Sights {
		if s.Area[len(s.Area)-1] == target {
			return [][]tile.Position{inters[i]}
		}
	}
	t.Fatalf("no ray toward %v", target)
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestPropagateStopsAtOpaqueTile(t *testing.T) {
	flags := flagsWith(map[tile.Position]nav.Flags{tile.New(2, 0, 0): opaque})
	area := Circle(tile.Zero, 5)
	rc := NewRayCasting(area, visible)

	res := Propagate(rc, flags, rayToward(t, area, tile.New(5, 0, 0)))
	require.Len(t, res.Collisions, 1)
	c := res.Collisions[0]
	assert.Equal(t, tile.New(2, 0, 0), c.Position)
	assert.False(t, c.Pierced)
	assert.InDelta(t, 2.0, c.Distance, 1e-9)
	assert.Equal(t, tile.New(1, 0, 0), c.Previous)
	assert.Equal(t, []tile.Position{tile.New(0, 0, 0), tile.New(1, 0, 0)}, res.AreaOfInterest)
}

func TestEngineVisibilityWithOpaqueTile(t *testing.T) {
	flags := flagsWith(map[tile.Position]nav.Flags{tile.New(2, 0, 0): opaque})
	e := NewEngine[int, nav.Flags, tile.Position](flags, EngineOptions[tile.Position]{Workers: 2})
	e.Set(1, NewRayCasting(Circle(tile.Zero, 5), visible))

	require.NoError(t, e.Tick(context.Background()))

	res, ok := e.Result(1)
	require.True(t, ok)
	assert.True(t, res.Contains(tile.New(1, 0, 0)))
	assert.False(t, res.Contains(tile.New(3, 0, 0)))
	assert.False(t, res.Contains(tile.New(2, 0, 0)))

	var atOpaque int
	for _, c := range res.Collisions {
		assert.Equal(t, tile.New(2, 0, 0), c.Position)
		assert.False(t, c.Pierced)
		atOpaque++
	}
	assert.Positive(t, atOpaque)
}

func TestPropagatePiercing(t *testing.T) {
	flags := flagsWith(map[tile.Position]nav.Flags{
		tile.New(2, 0, 0): opaque,
		tile.New(4, 0, 0): opaque,
	})
	area := Circle(tile.Zero, 5)
	ray := rayToward(t, area, tile.New(5, 0, 0))

	tests := []struct {
		name      string
		max       int32
		pierced   []bool
		reachable []tile.Position
	}{
		{
			name:      "stops at first",
			max:       0,
			pierced:   []bool{false},
			reachable: []tile.Position{tile.New(0, 0, 0), tile.New(1, 0, 0)},
		},
		{
			name:      "pierces one",
			max:       1,
			pierced:   []bool{true, false},
			reachable: []tile.Position{tile.New(0, 0, 0), tile.New(1, 0, 0), tile.New(3, 0, 0)},
		},
		{
			name:    "pierces all",
			max:     5,
			pierced: []bool{true, true},
			reachable: []tile.Position{
				tile.New(0, 0, 0), tile.New(1, 0, 0), tile.New(3, 0, 0), tile.New(5, 0, 0),
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := NewRayCasting(area, visible)
			rc.MaxCollisions = tt.max
			res := Propagate(rc, flags, ray)

			require.Len(t, res.Collisions, len(tt.pierced))
			for i, c := range res.Collisions {
				assert.Equal(t, tt.pierced[i], c.Pierced, "collision %d", i)
			}
			assert.Equal(t, tt.reachable, res.AreaOfInterest)
			if len(res.Collisions) == 2 {
				assert.Equal(t, tile.New(3, 0, 0), res.Collisions[1].Previous)
				assert.InDelta(t, 4.0, res.Collisions[1].Distance, 1e-9)
			}
		})
	}
}

func TestPropagateReversed(t *testing.T) {
	flags := flagsWith(map[tile.Position]nav.Flags{tile.New(2, 0, 0): opaque})
	area := Circle(tile.Zero, 5)
	rc := NewRayCasting(area, visible)
	rc.Reversed = true

	res := Propagate(rc, flags, rayToward(t, area, tile.New(5, 0, 0)))
	require.Len(t, res.Collisions, 1)
	assert.Equal(t, tile.New(3, 0, 0), res.Collisions[0].Previous)
	assert.Equal(t, []tile.Position{tile.New(5, 0, 0), tile.New(4, 0, 0), tile.New(3, 0, 0)}, res.AreaOfInterest)
}

func TestPropagateWalkable(t *testing.T) {
	// Water: blocks movement, not sight.
	flags := flagsWith(map[tile.Position]nav.Flags{tile.New(3, 0, 0): nav.NewFlags(false, false)})
	area := Circle(tile.Zero, 5)
	ray := rayToward(t, area, tile.New(5, 0, 0))

	seen := Propagate(NewRayCasting(area, visible), flags, ray)
	assert.Empty(t, seen.Collisions)
	assert.Len(t, seen.AreaOfInterest, 6)

	reach := Propagate(NewRayCasting(area, walkable), flags, ray)
	require.Len(t, reach.Collisions, 1)
	assert.Equal(t, tile.New(3, 0, 0), reach.Collisions[0].Position)
	assert.Len(t, reach.AreaOfInterest, 3)
}

func TestEngineZeroRange(t *testing.T) {
	e := NewEngine[int, nav.Flags, tile.Position](nav.NewFlagCache[nav.Flags](), EngineOptions[tile.Position]{})
	e.Set(1, NewRayCasting(Circle(tile.Zero, 0), visible))
	require.NoError(t, e.Tick(context.Background()))

	res, ok := e.Result(1)
	require.True(t, ok)
	assert.Empty(t, res.Collisions)
	assert.Empty(t, res.AreaOfInterest)
}

func TestEngineOnceLifecycle(t *testing.T) {
	e := NewEngine[int, nav.Flags, tile.Position](nav.NewFlagCache[nav.Flags](), EngineOptions[tile.Position]{})
	e.Set(1, NewRayCasting(Circle(tile.Zero, 2), visible))

	require.NoError(t, e.Tick(context.Background()))
	assert.Zero(t, e.Casters())
	_, ok := e.Result(1)
	assert.True(t, ok, "result survives the tick it was produced in")

	require.NoError(t, e.Tick(context.Background()))
	_, ok = e.Result(1)
	assert.False(t, ok)
}

func TestEngineTimeBased(t *testing.T) {
	clk := &clock{now: time.Unix(1000, 0)}
	flags := nav.NewFlagCache[nav.Flags]()
	e := NewEngine[int, nav.Flags, tile.Position](flags, EngineOptions[tile.Position]{Now: clk.Now})

	rc := NewRayCasting(Circle(tile.Zero, 4), visible)
	rc.Execution = Every(100 * time.Millisecond)
	e.Set(1, rc)

	require.NoError(t, e.Tick(context.Background()))
	first, _ := e.Result(1)
	assert.Empty(t, first.Collisions)

	flags.Apply(map[tile.Position]nav.Flags{tile.New(1, 0, 0): opaque})

	clk.Advance(50 * time.Millisecond)
	require.NoError(t, e.Tick(context.Background()))
	same, _ := e.Result(1)
	assert.Empty(t, same.Collisions)

	clk.Advance(50 * time.Millisecond)
	require.NoError(t, e.Tick(context.Background()))
	updated, _ := e.Result(1)
	assert.NotEmpty(t, updated.Collisions)
	assert.Equal(t, 1, e.Casters())
}

func TestEngineRemove(t *testing.T) {
	e := NewEngine[int, nav.Flags, tile.Position](nav.NewFlagCache[nav.Flags](), EngineOptions[tile.Position]{})
	rc := NewRayCasting(Circle(tile.Zero, 2), visible)
	rc.Execution = Every(time.Second)
	e.Set(1, rc)
	require.NoError(t, e.Tick(context.Background()))

	e.Remove(1)
	_, ok := e.Result(1)
	assert.True(t, ok)

	e.Cleanup()
	_, ok = e.Result(1)
	assert.False(t, ok)
}

func TestEngineShare(t *testing.T) {
	flags := flagsWith(map[tile.Position]nav.Flags{tile.New(0, 2, 0): opaque})
	e := NewEngine[int, nav.Flags, tile.Position](flags, EngineOptions[tile.Position]{})
	rc := NewRayCasting(Circle(tile.Zero, 3), visible)
	rc.Execution = Every(time.Second)
	e.Set(1, rc)
	e.ShareWith(1, 2, 3)

	require.NoError(t, e.Tick(context.Background()))

	own, ok := e.Result(1)
	require.True(t, ok)
	for _, h := range []int{2, 3} {
		got, ok := e.Result(h)
		require.True(t, ok)
		assert.Equal(t, own, got)
	}

	e.ShareWith(1)
	e.Share()
	_, ok = e.Result(2)
	assert.False(t, ok)
}

func TestEngineShareFollowsShareWithOrder(t *testing.T) {
	tests := []struct {
		name  string
		share func(e *Engine[int, nav.Flags, tile.Position])
		want  []int
	}{
		{
			name: "first shared merges first",
			share: func(e *Engine[int, nav.Flags, tile.Position]) {
				e.ShareWith(3, 9)
				e.ShareWith(1, 9)
			},
			want: []int{3, 1},
		},
		{
			name: "resharing keeps the slot",
			share: func(e *Engine[int, nav.Flags, tile.Position]) {
				e.ShareWith(1, 9)
				e.ShareWith(3, 9)
				e.ShareWith(1, 8, 9)
			},
			want: []int{1, 3},
		},
		{
			name: "unsharing drops the slot",
			share: func(e *Engine[int, nav.Flags, tile.Position]) {
				e.ShareWith(1, 9)
				e.ShareWith(3, 9)
				e.ShareWith(1)
				e.ShareWith(1, 9)
			},
			want: []int{3, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine[int, nav.Flags, tile.Position](nav.NewFlagCache[nav.Flags](), EngineOptions[tile.Position]{})
			for h, center := range map[int]tile.Position{1: tile.Zero, 3: tile.New(20, 0, 0)} {
				rc := NewRayCasting(Circle(center, 1), visible)
				rc.Execution = Every(time.Second)
				e.Set(h, rc)
			}
			tt.share(e)

			require.NoError(t, e.Tick(context.Background()))

			var want []tile.Position
			for _, h := range tt.want {
				own, ok := e.Result(h)
				require.True(t, ok)
				want = append(want, own.AreaOfInterest...)
			}
			got, ok := e.Result(9)
			require.True(t, ok)
			assert.Equal(t, want, got.AreaOfInterest)
		})
	}
}

func TestEngineShareMergesWithOwnResult(t *testing.T) {
	e := NewEngine[int, nav.Flags, tile.Position](nav.NewFlagCache[nav.Flags](), EngineOptions[tile.Position]{})
	a := NewRayCasting(Circle(tile.Zero, 2), visible)
	a.Execution = Every(time.Second)
	b := NewRayCasting(Circle(tile.New(20, 0, 0), 2), visible)
	b.Execution = Every(time.Second)
	e.Set(1, a)
	e.Set(2, b)
	e.ShareWith(1, 2)

	require.NoError(t, e.Tick(context.Background()))
	got, _ := e.Result(2)
	assert.True(t, got.Contains(tile.New(20, 0, 0)))
	assert.True(t, got.Contains(tile.Zero))
}

func TestEnginePanicKeepsPreviousResult(t *testing.T) {
	clk := &clock{now: time.Unix(0, 0)}
	e := NewEngine[int, nav.Flags, tile.Position](nav.NewFlagCache[nav.Flags](), EngineOptions[tile.Position]{Now: clk.Now})

	var explode atomic.Bool
	cond := func(f nav.Flags, p tile.Position) bool {
		if explode.Load() {
			panic("condition failed")
		}
		return visible(f, p)
	}
	rc := NewRayCasting(Circle(tile.Zero, 2), Condition[nav.Flags, tile.Position](cond))
	rc.Execution = Every(time.Millisecond)
	e.Set(1, rc)

	require.NoError(t, e.Tick(context.Background()))
	before, ok := e.Result(1)
	require.True(t, ok)

	explode.Store(true)
	clk.Advance(time.Second)
	require.NoError(t, e.Tick(context.Background()))
	after, ok := e.Result(1)
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestEngineOnceRetriesAfterPanic(t *testing.T) {
	e := NewEngine[int, nav.Flags, tile.Position](nav.NewFlagCache[nav.Flags](), EngineOptions[tile.Position]{})

	var explode atomic.Bool
	explode.Store(true)
	cond := func(f nav.Flags, p tile.Position) bool {
		if explode.Load() {
			panic("condition failed")
		}
		return visible(f, p)
	}
	e.Set(1, NewRayCasting(Circle(tile.Zero, 2), Condition[nav.Flags, tile.Position](cond)))

	require.NoError(t, e.Tick(context.Background()))
	_, ok := e.Result(1)
	assert.False(t, ok)
	assert.Equal(t, 1, e.Casters(), "failed one-shot caster must stay attached")

	explode.Store(false)
	require.NoError(t, e.Tick(context.Background()))
	res, ok := e.Result(1)
	require.True(t, ok)
	assert.True(t, res.Contains(tile.New(1, 0, 0)))
	assert.Zero(t, e.Casters())
}

func TestEngineParallelMatchesSequential(t *testing.T) {
	entries := map[tile.Position]nav.Flags{}
	for i := int32(-6); i <= 6; i++ {
		entries[tile.New(i, 3, 0)] = opaque
		entries[tile.New(-4, i, 0)] = opaque
	}
	flags := flagsWith(entries)
	e := NewEngine[int, nav.Flags, tile.Position](flags, EngineOptions[tile.Position]{Workers: 4, Metrics: metrics.New(nil)})

	casts := map[int]RayCasting[nav.Flags, tile.Position]{}
	for i := range 16 {
		rc := NewRayCasting(Circle(tile.New(int32(i%4), int32(i/4), 0), uint8(2+i%5)), visible)
		rc.MaxCollisions = int32(i % 3)
		rc.Execution = Every(time.Hour)
		casts[i] = rc
		e.Set(i, rc)
	}
	require.NoError(t, e.Tick(context.Background()))

	for h, rc := range casts {
		want := Propagate(rc, flags, NewPerspective(rc.Area).Intersections())
		got, ok := e.Result(h)
		require.True(t, ok)
		assert.Equal(t, want, got, "caster %d", h)
	}
	assert.Equal(t, 16, e.Cache().Len())
}

func TestEngineCancelledContext(t *testing.T) {
	e := NewEngine[int, nav.Flags, tile.Position](nav.NewFlagCache[nav.Flags](), EngineOptions[tile.Position]{})
	e.Set(1, NewRayCasting(Circle(tile.Zero, 2), visible))

	err := e.Tick(testutil.CancelledContext())
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, e.Casters())
}

func TestIntersectionCacheComputesOnce(t *testing.T) {
	c := NewIntersectionCache[tile.Position](nil, nil)
	area := Circle(tile.New(3, 3, 0), 6)

	_, ok := c.Lookup(area)
	assert.False(t, ok)

	var wg sync.WaitGroup
	results := make([][][]tile.Position, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = c.Get(area)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, c.Len())
	for _, r := range results {
		assert.Equal(t, results[0], r)
	}
	c.Clear()
	assert.Zero(t, c.Len())
}
