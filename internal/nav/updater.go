package nav

import (
	"log/slog"

	"github.com/Ry-ot/Ryot-sub001/internal/content"
	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

// TileView lists the occupants of a tile.
type TileView[H comparable] interface {
	Occupants(pos tile.Position) []H
}

// Occupant is what the host entity store knows about a tile occupant.
type Occupant[N any] struct {
	Content    content.ID
	HasContent bool
	Flags      N
	Visible    bool
}

// EntityView resolves handles against the host entity store.
type EntityView[H comparable, N any] interface {
	Occupant(h H) (Occupant[N], bool)
}

// Updater keeps a FlagCache in sync with the tile index.
type Updater[H comparable, N Navigable[N]] struct {
	cache    *FlagCache[N]
	tiles    TileView[H]
	entities EntityView[H, N]
	catalog  content.Catalog[N]
}

// NewUpdater wires a cache to its sources. catalog may be nil.
func NewUpdater[H comparable, N Navigable[N]](
	cache *FlagCache[N],
	tiles TileView[H],
	entities EntityView[H, N],
	catalog content.Catalog[N],
) *Updater[H, N] {
	return &Updater[H, N]{cache: cache, tiles: tiles, entities: entities, catalog: catalog}
}

// Cache returns the cache being updated.
func (u *Updater[H, N]) Cache() *FlagCache[N] {
	return u.cache
}

// Update recomputes every position touched by the transitions (both the
// source and the destination) and writes the results in one batch.
// Returns the number of positions refreshed.
func (u *Updater[H, N]) Update(changes []tile.Transition) int {
	if len(changes) == 0 {
		return 0
	}

	missing := make(map[H]struct{})
	batch := make(map[tile.Position]N, 2*len(changes))
	for _, ch := range changes {
		for _, pos := range ch.Positions() {
			if _, done := batch[pos]; done {
				continue
			}
			batch[pos] = u.compute(pos, missing)
		}
	}

	u.cache.Apply(batch)
	return len(batch)
}

// Rebuild recomputes the given positions from scratch.
func (u *Updater[H, N]) Rebuild(positions []tile.Position) int {
	changes := make([]tile.Transition, len(positions))
	for i, pos := range positions {
		changes[i] = tile.Transition{From: pos, To: pos}
	}
	return u.Update(changes)
}

func (u *Updater[H, N]) compute(pos tile.Position, missing map[H]struct{}) N {
	var acc N
	for _, h := range u.tiles.Occupants(pos) {
		occ, ok := u.entities.Occupant(h)
		if !ok {
			if _, warned := missing[h]; !warned {
				missing[h] = struct{}{}
				slog.Warn("tile occupant missing from entity store", "position", pos, "handle", h)
			}
			continue
		}
		if !occ.Visible {
			continue
		}

		n := occ.Flags
		if occ.HasContent && u.catalog != nil {
			if el, found := u.catalog.Lookup(occ.Content); found {
				n = n.Append(el.Flags)
			}
		}
		if n.IsDefault() {
			continue
		}
		acc = acc.Append(n)
	}
	return acc
}
