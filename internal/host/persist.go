package host

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Ry-ot/Ryot-sub001/internal/content"
	"github.com/Ry-ot/Ryot-sub001/internal/tile"
	"github.com/Ry-ot/Ryot-sub001/internal/tilestore"
)

// ErrNoStore is returned by Persist and Restore on a world without a store.
var ErrNoStore = errors.New("host: no tile store configured")

// Persist writes every tile changed since the last Persist or Restore.
// It returns the number of tiles written.
func (w *World) Persist() (int, error) {
	if w.store == nil {
		return 0, ErrNoStore
	}

	w.mu.Lock()
	records := make(map[tile.Position]tilestore.Record, len(w.dirty))
	for pos := range w.dirty {
		records[pos] = w.recordLocked(pos)
	}
	w.mu.Unlock()

	if len(records) == 0 {
		return 0, nil
	}
	if err := w.store.SaveAll(records); err != nil {
		return 0, fmt.Errorf("persisting %d tiles: %w", len(records), err)
	}

	w.mu.Lock()
	for pos := range records {
		delete(w.dirty, pos)
	}
	w.mu.Unlock()

	slog.Debug("tiles persisted", "count", len(records))
	return len(records), nil
}

func (w *World) recordLocked(pos tile.Position) tilestore.Record {
	var rec tilestore.Record
	for _, entry := range w.tiles.Get(pos) {
		if !w.ecs.Alive(entry.Handle) || !w.appearance.Has(entry.Handle) {
			continue
		}
		rec.Entries = append(rec.Entries, tilestore.Entry{
			Layer:   entry.Layer,
			Content: w.appearance.Get(entry.Handle).Content,
		})
	}
	return rec
}

// Restore draws every tile held in the store. It returns the number of
// tiles restored.
func (w *World) Restore() (int, error) {
	if w.store == nil {
		return 0, ErrNoStore
	}

	n := 0
	err := w.store.Scan(func(pos tile.Position, rec tilestore.Record) error {
		for _, e := range rec.Entries {
			if _, err := w.Draw(pos, e.Layer, e.Content); err != nil {
				return err
			}
		}
		n++
		return nil
	})
	if err != nil {
		return n, fmt.Errorf("restoring tiles: %w", err)
	}

	w.mu.Lock()
	clear(w.dirty)
	w.clearHistory()
	w.mu.Unlock()

	slog.Info("tiles restored", "count", n)
	return n, nil
}

// Stroke is one occupant drawn for a map glyph.
type Stroke struct {
	Layer   tile.Layer
	Content content.ID
}

// Legend maps ASCII map glyphs to the occupants they draw. Glyphs missing
// from the legend leave the tile empty.
type Legend map[rune][]Stroke

// Content ids used by DefaultLegend.
var (
	FloorID = content.ID{Group: content.GroupObject, ID: 100}
	WallID  = content.ID{Group: content.GroupObject, ID: 200}
	WaterID = content.ID{Group: content.GroupObject, ID: 300}
	GlassID = content.ID{Group: content.GroupObject, ID: 400}
)

// DefaultLegend draws floors, walls, water and glass panes.
func DefaultLegend() Legend {
	floor := Stroke{Layer: tile.Ground, Content: FloorID}
	return Legend{
		'.': {floor},
		'#': {floor, {Layer: tile.Bottom(tile.RelativeObject, 0), Content: WallID}},
		'~': {{Layer: tile.Ground, Content: WaterID}},
		'|': {floor, {Layer: tile.Bottom(tile.RelativeObject, 0), Content: GlassID}},
	}
}

// LoadASCII draws a text map onto floor z with its top-left corner at
// origin. Columns grow x and rows grow y. It returns the number of strokes
// drawn.
func (w *World) LoadASCII(r io.Reader, origin tile.Position, legend Legend) (int, error) {
	sc := bufio.NewScanner(r)
	drawn := 0
	for row := int32(0); sc.Scan(); row++ {
		for col, glyph := range []rune(sc.Text()) {
			pos := origin.Offset(int32(col), row)
			for _, s := range legend[glyph] {
				if _, err := w.Draw(pos, s.Layer, s.Content); err != nil {
					return drawn, fmt.Errorf("map row %d col %d: %w", row, col, err)
				}
				drawn++
			}
		}
	}
	if err := sc.Err(); err != nil {
		return drawn, fmt.Errorf("reading map: %w", err)
	}

	w.mu.Lock()
	w.clearHistory()
	w.mu.Unlock()
	return drawn, nil
}

// LoadASCIIFile is LoadASCII reading from path.
func (w *World) LoadASCIIFile(path string, origin tile.Position, legend Legend) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening map %s: %w", path, err)
	}
	defer f.Close()
	return w.LoadASCII(f, origin, legend)
}
