// Package tilestore persists tile contents in BadgerDB, keyed by the
// binary tile key and stored as zstd-compressed JSON.
package tilestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/klauspost/compress/zstd"

	"github.com/Ry-ot/Ryot-sub001/internal/config"
	"github.com/Ry-ot/Ryot-sub001/internal/content"
	"github.com/Ry-ot/Ryot-sub001/internal/tile"
)

var (
	// ErrNotFound is returned by Load for a position with no record.
	ErrNotFound = errors.New("tilestore: not found")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("tilestore: closed")
)

var keyPrefix = []byte("tile/")

// Entry is one persisted occupant of a tile.
type Entry struct {
	Layer   tile.Layer `json:"layer"`
	Content content.ID `json:"content"`
}

// Record is the persisted content of one tile.
type Record struct {
	Entries []Entry `json:"entries"`
}

// Store is a BadgerDB-backed tile snapshot store.
type Store struct {
	mu     sync.RWMutex
	db     *badger.DB
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	closed bool
}

// Open opens the store described by cfg.
func Open(cfg config.StoreConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %q: %w", cfg.Path, err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("creating zstd decoder: %w", err)
	}

	return &Store{db: db, enc: enc, dec: dec}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.dec.Close()
	if err := s.enc.Close(); err != nil {
		s.db.Close()
		return fmt.Errorf("closing zstd encoder: %w", err)
	}
	return s.db.Close()
}

func key(pos tile.Position) []byte {
	k := pos.Key()
	return append(bytes.Clone(keyPrefix), k[:]...)
}

func (s *Store) encode(rec Record) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding record: %w", err)
	}
	return s.enc.EncodeAll(raw, nil), nil
}

func (s *Store) decode(val []byte) (Record, error) {
	raw, err := s.dec.DecodeAll(val, nil)
	if err != nil {
		return Record{}, fmt.Errorf("decompressing record: %w", err)
	}
	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decoding record: %w", err)
	}
	return rec, nil
}

// Save stores rec at pos, replacing any previous record. An empty record
// deletes the key.
func (s *Store) Save(pos tile.Position, rec Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	if len(rec.Entries) == 0 {
		return s.deleteLocked(pos)
	}
	val, err := s.encode(rec)
	if err != nil {
		return err
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(pos), val)
	}); err != nil {
		return fmt.Errorf("saving tile %s: %w", pos, err)
	}
	return nil
}

// SaveAll writes every record in one batch.
func (s *Store) SaveAll(records map[tile.Position]Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()

	for pos, rec := range records {
		var err error
		if len(rec.Entries) == 0 {
			err = wb.Delete(key(pos))
		} else {
			var val []byte
			if val, err = s.encode(rec); err == nil {
				err = wb.Set(key(pos), val)
			}
		}
		if err != nil {
			return fmt.Errorf("batching tile %s: %w", pos, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return fmt.Errorf("flushing tile batch: %w", err)
	}
	return nil
}

// Load returns the record stored at pos.
func (s *Store) Load(pos tile.Position) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return Record{}, ErrClosed
	}

	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(pos))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Record{}, fmt.Errorf("tile %s: %w", pos, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("loading tile %s: %w", pos, err)
	}
	return s.decode(val)
}

// Delete removes the record at pos. Deleting a missing key is not an error.
func (s *Store) Delete(pos tile.Position) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.deleteLocked(pos)
}

func (s *Store) deleteLocked(pos tile.Position) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key(pos))
	}); err != nil {
		return fmt.Errorf("deleting tile %s: %w", pos, err)
	}
	return nil
}

// Scan calls fn for every stored tile in key order. Returning an error
// from fn stops the scan and returns that error.
func (s *Store) Scan(fn func(tile.Position, Record) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	return s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(keyPrefix); it.ValidForPrefix(keyPrefix); it.Next() {
			item := it.Item()
			pos, err := tile.FromKey(item.Key()[len(keyPrefix):])
			if err != nil {
				return err
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return fmt.Errorf("reading tile %s: %w", pos, err)
			}
			rec, err := s.decode(val)
			if err != nil {
				return fmt.Errorf("tile %s: %w", pos, err)
			}
			if err := fn(pos, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of stored tiles.
func (s *Store) Count() (int, error) {
	n := 0
	err := s.Scan(func(tile.Position, Record) error {
		n++
		return nil
	})
	return n, err
}
