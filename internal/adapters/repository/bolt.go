package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"go.etcd.io/bbolt"

	"github.com/okian/winprob/pkg/metrics"
)

const predictionsBucket = "predictions"

// BoltStore persists the journal in a bbolt file. Keys are UUIDv7 record
// IDs, so cursor order is append order.
type BoltStore struct {
	db       *bbolt.DB
	capacity int

	// count mirrors the bucket size; it is only written inside Update
	// transactions, which bbolt serializes.
	count atomic.Int64
}

// OpenBoltStore opens or creates the journal at path.
func OpenBoltStore(path string, opts ...Option) (*BoltStore, error) {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: cfg.openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}

	var existing int
	err = db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(predictionsBucket))
		if err != nil {
			return fmt.Errorf("create predictions bucket: %w", err)
		}
		existing = countKeys(b)
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &BoltStore{db: db, capacity: cfg.capacity}
	s.count.Store(int64(existing))
	metrics.UpdateJournalRecords(existing)
	return s, nil
}

// Append implements Store.Append. Records beyond capacity are evicted
// oldest first in the same transaction.
func (s *BoltStore) Append(_ context.Context, r Record) (Record, error) {
	r, err := stamp(r)
	if err != nil {
		return Record{}, err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return Record{}, fmt.Errorf("marshal record: %w", err)
	}

	var count int
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(predictionsBucket))
		fresh := b.Get([]byte(r.ID)) == nil
		if err := b.Put([]byte(r.ID), data); err != nil {
			return fmt.Errorf("put record: %w", err)
		}

		count = int(s.count.Load())
		if fresh {
			count++
		}
		c := b.Cursor()
		for k, _ := c.First(); k != nil && count > s.capacity; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return fmt.Errorf("evict record: %w", err)
			}
			count--
		}
		return nil
	})
	if err == nil {
		s.count.Store(int64(count))
	}
	if err != nil {
		if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
			return Record{}, ErrClosed
		}
		return Record{}, err
	}

	metrics.UpdateJournalRecords(count)
	return r, nil
}

// Recent implements Store.Recent, walking the cursor backwards.
func (s *BoltStore) Recent(_ context.Context, n int) ([]Record, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	out := make([]Record, 0, n)
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(predictionsBucket)).Cursor()
		for k, v := c.Last(); k != nil && len(out) < n; k, v = c.Prev() {
			var r Record
			if err := json.Unmarshal(v, &r); err != nil {
				continue // skip malformed records
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
			return nil, ErrClosed
		}
		return nil, err
	}
	return out, nil
}

// Count implements Store.Count without touching the file.
func (s *BoltStore) Count(_ context.Context) int {
	return int(s.count.Load())
}

// Close closes the underlying database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// countKeys walks b once; it runs only when the store is opened.
func countKeys(b *bbolt.Bucket) int {
	n := 0
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		n++
	}
	return n
}
