package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/winprob/pkg/metrics"
)

// MemoryStore is a fixed-capacity ring buffer journal.
type MemoryStore struct {
	mu     sync.RWMutex
	buf    []Record
	next   int // slot the next Append writes
	size   int
	closed bool
}

// NewMemoryStore constructs an in-memory journal with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}
	metrics.UpdateJournalRecords(0)
	return &MemoryStore{buf: make([]Record, cfg.capacity)}
}

// Append implements Store.Append in O(1).
func (s *MemoryStore) Append(_ context.Context, r Record) (Record, error) {
	r, err := stamp(r)
	if err != nil {
		return Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Record{}, ErrClosed
	}

	s.buf[s.next] = r
	s.next = (s.next + 1) % len(s.buf)
	if s.size < len(s.buf) {
		s.size++
	}
	metrics.UpdateJournalRecords(s.size)
	return r, nil
}

// Recent implements Store.Recent.
func (s *MemoryStore) Recent(_ context.Context, n int) ([]Record, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if n > s.size {
		n = s.size
	}
	out := make([]Record, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.next - i + len(s.buf)) % len(s.buf)
		out = append(out, s.buf[idx])
	}
	return out, nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Close marks the store closed; later appends fail with ErrClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// stamp fills ID and At. UUIDv7 keeps IDs ordered by creation time.
func stamp(r Record) (Record, error) {
	if r.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Record{}, fmt.Errorf("generate record id: %w", err)
		}
		r.ID = id.String()
	}
	if r.At.IsZero() {
		r.At = time.Now().UTC()
	}
	return r, nil
}
