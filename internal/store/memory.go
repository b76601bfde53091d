package store

import (
	"context"
	"sync"

	"github.com/ludo-technologies/asmcluster/domain"
)

// MemoryStore keeps records in process memory. It has the same semantics as
// the SQLite store but nothing survives the process.
type MemoryStore struct {
	mu      sync.RWMutex
	records []domain.DistanceRecord
	index   map[[2]string]int
	closed  bool
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{index: make(map[[2]string]int)}
}

// AppendBatch stores records; a record for an ordered pair already present
// is ignored.
func (s *MemoryStore) AppendBatch(ctx context.Context, records []domain.DistanceRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStoreClosed
	}
	for _, rec := range records {
		key := [2]string{rec.ItemA, rec.ItemB}
		if _, ok := s.index[key]; ok {
			continue
		}
		s.index[key] = len(s.records)
		s.records = append(s.records, rec)
	}
	return nil
}

func (s *MemoryStore) Lookup(ctx context.Context, a, b string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, false, errStoreClosed
	}
	i, ok := s.index[[2]string{a, b}]
	if !ok {
		return 0, false, nil
	}
	return s.records[i].Distance, true, nil
}

func (s *MemoryStore) Scan(ctx context.Context, fn func(domain.DistanceRecord) error) error {
	s.mu.RLock()
	snapshot := make([]domain.DistanceRecord, len(s.records))
	copy(snapshot, s.records)
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return errStoreClosed
	}

	for _, rec := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, errStoreClosed
	}
	return len(s.records), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
