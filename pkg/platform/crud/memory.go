package crud

import (
	"context"
	"slices"
	"sync"

	"credstore/pkg/platform/sentinel"
)

// InMemory is a Store backed by a map with monotonic ids starting at 1.
type InMemory[T Entity[T]] struct {
	mu      sync.RWMutex
	records map[int64]T
	nextID  int64
}

func NewInMemory[T Entity[T]]() *InMemory[T] {
	return &InMemory[T]{records: make(map[int64]T), nextID: 1}
}

func (s *InMemory[T]) GetByID(_ context.Context, id int64) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		var zero T
		return zero, sentinel.ErrNotFound
	}
	return record, nil
}

// GetAll returns records ordered by id, skipping Offset then taking Limit.
func (s *InMemory[T]) GetAll(_ context.Context, page Page) ([]T, error) {
	s.mu.RLock()
	ids := make([]int64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	if page.Offset != nil {
		if *page.Offset >= uint64(len(ids)) {
			ids = ids[:0]
		} else {
			ids = ids[*page.Offset:]
		}
	}
	if page.Limit != nil && *page.Limit < uint64(len(ids)) {
		ids = ids[:*page.Limit]
	}

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.records[id])
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *InMemory[T]) Create(_ context.Context, record T) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.records[id] = record.WithID(id)
	return id, nil
}

func (s *InMemory[T]) Update(_ context.Context, record T) error {
	id, ok := record.RecordID()
	if !ok {
		return sentinel.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[id]; !exists {
		return sentinel.ErrNotFound
	}
	s.records[id] = record
	return nil
}

func (s *InMemory[T]) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, id)
	return nil
}

// Count returns how many records satisfy match.
func (s *InMemory[T]) Count(match func(T) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, record := range s.records {
		if match(record) {
			n++
		}
	}
	return n
}
