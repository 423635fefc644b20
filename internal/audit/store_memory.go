package audit

import (
	"context"
	"sync"
)

type resourceKey struct {
	resource string
	id       int64
}

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[resourceKey][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[resourceKey][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := resourceKey{event.Resource, event.ResourceID}
	s.events[key] = append(s.events[key], event)
	return nil
}

func (s *InMemoryStore) ListByResource(_ context.Context, resource string, resourceID int64) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Event{}, s.events[resourceKey{resource, resourceID}]...), nil
}
