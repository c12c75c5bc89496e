package reveal

import (
	"context"
	"sync"

	id "veil/pkg/domain"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.CoordinationID][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.CoordinationID][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.CoordinationID] = append(s.events[event.CoordinationID], event)
	return nil
}

func (s *InMemoryStore) ListByCoordination(_ context.Context, coordinationID id.CoordinationID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[coordinationID]
	out := make([]Event, len(events))
	copy(out, events)
	return out, nil
}
