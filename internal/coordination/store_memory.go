package coordination

import (
	"context"
	"sync"
	"time"

	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.CoordinationID]Coordination
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.CoordinationID]Coordination)}
}

func (s *InMemoryStore) Create(_ context.Context, c Coordination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[c.ID]; ok {
		return sentinel.ErrConflict
	}
	s.records[c.ID] = c
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, coordinationID id.CoordinationID) (Coordination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.records[coordinationID]; ok {
		return c, nil
	}
	return Coordination{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Update(_ context.Context, c Coordination) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.records[c.ID] = c
	return nil
}

func (s *InMemoryStore) Anonymize(_ context.Context, coordinationID id.CoordinationID, erasure string, at time.Time) (id.PseudonymID, id.Tier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.records[coordinationID]
	if !ok {
		return id.PseudonymID{}, "", sentinel.ErrNotFound
	}
	if c.FinalizedAt != nil {
		return id.PseudonymID{}, "", sentinel.ErrAlreadyUsed
	}
	if !c.State.Terminal() {
		return id.PseudonymID{}, "", sentinel.ErrInvalidState
	}

	pseudonym := c.Request.PseudonymID
	tier := c.Request.Tier

	c.Request.PseudonymID = id.PseudonymID{}
	c.Transcript = nil
	c.FinalizedAt = &at
	c.UpdatedAt = at
	c.Erasure = erasure
	s.records[coordinationID] = c

	return pseudonym, tier, nil
}

func (s *InMemoryStore) ListUnfinalizedTerminal(_ context.Context, limit int) ([]Coordination, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Coordination
	for _, c := range s.records {
		if c.State.Terminal() && c.FinalizedAt == nil {
			out = append(out, c)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
