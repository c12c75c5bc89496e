package identity

import (
	"context"
	"sync"
	"time"

	id "veil/pkg/domain"
	"veil/pkg/platform/sentinel"
)

// In-memory stores keep the initial implementation lightweight and testable.
// They intentionally favor clarity over performance.
type InMemoryStore struct {
	mu         sync.RWMutex
	pseudonyms map[id.PseudonymID]Pseudonym
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{pseudonyms: make(map[id.PseudonymID]Pseudonym)}
}

func (s *InMemoryStore) Save(_ context.Context, p Pseudonym) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pseudonyms[p.ID] = p
	return nil
}

func (s *InMemoryStore) FindActive(_ context.Context, userID id.UserID, tier id.Tier) (Pseudonym, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.pseudonyms {
		if p.UserID == userID && p.Tier == tier && p.Active() {
			return p, nil
		}
	}
	return Pseudonym{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByID(_ context.Context, pseudonymID id.PseudonymID) (Pseudonym, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.pseudonyms[pseudonymID]; ok {
		return p, nil
	}
	return Pseudonym{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) Revoke(_ context.Context, pseudonymID id.PseudonymID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pseudonyms[pseudonymID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if p.RevokedAt == nil {
		now := time.Now()
		p.RevokedAt = &now
		s.pseudonyms[pseudonymID] = p
	}
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, pseudonymID id.PseudonymID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pseudonyms[pseudonymID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.pseudonyms, pseudonymID)
	return nil
}

type InMemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[id.UserID]Profile
}

func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{profiles: make(map[id.UserID]Profile)}
}

func (s *InMemoryProfileStore) Save(_ context.Context, profile Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.UserID] = profile
	return nil
}

func (s *InMemoryProfileStore) FindByUser(_ context.Context, userID id.UserID) (Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[userID]; ok {
		return p, nil
	}
	return Profile{}, sentinel.ErrNotFound
}
