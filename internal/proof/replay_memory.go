package proof

import (
	"context"
	"sync"
	"time"
)

// MemoryReplayStore is the single-process replay cache. Expired entries are
// lazily evicted on access.
type MemoryReplayStore struct {
	mu       sync.Mutex
	consumed map[string]time.Time
	now      func() time.Time
}

func NewMemoryReplayStore() *MemoryReplayStore {
	return &MemoryReplayStore{
		consumed: make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *MemoryReplayStore) Consume(_ context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if expiry, ok := s.consumed[fingerprint]; ok && now.Before(expiry) {
		return false, nil
	}
	s.consumed[fingerprint] = now.Add(ttl)
	return true, nil
}
