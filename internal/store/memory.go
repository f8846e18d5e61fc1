package store

import (
	"context"
	"sync"
	"time"

	"github.com/feral-file/ff-transfer-alert/internal/adapter"
	"github.com/feral-file/ff-transfer-alert/internal/domain"
)

type memoryStore struct {
	mu      sync.Mutex
	clock   adapter.Clock
	entries map[domain.DedupKey]time.Time // key -> expiry
}

// NewMemoryStore creates an in-process store. Entries do not survive a restart.
func NewMemoryStore(clock adapter.Clock) Store {
	return &memoryStore{
		clock:   clock,
		entries: make(map[domain.DedupKey]time.Time),
	}
}

func (s *memoryStore) Seen(_ context.Context, key domain.DedupKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked(key), nil
}

func (s *memoryStore) Mark(_ context.Context, key domain.DedupKey, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = s.clock.Now().Add(ttl)
	return nil
}

func (s *memoryStore) MarkIfAbsent(_ context.Context, key domain.DedupKey, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.liveLocked(key) {
		return false, nil
	}
	s.entries[key] = s.clock.Now().Add(ttl)
	return true, nil
}

func (s *memoryStore) Ping(context.Context) error {
	return nil
}

// PurgeExpired drops expired entries so the map does not grow without bound
func (s *memoryStore) PurgeExpired(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	var purged int64
	for key, expiry := range s.entries {
		if !now.Before(expiry) {
			delete(s.entries, key)
			purged++
		}
	}
	return purged, nil
}

func (s *memoryStore) liveLocked(key domain.DedupKey) bool {
	expiry, ok := s.entries[key]
	return ok && s.clock.Now().Before(expiry)
}
