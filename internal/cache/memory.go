package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryCounterStore is an in-process counter store with per-key expiry. It
// backs deterministic tests and single-node deployments without Redis. The
// Now hook lets tests advance the clock.
type MemoryCounterStore struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry

	Now func() time.Time
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		entries: make(map[string]*memoryEntry),
		Now:     time.Now,
	}
}

func (s *MemoryCounterStore) Get(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entries[key]
	if e == nil {
		return 0, nil
	}
	if !s.Now().Before(e.expiresAt) {
		delete(s.entries, key)
		return 0, nil
	}
	return e.count, nil
}

func (s *MemoryCounterStore) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	e := s.entries[key]
	if e == nil || !now.Before(e.expiresAt) {
		e = &memoryEntry{}
		s.entries[key] = e
	}
	e.count++
	e.expiresAt = now.Add(ttl)
	return e.count, nil
}

func (s *MemoryCounterStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryCounterStore) Close() error { return nil }
