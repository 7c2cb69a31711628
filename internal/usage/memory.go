package usage

import (
	"context"
	"sync"
	"time"
)

// MemoryTierStore is an in-memory TierStore for development and tests.
type MemoryTierStore struct {
	mu    sync.RWMutex
	tiers map[string]Tier
}

// NewMemoryTierStore creates a new in-memory tier store.
func NewMemoryTierStore() *MemoryTierStore {
	return &MemoryTierStore{tiers: make(map[string]Tier)}
}

func (s *MemoryTierStore) GetTier(_ context.Context, userID string) (Tier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.tiers[userID]; ok {
		return t, nil
	}
	return TierFree, nil
}

func (s *MemoryTierStore) SetTier(_ context.Context, userID string, tier Tier) error {
	if _, err := ParseTier(string(tier)); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tiers[userID] = tier
	return nil
}

// MemoryCounter is an in-memory CounterStore. Old days are never evicted.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewMemoryCounter creates a new in-memory counter store.
func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int)}
}

func (c *MemoryCounter) Count(_ context.Context, userID string, day time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[counterKey(userID, day)], nil
}

func (c *MemoryCounter) Increment(_ context.Context, userID string, day time.Time) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := counterKey(userID, day)
	c.counts[key]++
	return c.counts[key], nil
}

func counterKey(userID string, day time.Time) string {
	return userID + ":" + dayKey(day)
}
