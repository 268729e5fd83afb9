package limiter

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type memoryItem struct {
	value    int64
	expireAt time.Time
}

// MemoryStore in-process store; expired keys are dropped lazily on read
type MemoryStore struct {
	mu    sync.RWMutex
	data  map[string]memoryItem
	clock clockwork.Clock
}

// NewMemoryStore creates a memory store
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		data:  make(map[string]memoryItem),
		clock: clock,
	}
}

// GetInt64 get integer value
func (s *MemoryStore) GetInt64(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	item, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return 0, ErrKeyNotFound
	}
	if !item.expireAt.IsZero() && !s.clock.Now().Before(item.expireAt) {
		s.mu.Lock()
		delete(s.data, key)
		s.mu.Unlock()
		return 0, ErrKeyNotFound
	}
	return item.value, nil
}

// SetInt64 set integer value
func (s *MemoryStore) SetInt64(_ context.Context, key string, value int64, ttl time.Duration) error {
	item := memoryItem{value: value}
	if ttl > 0 {
		item.expireAt = s.clock.Now().Add(ttl)
	}
	s.mu.Lock()
	s.data[key] = item
	s.mu.Unlock()
	return nil
}

// Del delete keys
func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

// Len number of stored keys, expired ones included
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Close no-op
func (s *MemoryStore) Close() error {
	return nil
}
