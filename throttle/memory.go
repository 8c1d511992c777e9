package throttle

import (
	"context"
	"time"

	"github.com/MrEthical07/goAuthGate/internal/shardmap"
)

// MemoryStore keeps counters in process memory.
type MemoryStore struct {
	counters *shardmap.Map[Counter]
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: shardmap.New[Counter](shardmap.DefaultShards)}
}

// Current implements Store.
func (s *MemoryStore) Current(_ context.Context, key string, now time.Time, window time.Duration) (Counter, bool, error) {
	c, ok := s.counters.Compute(key, func(cur Counter, ok bool) (Counter, bool) {
		if !ok || elapsed(cur, now, window) {
			return Counter{}, false
		}
		return cur, true
	})
	return c, ok, nil
}

// Increment implements Store.
func (s *MemoryStore) Increment(_ context.Context, key string, now time.Time, window time.Duration) (Counter, error) {
	c, _ := s.counters.Compute(key, func(cur Counter, ok bool) (Counter, bool) {
		if !ok || elapsed(cur, now, window) {
			return Counter{Count: 1, WindowStart: now}, true
		}
		cur.Count++
		return cur, true
	})
	return c, nil
}

// Reset implements Store.
func (s *MemoryStore) Reset(_ context.Context, keys ...string) error {
	for _, k := range keys {
		s.counters.Delete(k)
	}
	return nil
}

// Len implements Store.
func (s *MemoryStore) Len(context.Context) (int, error) {
	return s.counters.Len(), nil
}

// SweepExpired drops counters whose window has elapsed at now.
func (s *MemoryStore) SweepExpired(now time.Time, window time.Duration) int {
	return s.counters.DeleteIf(func(_ string, c Counter) bool {
		return elapsed(c, now, window)
	})
}
