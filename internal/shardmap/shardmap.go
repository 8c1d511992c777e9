// Package shardmap provides a string-keyed concurrent map split across
// independently locked shards.
//
// # Atomicity
//
// Every operation touches exactly one shard. Compute runs the caller's
// function while the shard lock is held, so read-modify-write sequences on a
// single key are linearizable without an external lock. Functions passed to
// Compute and DeleteIf must not call back into the same Map.
package shardmap

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// DefaultShards is used when New receives a non-positive shard count.
const DefaultShards = 64

type shard[V any] struct {
	mu    sync.Mutex
	items map[string]V
}

// Map is a sharded map safe for concurrent use.
type Map[V any] struct {
	shards []*shard[V]
	mask   uint64
}

// New returns a map with shards rounded up to the next power of two.
func New[V any](shards int) *Map[V] {
	if shards <= 0 {
		shards = DefaultShards
	}
	n := 1
	for n < shards {
		n <<= 1
	}
	m := &Map[V]{
		shards: make([]*shard[V], n),
		mask:   uint64(n - 1),
	}
	for i := range m.shards {
		m.shards[i] = &shard[V]{items: make(map[string]V)}
	}
	return m
}

func (m *Map[V]) shardFor(key string) *shard[V] {
	return m.shards[xxhash.Sum64String(key)&m.mask]
}

// Get returns the value stored for key.
func (m *Map[V]) Get(key string) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	v, ok := s.items[key]
	s.mu.Unlock()
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (m *Map[V]) Set(key string, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
}

// Delete removes key and reports whether it was present.
func (m *Map[V]) Delete(key string) bool {
	s := m.shardFor(key)
	s.mu.Lock()
	_, ok := s.items[key]
	delete(s.items, key)
	s.mu.Unlock()
	return ok
}

// Compute atomically replaces the value for key with the result of fn.
// fn receives the current value and whether it exists. When keep is false
// the key is removed. Compute returns what fn returned.
func (m *Map[V]) Compute(key string, fn func(cur V, ok bool) (next V, keep bool)) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.items[key]
	next, keep := fn(cur, ok)
	if keep {
		s.items[key] = next
	} else if ok {
		delete(s.items, key)
	}
	return next, keep
}

// DeleteIf removes every entry for which pred returns true and returns the
// number removed. Shards are visited one at a time.
func (m *Map[V]) DeleteIf(pred func(key string, value V) bool) int {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if pred(k, v) {
				delete(s.items, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Range calls fn for every entry until fn returns false. The view is
// per-shard consistent only.
func (m *Map[V]) Range(fn func(key string, value V) bool) {
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.mu.Unlock()
				return
			}
		}
		s.mu.Unlock()
	}
}

// Len returns the number of stored entries.
func (m *Map[V]) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.Lock()
		n += len(s.items)
		s.mu.Unlock()
	}
	return n
}
