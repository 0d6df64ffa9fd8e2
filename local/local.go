// Package local implements the process-local cache tier: a mutex-guarded map
// with per-entry expiry, hit/miss counters, and lazy plus swept eviction.
// None of its operations perform I/O or fail.
package local

import (
	"strings"
	"sync"
	"time"
)

// Stats are cumulative counters since construction or the last Clear.
type Stats struct {
	Keys   int
	Hits   uint64
	Misses uint64
	// HitRate is Hits / (Hits + Misses); 0 when no lookups happened yet.
	HitRate float64
}

type entry[V any] struct {
	val       V
	expiresAt time.Time
}

// Store is a local tier holding already-decoded values. Safe for concurrent
// use; the map and counters are guarded by one mutex so the
// check-expiry-then-delete and insert-then-count sequences stay atomic.
type Store[V any] struct {
	mu      sync.Mutex
	entries map[string]entry[V]
	hits    uint64
	misses  uint64
	now     func() time.Time
}

func New[V any]() *Store[V] {
	return NewWithClock[V](time.Now)
}

// NewWithClock injects the time source; tests use it to drive expiry without
// sleeping.
func NewWithClock[V any](now func() time.Time) *Store[V] {
	return &Store[V]{
		entries: make(map[string]entry[V]),
		now:     now,
	}
}

// Get returns the live value for key. An entry past its expiry is deleted on
// access and counted as a miss.
func (s *Store[V]) Get(key string) (V, bool) {
	var zero V
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		s.misses++
		return zero, false
	}
	if s.now().After(e.expiresAt) {
		delete(s.entries, key)
		s.misses++
		return zero, false
	}
	s.hits++
	return e.val, true
}

// Set stores value under key for ttl, overwriting any existing entry.
func (s *Store[V]) Set(key string, value V, ttl time.Duration) {
	s.mu.Lock()
	s.entries[key] = entry[V]{val: value, expiresAt: s.now().Add(ttl)}
	s.mu.Unlock()
}

// Delete removes key and reports whether it was present.
func (s *Store[V]) Delete(key string) bool {
	s.mu.Lock()
	_, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return ok
}

// DeleteMatching removes every key containing substr and returns how many
// entries were removed.
func (s *Store[V]) DeleteMatching(substr string) int {
	n := 0
	s.mu.Lock()
	for k := range s.entries {
		if strings.Contains(k, substr) {
			delete(s.entries, k)
			n++
		}
	}
	s.mu.Unlock()
	return n
}

// Sweep proactively deletes expired entries so memory is not held by keys
// nobody reads again. Returns the number of entries removed.
func (s *Store[V]) Sweep() int {
	n := 0
	s.mu.Lock()
	now := s.now()
	for k, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, k)
			n++
		}
	}
	s.mu.Unlock()
	return n
}

// Clear drops all entries and resets the counters.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]entry[V])
	s.hits, s.misses = 0, 0
	s.mu.Unlock()
}

func (s *Store[V]) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Stats{
		Keys:   len(s.entries),
		Hits:   s.hits,
		Misses: s.misses,
	}
	if total := s.hits + s.misses; total > 0 {
		st.HitRate = float64(s.hits) / float64(total)
	}
	return st
}
