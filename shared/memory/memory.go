// Package memory is an in-process shared.Store used in tests and local
// development. It mimics the durable tier's contract (TTLs, glob scans,
// introspection) without any network I/O.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/defilytics/tiercache/shared"
)

type entry struct {
	val []byte
	exp time.Time // zero => no expiry
}

type Store struct {
	mu  sync.Mutex
	m   map[string]entry
	now func() time.Time
}

var _ shared.Store = (*Store)(nil)

func New() *Store {
	return NewWithClock(time.Now)
}

// NewWithClock injects the time source so tests can drive expiry.
func NewWithClock(now func() time.Time) *Store {
	return &Store{m: make(map[string]entry), now: now}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && s.now().After(e.exp) {
		delete(s.m, key)
		return nil, false, nil
	}
	return e.val, true, nil
}

func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.m[key] = entry{val: value, exp: exp}
	s.mu.Unlock()
	return nil
}

func (s *Store) Del(_ context.Context, keys ...string) (int64, error) {
	var n int64
	s.mu.Lock()
	for _, k := range keys {
		if _, ok := s.m[k]; ok {
			delete(s.m, k)
			n++
		}
	}
	s.mu.Unlock()
	return n, nil
}

// ScanKeys matches against raw entries without applying lazy expiry, the way
// a SCAN pass over a real store surfaces keys that have not been reaped yet.
func (s *Store) ScanKeys(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for k := range s.m {
		if matchPattern(pattern, k) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) TTLRemaining(_ context.Context, key string) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	if !ok {
		return 0, false, nil
	}
	if e.exp.IsZero() {
		return -1, true, nil
	}
	return e.exp.Sub(s.now()), true, nil
}

func (s *Store) Info(context.Context) (shared.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var mem int64
	for k, e := range s.m {
		mem += int64(len(k) + len(e.val))
	}
	return shared.Info{MemoryUsedBytes: mem, ConnectedClients: 1}, nil
}

func (s *Store) Close(context.Context) error { return nil }

// Keys returns all stored keys regardless of expiry. Test helper.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.m))
	for k := range s.m {
		out = append(out, k)
	}
	return out
}

// matchPattern implements glob matching where '*' matches any substring.
// Literal segments must appear in order; the first and last segments anchor
// to the start and end of the key.
func matchPattern(pattern, key string) bool {
	segs := strings.Split(pattern, "*")
	if len(segs) == 1 {
		return pattern == key
	}
	if !strings.HasPrefix(key, segs[0]) {
		return false
	}
	rest := key[len(segs[0]):]
	for _, seg := range segs[1 : len(segs)-1] {
		if seg == "" {
			continue
		}
		i := strings.Index(rest, seg)
		if i < 0 {
			return false
		}
		rest = rest[i+len(seg):]
	}
	return strings.HasSuffix(rest, segs[len(segs)-1])
}
