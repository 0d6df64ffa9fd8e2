// Package bigcache adapts allegro/bigcache to the local tier contract.
// bigcache only supports a global life window, so each entry carries its own
// expiry in an envelope frame; entries that outlive their envelope TTL are
// deleted on access and re-counted as misses.
package bigcache

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/defilytics/tiercache/codec"
	"github.com/defilytics/tiercache/internal/envelope"
	"github.com/defilytics/tiercache/local"
)

type Config struct {
	// LifeWindow is bigcache's global upper bound on entry lifetime. Set it
	// above the longest strategy TTL; per-entry expiry is enforced by the
	// envelope.
	LifeWindow         time.Duration
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
}

// Cache is a bigcache-backed local tier. Values pass through the codec since
// bigcache stores bytes.
type Cache[V any] struct {
	c     *bc.BigCache
	codec codec.Codec[V]
	now   func() time.Time

	// hits counted by bigcache that turned out to be envelope-expired
	expired atomic.Uint64
	// entries the codec could not round-trip
	dropped atomic.Uint64
}

func New[V any](cfg Config, cd codec.Codec[V]) (*Cache[V], error) {
	return NewWithClock(cfg, cd, time.Now)
}

// NewWithClock injects the time source used for envelope expiry. Tests use
// it to drive expiry without sleeping.
func NewWithClock[V any](cfg Config, cd codec.Codec[V], now func() time.Time) (*Cache[V], error) {
	conf := bc.DefaultConfig(cfg.LifeWindow)
	conf.StatsEnabled = true
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Cache[V]{c: c, codec: cd, now: now}, nil
}

func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	raw, err := c.c.Get(key)
	if err != nil {
		return zero, false // bigcache already counted the miss
	}
	exp, payload, err := envelope.Decode(raw)
	if err != nil {
		_ = c.c.Delete(key)
		c.dropped.Add(1)
		return zero, false
	}
	if c.now().After(exp) {
		_ = c.c.Delete(key)
		c.expired.Add(1)
		return zero, false
	}
	v, err := c.codec.Decode(payload)
	if err != nil {
		_ = c.c.Delete(key)
		c.dropped.Add(1)
		return zero, false
	}
	return v, true
}

func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	payload, err := c.codec.Encode(value)
	if err != nil {
		return // nothing sensible to store
	}
	_ = c.c.Set(key, envelope.Encode(c.now().Add(ttl), payload))
}

func (c *Cache[V]) Delete(key string) bool {
	return c.c.Delete(key) == nil
}

func (c *Cache[V]) DeleteMatching(substr string) int {
	n := 0
	for _, k := range c.keys() {
		if strings.Contains(k, substr) && c.c.Delete(k) == nil {
			n++
		}
	}
	return n
}

func (c *Cache[V]) Sweep() int {
	n := 0
	now := c.now()
	for _, k := range c.keys() {
		raw, err := c.c.Get(k)
		if err != nil {
			continue
		}
		exp, _, err := envelope.Decode(raw)
		if (err != nil || now.After(exp)) && c.c.Delete(k) == nil {
			n++
		}
	}
	return n
}

func (c *Cache[V]) Stats() local.Stats {
	bs := c.c.Stats()
	adj := c.expired.Load() + c.dropped.Load()

	hits := uint64(bs.Hits)
	if hits >= adj {
		hits -= adj
	} else {
		hits = 0
	}
	misses := uint64(bs.Misses) + adj

	st := local.Stats{Keys: c.c.Len(), Hits: hits, Misses: misses}
	if total := hits + misses; total > 0 {
		st.HitRate = float64(hits) / float64(total)
	}
	return st
}

func (c *Cache[V]) Close() error { return c.c.Close() }

// keys snapshots current entry keys via bigcache's iterator.
func (c *Cache[V]) keys() []string {
	var out []string
	it := c.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			continue
		}
		out = append(out, e.Key())
	}
	return out
}
