package tiercache

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/defilytics/tiercache/codec"
	"github.com/defilytics/tiercache/local"
	"github.com/defilytics/tiercache/shared"
)

const (
	defaultWarmingInterval = 5 * time.Minute
	defaultGCInterval      = time.Hour
	defaultSweepInterval   = 10 * time.Minute

	probeTTL = 30 * time.Second
)

type cache[V any] struct {
	keys    KeyBuilder
	local   LocalTier[V]
	shared  shared.Store
	codec   codec.Codec[V]
	catalog *Catalog
	log     Logger

	warmers map[string]WarmFunc
	metaTTL time.Duration

	warmInterval  time.Duration
	gcInterval    time.Duration
	sweepInterval time.Duration

	// per-job overlap guards: a cycle that outlives its interval is skipped,
	// not queued or run concurrently
	warmRunning  atomic.Bool
	gcRunning    atomic.Bool
	sweepRunning atomic.Bool

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if opts.App == "" || opts.Domain == "" {
		return nil, fmt.Errorf("tiercache: app and domain are required")
	}
	if opts.Shared == nil {
		return nil, fmt.Errorf("tiercache: shared tier is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("tiercache: codec is required")
	}

	c := &cache[V]{
		keys:    KeyBuilder{App: opts.App, Domain: opts.Domain},
		local:   opts.Local,
		shared:  opts.Shared,
		codec:   opts.Codec,
		warmers: opts.Warmers,
		stopCh:  make(chan struct{}),
	}

	// defaults
	if c.local == nil {
		c.local = local.New[V]()
	}
	if c.catalog = opts.Catalog; c.catalog == nil {
		c.catalog = DefaultCatalog()
	}
	c.log = coalesce[Logger](opts.Logger, NopLogger{})
	c.metaTTL = coalesce[time.Duration](opts.MetadataTTL, defaultMetadataTTL)
	c.warmInterval = coalesce[time.Duration](opts.WarmingInterval, defaultWarmingInterval)
	c.gcInterval = coalesce[time.Duration](opts.MetadataGCInterval, defaultGCInterval)
	c.sweepInterval = coalesce[time.Duration](opts.SweepInterval, defaultSweepInterval)

	if !opts.DisableBackground {
		c.runPeriodic("warming", c.warmInterval, &c.warmRunning, c.runWarmingCycle)
		c.runPeriodic("metadata-gc", c.gcInterval, &c.gcRunning, c.collectMetadata)
		c.runPeriodic("local-sweep", c.sweepInterval, &c.sweepRunning, func(context.Context) {
			if n := c.local.Sweep(); n > 0 {
				c.log.Debug("local sweep removed expired entries", Fields{"removed": n})
			}
		})
	}
	return c, nil
}

func (c *cache[V]) DeriveKey(endpoint string, params map[string]any) string {
	return c.keys.DeriveKey(endpoint, params)
}

func (c *cache[V]) Get(ctx context.Context, key string) (V, bool) {
	var zero V
	if v, ok := c.local.Get(key); ok {
		return v, true
	}

	raw, ok, err := c.shared.Get(ctx, key)
	if err != nil {
		// fail open: the caller refetches from the origin
		c.log.Error("shared tier get failed", Fields{"key": key, "err": err})
		return zero, false
	}
	if !ok {
		return zero, false
	}

	v, err := c.codec.Decode(raw)
	if err != nil {
		// self-heal: drop the undecodable entry so it stops hitting
		c.log.Error("dropping undecodable shared entry", Fields{"key": key, "err": err})
		if _, delErr := c.shared.Del(ctx, key); delErr != nil {
			c.log.Debug("self-heal delete failed", Fields{"key": key, "err": delErr})
		}
		return zero, false
	}

	// Repopulate local with the strategy TTL; the entry's original remaining
	// lifetime is not tracked across tiers.
	c.local.Set(key, v, c.catalog.ResolveKey(key).TTL)
	return v, true
}

func (c *cache[V]) Set(ctx context.Context, key string, value V) {
	c.SetWithTTL(ctx, key, value, 0)
}

func (c *cache[V]) SetWithTTL(ctx context.Context, key string, value V, ttl time.Duration) {
	strat := c.catalog.ResolveKey(key)
	if ttl <= 0 {
		ttl = strat.TTL
	}

	// Local first: a Get from the same caller observes the new value even if
	// every shared write below fails.
	c.local.Set(key, value, ttl)

	raw, err := c.codec.Encode(value)
	if err != nil {
		c.log.Error("encode failed; shared tier skipped", Fields{"key": key, "err": err})
		return
	}
	if err := c.shared.SetWithTTL(ctx, key, raw, ttl); err != nil {
		c.log.Warn("shared tier set failed", Fields{"key": key, "err": err})
	} else if strat.FallbackTTL > ttl {
		if err := c.shared.SetWithTTL(ctx, staleKey(key), raw, strat.FallbackTTL); err != nil {
			c.log.Debug("stale copy write failed", Fields{"key": key, "err": err})
		}
	}

	c.writeMetadata(ctx, key, strat, ttl, len(raw))
}

func (c *cache[V]) GetOrFetch(ctx context.Context, key string, fetch FetchFunc[V]) (V, bool, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, true, nil
	}

	v, err := fetch(ctx)
	if err == nil {
		c.Set(ctx, key, v)
		return v, true, nil
	}

	// Upstream is down; a stale copy beats an error page.
	if sv, ok := c.staleGet(ctx, key); ok {
		c.log.Warn("serving stale value after fetch failure", Fields{"key": key, "err": err})
		return sv, true, nil
	}
	var zero V
	return zero, false, err
}

// staleGet reads the shared tier's fallback copy. Misses and errors both
// report absent; there is nothing to degrade to past this point.
func (c *cache[V]) staleGet(ctx context.Context, key string) (V, bool) {
	var zero V
	raw, ok, err := c.shared.Get(ctx, staleKey(key))
	if err != nil || !ok {
		if err != nil {
			c.log.Debug("stale copy read failed", Fields{"key": key, "err": err})
		}
		return zero, false
	}
	v, err := c.codec.Decode(raw)
	if err != nil {
		c.log.Debug("dropping undecodable stale copy", Fields{"key": key, "err": err})
		_, _ = c.shared.Del(ctx, staleKey(key))
		return zero, false
	}
	return v, true
}

func (c *cache[V]) writeMetadata(ctx context.Context, key string, strat Strategy, ttl time.Duration, size int) {
	b, err := encodeMetadata(Metadata{
		Category:   CategoryFromKey(key),
		Priority:   strat.Priority,
		StoredAt:   time.Now().UTC(),
		TTLSeconds: int64(ttl / time.Second),
		SizeBytes:  size,
	})
	if err != nil {
		c.log.Warn("metadata encode failed", Fields{"key": key, "err": err})
		return
	}
	if err := c.shared.SetWithTTL(ctx, metaKey(key), b, c.metaTTL); err != nil {
		c.log.Warn("metadata write failed", Fields{"key": key, "err": err})
	}
}

func (c *cache[V]) InvalidatePattern(ctx context.Context, pattern string) (int, int) {
	localRemoved := c.local.DeleteMatching(pattern)

	// The scan also catches the derived meta: and stale: records, which
	// contain the value key as a substring.
	keys, err := c.shared.ScanKeys(ctx, "*"+pattern+"*")
	if err != nil {
		c.log.Error("shared tier scan failed during invalidation", Fields{
			"pattern": pattern, "localRemoved": localRemoved, "err": err,
		})
		return localRemoved, 0
	}

	sharedRemoved := 0
	if len(keys) > 0 {
		n, err := c.shared.Del(ctx, keys...)
		if err != nil {
			c.log.Error("shared tier delete failed during invalidation", Fields{
				"pattern": pattern, "localRemoved": localRemoved, "matched": len(keys), "err": err,
			})
			return localRemoved, 0
		}
		sharedRemoved = int(n)
	}

	c.log.Info("pattern invalidated", Fields{
		"pattern": pattern, "localRemoved": localRemoved, "sharedRemoved": sharedRemoved,
	})
	return localRemoved, sharedRemoved
}

func (c *cache[V]) Stats(ctx context.Context) Stats {
	st := Stats{
		Local:      c.local.Stats(),
		Categories: c.catalog.Summary(),
	}
	info, err := c.shared.Info(ctx)
	if err != nil {
		c.log.Warn("shared tier introspection failed", Fields{"err": err})
		return st
	}
	st.Shared = SharedStats{
		Available:        true,
		MemoryUsedBytes:  info.MemoryUsedBytes,
		ConnectedClients: info.ConnectedClients,
	}
	return st
}

func (c *cache[V]) HealthCheck(ctx context.Context) Health {
	probe := c.keys.App + ":" + c.keys.Domain + ":probe:" + uuid.NewString()

	// Local tier: presence round-trip with a zero value (V need not be
	// comparable).
	var zero V
	c.local.Set(probe, zero, probeTTL)
	_, localOK := c.local.Get(probe)
	c.local.Delete(probe)

	// Shared tier: write, read back, compare bytes. The probe is deleted
	// regardless of outcome.
	payload := []byte(probe)
	sharedOK := false
	if err := c.shared.SetWithTTL(ctx, probe, payload, probeTTL); err == nil {
		if got, ok, err := c.shared.Get(ctx, probe); err == nil && ok && bytes.Equal(got, payload) {
			sharedOK = true
		}
	}
	if _, err := c.shared.Del(ctx, probe); err != nil {
		c.log.Debug("health probe delete failed", Fields{"err": err})
	}

	h := Health{Status: healthStatus(localOK, sharedOK), LocalOK: localOK, SharedOK: sharedOK}
	if h.Status != StatusHealthy {
		c.log.Warn("health check degraded", Fields{"local": localOK, "shared": sharedOK})
	}
	return h
}

// collectMetadata removes metadata records whose own TTL has lapsed. The
// backing store usually expires them on its own; this pass reaps strays that
// were written without an expiry or that the store has not reclaimed yet.
func (c *cache[V]) collectMetadata(ctx context.Context) {
	keys, err := c.shared.ScanKeys(ctx, metaPrefix+"*")
	if err != nil {
		c.log.Warn("metadata scan failed", Fields{"err": err})
		return
	}

	var expired []string
	for _, k := range keys {
		d, ok, err := c.shared.TTLRemaining(ctx, k)
		if err != nil {
			c.log.Warn("metadata ttl lookup failed", Fields{"key": k, "err": err})
			return
		}
		if ok && d <= 0 {
			expired = append(expired, k)
		}
	}
	if len(expired) == 0 {
		return
	}
	n, err := c.shared.Del(ctx, expired...)
	if err != nil {
		c.log.Warn("metadata gc delete failed", Fields{"expired": len(expired), "err": err})
		return
	}
	c.log.Debug("metadata gc complete", Fields{"scanned": len(keys), "removed": n})
}

// runPeriodic supervises one background job: tick, skip when the previous
// cycle is still running, stop on Close.
func (c *cache[V]) runPeriodic(name string, every time.Duration, running *atomic.Bool, fn func(context.Context)) {
	if every <= 0 {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if !running.CompareAndSwap(false, true) {
					c.log.Debug("previous cycle still running; skipped", Fields{"job": name})
					continue
				}
				ctx, cancel := context.WithTimeout(context.Background(), every)
				fn(ctx)
				cancel()
				running.Store(false)
			case <-c.stopCh:
				return
			}
		}
	}()
}

func (c *cache[V]) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		close(c.stopCh)
		c.wg.Wait()
	})
	return c.shared.Close(ctx)
}
