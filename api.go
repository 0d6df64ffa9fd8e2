package tiercache

import (
	"context"
	"time"

	"github.com/defilytics/tiercache/codec"
	"github.com/defilytics/tiercache/local"
	"github.com/defilytics/tiercache/shared"
)

// FetchFunc produces a fresh value from the upstream data provider.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// LocalTier is the process-local store consulted before the shared tier.
// Implementations hold decoded values, never fail, and must be safe for
// concurrent use. local.Store is the default; local/bigcache adapts an
// eviction-aware store to the same contract.
type LocalTier[V any] interface {
	Get(key string) (V, bool)
	Set(key string, value V, ttl time.Duration)
	Delete(key string) bool
	DeleteMatching(substr string) int
	Sweep() int
	Stats() local.Stats
}

// Cache is the tiered cache surface exposed to request handlers. Get and Set
// never surface tier errors: a failing shared tier degrades to a miss (Get)
// or a local-only write (Set), and the failure is logged.
type Cache[V any] interface {
	// Get returns the cached value for key, consulting the local tier and
	// then the shared tier (repopulating local on a shared hit).
	Get(ctx context.Context, key string) (V, bool)

	// Set stores value under key with the TTL of the key's category strategy.
	Set(ctx context.Context, key string, value V)

	// SetWithTTL is Set with an explicit TTL override.
	SetWithTTL(ctx context.Context, key string, value V, ttl time.Duration)

	// GetOrFetch is a cache-aside helper: on a miss it invokes fetch and
	// caches the result. When fetch fails it falls back to the shared tier's
	// stale copy if one survives; only if no stale copy exists is the fetch
	// error returned.
	GetOrFetch(ctx context.Context, key string, fetch FetchFunc[V]) (V, bool, error)

	// DeriveKey builds a deterministic namespaced key for an endpoint and
	// parameter bag.
	DeriveKey(endpoint string, params map[string]any) string

	// InvalidatePattern removes every key containing pattern from both tiers
	// and returns the per-tier removal counts. Shared-tier failures are
	// logged; local removals stand regardless.
	InvalidatePattern(ctx context.Context, pattern string) (localRemoved, sharedRemoved int)

	// Stats aggregates local counters, shared introspection, and the
	// strategy catalog. Never fails.
	Stats(ctx context.Context) Stats

	// HealthCheck round-trips an ephemeral probe through each tier.
	HealthCheck(ctx context.Context) Health

	// Close stops background jobs and closes the shared tier.
	Close(ctx context.Context) error
}

// Options configure a Cache. App, Domain, Shared, and Codec are required;
// everything else has defaults.
type Options[V any] struct {
	// App and Domain namespace every derived key: "<app>:<domain>:...".
	App    string
	Domain string

	Shared shared.Store
	Codec  codec.Codec[V]

	// Local tier; nil => local.New[V]().
	Local LocalTier[V]
	// Catalog; nil => DefaultCatalog().
	Catalog *Catalog
	// Logger; nil => NopLogger.
	Logger Logger

	// Warmers are per-category refresh callbacks, fixed at construction.
	// A warmer only runs when its category's strategy has WarmingEnabled.
	Warmers map[string]WarmFunc

	// Background job intervals; 0 => 5m / 1h / 10m.
	WarmingInterval    time.Duration
	MetadataGCInterval time.Duration
	SweepInterval      time.Duration

	// MetadataTTL for "meta:<key>" records; 0 => 24h.
	MetadataTTL time.Duration

	// DisableBackground skips starting the periodic jobs. Tests drive the
	// cycles directly.
	DisableBackground bool
}

// New constructs a Cache and starts its background jobs.
func New[V any](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
