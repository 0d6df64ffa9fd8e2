// Package tiercache implements a two-tier cache for rate-limited market-data
// APIs: a process-local tier served without I/O, backed by a shared store
// (typically Redis) that outlives the process and is visible to sibling
// instances. Freshness policy is resolved per data category from a static
// strategy catalog, and the cache always fails open: a shared-tier outage
// degrades to a miss, never to a request error.
//
// Components:
//   - shared.Store: durable byte store with TTLs (Redis, or an in-memory fake).
//   - LocalTier[V]: process-local store with per-entry expiry and counters.
//   - codec.Codec[V]: (de)serializes V <-> []byte at the shared-tier boundary.
//   - Catalog: category -> {TTL, priority, warming, fallback TTL}.
//
// Keys are derived, never hand-built:
//
//	key := cache.DeriveKey("market_overview", map[string]any{
//	    "limit":      10,
//	    "categories": []string{"dex", "lending"},
//	})
//	// => "defi:market:market_overview:<128-bit hash>"
//
// Read path: local tier, then shared tier (repopulating local on a hit), then
// miss. Write path: local first (read-your-own-write), then shared plus a
// metadata record and, when the strategy allows, a longer-lived stale copy
// used by GetOrFetch when the upstream fetch fails.
//
// Background jobs (warming, metadata GC, local sweep) start at construction
// and stop on Close.
package tiercache
