// Package shared defines the durable, network-backed cache tier. It is the
// only I/O-bound component: every operation can be slow or fail, and callers
// must treat errors as explicit signals, never as a false "absent".
//
// The keyspaces "meta:" and "stale:" under the cache's namespace are owned by
// tiercache. External code must not write values under these prefixes.
package shared

import (
	"context"
	"time"
)

// Info is backing-store introspection used for statistics.
type Info struct {
	MemoryUsedBytes  int64
	ConnectedClients int64
}

// Store is a byte store with TTLs over a network protocol. Implementations
// must be safe for concurrent use and byte-for-byte transparent: Get returns
// exactly the []byte previously passed to SetWithTTL for the same key.
type Store interface {
	// Get returns (value, true, nil) on hit and (nil, false, nil) on miss.
	// Transport or server errors are returned, not mapped to a miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// SetWithTTL stores value under key. ttl <= 0 stores without expiry.
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Del removes keys and returns how many existed.
	Del(ctx context.Context, keys ...string) (int64, error)

	// ScanKeys returns every key matching pattern, where '*' matches any
	// substring (glob-style).
	ScanKeys(ctx context.Context, pattern string) ([]string, error)

	// TTLRemaining reports the remaining lifetime of key. ok is false when
	// the key does not exist; a negative duration with ok=true means the key
	// exists without an expiry.
	TTLRemaining(ctx context.Context, key string) (time.Duration, bool, error)

	// Info returns store introspection for statistics.
	Info(ctx context.Context) (Info, error)

	// Close releases resources.
	Close(ctx context.Context) error
}
