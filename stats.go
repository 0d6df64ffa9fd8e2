package tiercache

import (
	"time"

	"github.com/defilytics/tiercache/local"
)

// SharedStats is shared-tier introspection. Available is false when the
// backing store could not be reached; the numeric fields are then zero.
type SharedStats struct {
	Available        bool
	MemoryUsedBytes  int64
	ConnectedClients int64
}

// CategoryInfo is one row of the strategy catalog as reported by Stats.
type CategoryInfo struct {
	Category       string
	TTL            time.Duration
	Priority       Priority
	WarmingEnabled bool
}

// Stats aggregates local-tier counters, shared-tier introspection, and the
// strategy catalog. Recomputed on demand, never persisted.
type Stats struct {
	Local      local.Stats
	Shared     SharedStats
	Categories []CategoryInfo
}

// HealthStatus summarizes a HealthCheck outcome.
type HealthStatus string

const (
	// StatusHealthy: both tiers round-tripped the probe.
	StatusHealthy HealthStatus = "healthy"
	// StatusDegraded: exactly one tier failed the probe.
	StatusDegraded HealthStatus = "degraded"
	// StatusUnhealthy: neither tier round-tripped the probe.
	StatusUnhealthy HealthStatus = "unhealthy"
)

// Health is the result of a probe write/read/delete against each tier.
type Health struct {
	Status   HealthStatus
	LocalOK  bool
	SharedOK bool
}

func healthStatus(localOK, sharedOK bool) HealthStatus {
	switch {
	case localOK && sharedOK:
		return StatusHealthy
	case localOK || sharedOK:
		return StatusDegraded
	default:
		return StatusUnhealthy
	}
}
