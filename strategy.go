package tiercache

import (
	"sort"
	"time"
)

// Priority ranks a data category for eviction and warming decisions.
type Priority uint8

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// Strategy is the freshness policy for one data category. Strategies are
// fixed at construction and never mutated per request.
type Strategy struct {
	// TTL is the lifetime of a cached value in both tiers.
	TTL time.Duration
	// Priority ranks the category relative to others.
	Priority Priority
	// WarmingEnabled marks the category for periodic pre-refresh.
	WarmingEnabled bool
	// FallbackTTL is the lifetime of the stale copy kept in the shared tier
	// for serving when the upstream fetch fails. Only written when it
	// exceeds TTL.
	FallbackTTL time.Duration
}

// DefaultStrategy applies to any category without a catalog entry.
var DefaultStrategy = Strategy{
	TTL:            5 * time.Minute,
	Priority:       PriorityMedium,
	WarmingEnabled: false,
	FallbackTTL:    15 * time.Minute,
}

// Catalog maps data categories to strategies. Read-only after construction;
// lookups never fail: unmapped categories resolve to DefaultStrategy.
type Catalog struct {
	byCategory map[string]Strategy
}

// NewCatalog builds a catalog from a category table. The table is copied;
// later mutation of the argument has no effect.
func NewCatalog(table map[string]Strategy) *Catalog {
	m := make(map[string]Strategy, len(table))
	for cat, s := range table {
		m[cat] = s
	}
	return &Catalog{byCategory: m}
}

// DefaultCatalog is the policy table for the market-data categories this
// backend aggregates.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[string]Strategy{
		"market_overview": {TTL: 5 * time.Minute, Priority: PriorityHigh, WarmingEnabled: true, FallbackTTL: 15 * time.Minute},
		"stablecoins":     {TTL: 10 * time.Minute, Priority: PriorityHigh, WarmingEnabled: true, FallbackTTL: 30 * time.Minute},
		"staking_yields":  {TTL: 15 * time.Minute, Priority: PriorityMedium, WarmingEnabled: true, FallbackTTL: time.Hour},
		"protocol_tvl":    {TTL: 10 * time.Minute, Priority: PriorityHigh, WarmingEnabled: true, FallbackTTL: 30 * time.Minute},
		"token_prices":    {TTL: time.Minute, Priority: PriorityHigh, WarmingEnabled: false, FallbackTTL: 5 * time.Minute},
		"chain_metrics":   {TTL: 30 * time.Minute, Priority: PriorityLow, WarmingEnabled: false, FallbackTTL: 2 * time.Hour},
	})
}

// Resolve returns the strategy for a category, or DefaultStrategy when the
// category is unmapped.
func (c *Catalog) Resolve(category string) Strategy {
	if s, ok := c.byCategory[category]; ok {
		return s
	}
	return DefaultStrategy
}

// ResolveKey resolves the strategy for a full cache key by its category
// segment (see CategoryFromKey).
func (c *Catalog) ResolveKey(key string) Strategy {
	return c.Resolve(CategoryFromKey(key))
}

// Categories returns the mapped category names, sorted.
func (c *Catalog) Categories() []string {
	out := make([]string, 0, len(c.byCategory))
	for cat := range c.byCategory {
		out = append(out, cat)
	}
	sort.Strings(out)
	return out
}

// Summary returns one CategoryInfo per mapped category, sorted by name.
func (c *Catalog) Summary() []CategoryInfo {
	cats := c.Categories()
	out := make([]CategoryInfo, 0, len(cats))
	for _, cat := range cats {
		s := c.byCategory[cat]
		out = append(out, CategoryInfo{
			Category:       cat,
			TTL:            s.TTL,
			Priority:       s.Priority,
			WarmingEnabled: s.WarmingEnabled,
		})
	}
	return out
}
