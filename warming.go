package tiercache

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

// WarmFunc refreshes one category's hot keys, typically by fetching from the
// upstream provider and calling Set. Supplied as closures at construction.
type WarmFunc func(ctx context.Context) error

// runWarmingCycle runs every registered warmer whose category strategy has
// warming enabled. Callbacks run concurrently and failures are isolated: one
// failing warmer never prevents the others from running. The cycle produces
// a single summary log entry with success/failure counts.
func (c *cache[V]) runWarmingCycle(ctx context.Context) {
	due := make([]string, 0, len(c.warmers))
	for cat := range c.warmers {
		if c.catalog.Resolve(cat).WarmingEnabled {
			due = append(due, cat)
		}
	}
	if len(due) == 0 {
		return
	}
	sort.Strings(due)

	var (
		mu     sync.Mutex
		failed []string
	)
	var g errgroup.Group
	for _, cat := range due {
		cat := cat
		fn := c.warmers[cat]
		g.Go(func() error {
			// errors are collected, not returned: a returned error would
			// stand for the whole group, and isolation is the point here
			if err := fn(ctx); err != nil {
				mu.Lock()
				failed = append(failed, cat)
				mu.Unlock()
				c.log.Warn("warming callback failed", Fields{"category": cat, "err": err})
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Strings(failed)
	c.log.Info("warming cycle complete", Fields{
		"ok":     len(due) - len(failed),
		"failed": len(failed),
		"errors": failed,
	})
}
