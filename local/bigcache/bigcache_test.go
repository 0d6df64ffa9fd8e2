package bigcache

import (
	"sync"
	"testing"
	"time"

	"github.com/defilytics/tiercache/codec"
)

type quote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestCache(t *testing.T, clk *clock) *Cache[quote] {
	t.Helper()
	c, err := NewWithClock[quote](Config{LifeWindow: time.Hour}, codec.JSON[quote]{}, clk.Now)
	if err != nil {
		t.Fatalf("NewWithClock: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSetGet(t *testing.T) {
	c := newTestCache(t, newClock())
	v := quote{Symbol: "ETH", Price: 2000}
	c.Set("k", v, time.Minute)

	got, ok := c.Get("k")
	if !ok || got != v {
		t.Fatalf("got %+v ok=%v", got, ok)
	}
}

func TestEnvelopeExpiry(t *testing.T) {
	clk := newClock()
	c := newTestCache(t, clk)
	c.Set("k", quote{Symbol: "ETH"}, time.Minute)

	// bigcache's own life window (1h) has not elapsed; the envelope governs
	clk.Advance(61 * time.Second)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected miss after envelope expiry")
	}
	if st := c.Stats(); st.Keys != 0 {
		t.Fatalf("expired entry should be deleted on access, keys=%d", st.Keys)
	}
}

func TestDeleteMatching(t *testing.T) {
	c := newTestCache(t, newClock())
	c.Set("defi:market:market_overview:aaa", quote{}, time.Minute)
	c.Set("defi:market:market_overview:bbb", quote{}, time.Minute)
	c.Set("defi:market:stablecoins:ccc", quote{}, time.Minute)

	if n := c.DeleteMatching("market_overview"); n != 2 {
		t.Fatalf("removed %d, want 2", n)
	}
	if _, ok := c.Get("defi:market:stablecoins:ccc"); !ok {
		t.Fatalf("non-matching key was removed")
	}
}

func TestSweep(t *testing.T) {
	clk := newClock()
	c := newTestCache(t, clk)
	c.Set("short", quote{}, time.Minute)
	c.Set("long", quote{}, time.Hour)

	clk.Advance(2 * time.Minute)
	if n := c.Sweep(); n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	if st := c.Stats(); st.Keys != 1 {
		t.Fatalf("keys=%d after sweep", st.Keys)
	}
}

func TestStatsReclassifiesExpiredHits(t *testing.T) {
	clk := newClock()
	c := newTestCache(t, clk)
	c.Set("k", quote{Symbol: "ETH"}, time.Minute)

	c.Get("k") // genuine hit
	clk.Advance(2 * time.Minute)
	c.Get("k") // bigcache hit, envelope-expired: must count as a miss

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 {
		t.Fatalf("counters: %+v", st)
	}
	if st.HitRate != 0.5 {
		t.Fatalf("hit rate: got %v want 0.5", st.HitRate)
	}
}
