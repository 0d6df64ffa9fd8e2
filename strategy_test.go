package tiercache

import (
	"testing"
	"time"
)

func TestResolveUnknownCategory(t *testing.T) {
	c := DefaultCatalog()
	got := c.Resolve("unknown_category")
	want := Strategy{
		TTL:            5 * time.Minute,
		Priority:       PriorityMedium,
		WarmingEnabled: false,
		FallbackTTL:    15 * time.Minute,
	}
	if got != want {
		t.Fatalf("default strategy: got %+v want %+v", got, want)
	}
}

func TestResolveKeyWithoutCategorySegment(t *testing.T) {
	c := DefaultCatalog()
	if got := c.ResolveKey("too:short"); got != DefaultStrategy {
		t.Fatalf("short key should resolve to default, got %+v", got)
	}
}

func TestCatalogCopiesTable(t *testing.T) {
	table := map[string]Strategy{
		"market_overview": {TTL: time.Minute, Priority: PriorityHigh},
	}
	c := NewCatalog(table)
	table["market_overview"] = Strategy{TTL: time.Hour}

	if got := c.Resolve("market_overview").TTL; got != time.Minute {
		t.Fatalf("catalog observed mutation of its input table: ttl=%v", got)
	}
}

func TestDefaultCatalogWarmingCategories(t *testing.T) {
	c := DefaultCatalog()
	warming := 0
	for _, cat := range c.Categories() {
		if c.Resolve(cat).WarmingEnabled {
			warming++
		}
	}
	if warming == 0 {
		t.Fatalf("default catalog has no warming-enabled categories")
	}
	if c.Resolve("token_prices").WarmingEnabled {
		t.Fatalf("token_prices should not be warmed (1m TTL churns too fast)")
	}
}

func TestPriorityString(t *testing.T) {
	cases := map[Priority]string{
		PriorityLow:    "low",
		PriorityMedium: "medium",
		PriorityHigh:   "high",
		Priority(9):    "unknown",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Fatalf("Priority(%d).String() = %q, want %q", p, got, want)
		}
	}
}
