// Package metrics exposes cache statistics as a prometheus.Collector.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/defilytics/tiercache"
)

// StatsFunc supplies a statistics snapshot at scrape time. Typically bound
// to a Cache's Stats method.
type StatsFunc func(ctx context.Context) tiercache.Stats

// Collector turns Stats snapshots into prometheus metrics. Register it on a
// prometheus.Registry; each scrape recomputes the snapshot.
type Collector struct {
	stats         StatsFunc
	scrapeTimeout time.Duration

	localKeys    *prometheus.Desc
	localHits    *prometheus.Desc
	localMisses  *prometheus.Desc
	localHitRate *prometheus.Desc
	sharedMem    *prometheus.Desc
	sharedConns  *prometheus.Desc
	sharedUp     *prometheus.Desc
	categoryTTL  *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

func NewCollector(namespace string, stats StatsFunc) *Collector {
	fq := func(name string) string {
		return prometheus.BuildFQName(namespace, "cache", name)
	}
	return &Collector{
		stats:         stats,
		scrapeTimeout: 5 * time.Second,
		localKeys: prometheus.NewDesc(fq("local_keys"),
			"Live keys in the local tier.", nil, nil),
		localHits: prometheus.NewDesc(fq("local_hits_total"),
			"Cumulative local-tier hits.", nil, nil),
		localMisses: prometheus.NewDesc(fq("local_misses_total"),
			"Cumulative local-tier misses.", nil, nil),
		localHitRate: prometheus.NewDesc(fq("local_hit_rate"),
			"Local-tier hit rate since start.", nil, nil),
		sharedMem: prometheus.NewDesc(fq("shared_memory_bytes"),
			"Memory used by the shared tier.", nil, nil),
		sharedConns: prometheus.NewDesc(fq("shared_connected_clients"),
			"Clients connected to the shared tier.", nil, nil),
		sharedUp: prometheus.NewDesc(fq("shared_up"),
			"Whether shared-tier introspection succeeded (1) or not (0).", nil, nil),
		categoryTTL: prometheus.NewDesc(fq("category_ttl_seconds"),
			"Configured TTL per data category.",
			[]string{"category", "priority", "warming"}, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.localKeys
	ch <- c.localHits
	ch <- c.localMisses
	ch <- c.localHitRate
	ch <- c.sharedMem
	ch <- c.sharedConns
	ch <- c.sharedUp
	ch <- c.categoryTTL
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.scrapeTimeout)
	defer cancel()
	st := c.stats(ctx)

	ch <- prometheus.MustNewConstMetric(c.localKeys, prometheus.GaugeValue, float64(st.Local.Keys))
	ch <- prometheus.MustNewConstMetric(c.localHits, prometheus.CounterValue, float64(st.Local.Hits))
	ch <- prometheus.MustNewConstMetric(c.localMisses, prometheus.CounterValue, float64(st.Local.Misses))
	ch <- prometheus.MustNewConstMetric(c.localHitRate, prometheus.GaugeValue, st.Local.HitRate)
	ch <- prometheus.MustNewConstMetric(c.sharedMem, prometheus.GaugeValue, float64(st.Shared.MemoryUsedBytes))
	ch <- prometheus.MustNewConstMetric(c.sharedConns, prometheus.GaugeValue, float64(st.Shared.ConnectedClients))

	up := 0.0
	if st.Shared.Available {
		up = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.sharedUp, prometheus.GaugeValue, up)

	for _, ci := range st.Categories {
		warming := "off"
		if ci.WarmingEnabled {
			warming = "on"
		}
		ch <- prometheus.MustNewConstMetric(c.categoryTTL, prometheus.GaugeValue,
			ci.TTL.Seconds(), ci.Category, ci.Priority.String(), warming)
	}
}
