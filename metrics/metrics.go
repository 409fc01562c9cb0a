// Package metrics holds the Prometheus collectors shared by the cache and
// table-cache layers, following the registry-struct-with-promauto pattern
// used elsewhere in the retrieval pack's metrics packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CacheMetrics groups the counters/gauges exported by every cache.Cache
// instance, labeled by a caller-chosen cache name so a process can run
// more than one (e.g. a block cache and a table cache) against the same
// registry.
type CacheMetrics struct {
	Usage  *prometheus.GaugeVec
	Hits   *prometheus.CounterVec
	Misses *prometheus.CounterVec
}

// NewCacheMetrics registers a CacheMetrics on reg.
func NewCacheMetrics(reg prometheus.Registerer, subsystem string) *CacheMetrics {
	factory := promauto.With(reg)
	return &CacheMetrics{
		Usage: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "ldbtable",
			Subsystem: subsystem,
			Name:      "cache_usage_bytes",
			Help:      "Total charge currently held by the cache, summed across shards.",
		}, []string{"cache"}),
		Hits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ldbtable",
			Subsystem: subsystem,
			Name:      "cache_hits_total",
			Help:      "Number of cache lookups that found an entry.",
		}, []string{"cache"}),
		Misses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ldbtable",
			Subsystem: subsystem,
			Name:      "cache_misses_total",
			Help:      "Number of cache lookups that found nothing.",
		}, []string{"cache"}),
	}
}

// TableCacheMetrics groups the counters exported by internal/tablecache.
type TableCacheMetrics struct {
	OpenFiles prometheus.Gauge
}

// NewTableCacheMetrics registers a TableCacheMetrics on reg.
func NewTableCacheMetrics(reg prometheus.Registerer) *TableCacheMetrics {
	factory := promauto.With(reg)
	return &TableCacheMetrics{
		OpenFiles: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ldbtable",
			Subsystem: "tablecache",
			Name:      "open_files",
			Help:      "Number of SSTable files currently open via the table cache.",
		}),
	}
}

// DefaultRegistry is a process-wide registry new Cache/TableCache
// instances can share when the caller has no registry of its own.
var DefaultRegistry = prometheus.NewRegistry()
