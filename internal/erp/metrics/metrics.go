// Package metrics holds Prometheus metrics for the ERP cache and validator.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all ERP-side Prometheus metrics.
type Metrics struct {
	RefreshTotal    prometheus.Counter
	RefreshFailures prometheus.Counter
	RefreshDuration prometheus.Histogram
	CachedRecords   prometheus.Gauge
	CacheHits       prometheus.Counter
	CacheMisses     prometheus.Counter
	Validations     *prometheus.CounterVec
}

// New creates and registers all ERP metrics.
func New() *Metrics {
	return &Metrics{
		RefreshTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alumreg_erp_refresh_total",
			Help: "Successful HR roster refreshes",
		}),
		RefreshFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alumreg_erp_refresh_failures_total",
			Help: "Failed HR roster refreshes",
		}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "alumreg_erp_refresh_duration_seconds",
			Help:    "Latency of HR roster refreshes",
			Buckets: prometheus.DefBuckets,
		}),
		CachedRecords: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "alumreg_erp_cached_records",
			Help: "Number of employee records in the current cache snapshot",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alumreg_erp_cache_hits_total",
			Help: "Employee cache lookups that found a record",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "alumreg_erp_cache_misses_total",
			Help: "Employee cache lookups that found nothing",
		}),
		Validations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "alumreg_erp_validations_total",
			Help: "ERP validation outcomes by result",
		}, []string{"outcome"}),
	}
}
