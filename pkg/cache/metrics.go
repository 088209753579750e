package cache

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Sternrassler/jam/pkg/metrics"
)

var (
	// CacheHits tracks cache hits
	CacheHits = metrics.Factory.NewCounter(
		prometheus.CounterOpts{
			Name: "jam_cache_hits_total",
			Help: "Total number of response cache hits",
		},
	)

	// CacheMisses tracks cache misses
	CacheMisses = metrics.Factory.NewCounter(
		prometheus.CounterOpts{
			Name: "jam_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = metrics.Factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jam_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
