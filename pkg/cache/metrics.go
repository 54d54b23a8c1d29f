package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by layer (memory, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mc_cache_hits_total",
			Help: "Total number of list cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses by layer
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mc_cache_misses_total",
			Help: "Total number of list cache misses",
		},
		[]string{"layer"},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mc_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "update", "delete"
	)

	// Invalidations tracks entries marked stale
	Invalidations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mc_cache_invalidations_total",
			Help: "Total number of cache invalidations",
		},
	)

	// FetchCancellations tracks fetch results discarded because the key
	// was cancelled or rewritten while the request was in flight
	FetchCancellations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mc_cache_fetch_cancellations_total",
			Help: "Total number of in-flight fetches whose result was discarded",
		},
	)

	// NotModifiedResponses tracks 304 revalidations
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mc_cache_not_modified_total",
			Help: "Total number of 304 Not Modified revalidations",
		},
	)
)
