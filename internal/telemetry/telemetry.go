package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ragbot_cache_hits_total",
		Help: "Query results served from the result cache.",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ragbot_cache_misses_total",
		Help: "Query lookups that missed the result cache.",
	})
	WarmingCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ragbot_cache_warming_cycles_total",
		Help: "Completed cache warming cycles.",
	})
	WarmedQueries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ragbot_cache_warmed_queries_total",
		Help: "Cache entries written by the warmer.",
	})
	ChatDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ragbot_chat_request_seconds",
		Help:    "End-to-end chat request latency.",
		Buckets: prometheus.DefBuckets,
	})
)
