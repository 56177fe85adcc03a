package derive

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCacheHitTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rankstage_derivation_cache_hit_total",
		Help: "Word-derivation cache hits.",
	})

	metricCacheMissTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rankstage_derivation_cache_miss_total",
		Help: "Word-derivation cache misses (FST walks).",
	})

	metricMaxTyposClampedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rankstage_max_typos_clamped_total",
		Help: "Number of times a requested max_typos > 2 was clamped to 2.",
	})
)
