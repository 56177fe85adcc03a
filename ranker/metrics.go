package ranker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/sourcegraph/rankstage/log"
)

// criterionLog is shared by every criterion implementation for the
// per-bucket Debug logging spec'd at the ranker package level; criteria log
// on this one scope rather than one-per-criterion so a single filter
// ("logger=ranker") captures the whole pipeline's bucket emission.
var criterionLog = log.Scoped("ranker")

// Metrics collectors for the ranking pipeline, registered eagerly at
// package init in the same global-var-block style zoekt uses for its
// shard-search metrics (shards/shards.go).
var (
	metricBucketsEmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rankstage_buckets_emitted_total",
		Help: "Number of buckets emitted, by criterion kind.",
	}, []string{"criterion"})

	metricResolveDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rankstage_resolve_duration_seconds",
		Help:    "Time spent resolving a query-tree node into a candidate bitmap.",
		Buckets: prometheus.DefBuckets,
	}, []string{"node"})
)
