package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SummaryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reportengine_summary_requests_total",
		Help: "Total summary report requests, labelled by grouping dimension and outcome.",
	}, []string{"group_by", "status"})

	RollupFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reportengine_rollup_fallbacks_total",
		Help: "Total fast-path reads that fell back to live aggregation, labelled by reason.",
	}, []string{"reason"})

	RollupRefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reportengine_rollup_refresh_duration_seconds",
		Help:    "Duration of materialized view refreshes.",
		Buckets: prometheus.DefBuckets,
	})
)
