// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PipelineRuns counts filter/sort pipeline invocations by sort order.
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_pipeline_runs_total",
			Help: "Total number of filter/sort pipeline runs",
		},
		[]string{"sort"},
	)

	PipelineCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "place_pipeline_candidates",
			Help:    "Number of places admitted by the filters per run",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	// MissingAttributes counts places scored with at least one absent scalar.
	MissingAttributes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "place_missing_attributes_total",
			Help: "Places scored with one or more missing attributes treated as zero",
		},
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_cache_hits_total",
			Help: "Cache hits by cache type",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "place_cache_misses_total",
			Help: "Cache misses by cache type",
		},
		[]string{"cache_type"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"method", "route"},
	)
)
