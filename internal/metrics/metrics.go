// Package metrics defines Prometheus metrics for odin.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "odin_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odin_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odin_errors_total",
			Help: "Total errors by type",
		},
		[]string{"type"},
	)

	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "odin_pipeline_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
		},
		[]string{"stage"},
	)

	RecordsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "odin_records_processed_total",
			Help: "Records written by pipeline stages",
		},
		[]string{"stage"},
	)

	ActiveChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "odin_executor_active_chunks",
			Help: "Chunks currently being processed by executor workers",
		},
	)

	ResolverPasses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "odin_hierarchy_resolver_passes_total",
			Help: "Full scans of the hierarchy dump",
		},
	)

	UnresolvedAncestors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "odin_hierarchy_not_found_total",
			Help: "Ancestor ids marked not-found",
		},
	)

	PathsFound = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "odin_similarity_paths",
			Help:    "Paths per similarity computation",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestDuration, RequestsTotal, ErrorsTotal,
		StageDuration, RecordsProcessed, ActiveChunks,
		ResolverPasses, UnresolvedAncestors,
		PathsFound,
	)
}
