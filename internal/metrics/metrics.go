package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Cache metrics
	CacheHitsTotal     *prometheus.CounterVec
	CacheMissesTotal   *prometheus.CounterVec
	CacheErrorsTotal   *prometheus.CounterVec
	CacheInvalidations *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitExceededTotal *prometheus.CounterVec

	// Analytics metrics
	AnalyticsEventsTotal *prometheus.CounterVec
	ArchiveRunsTotal     *prometheus.CounterVec
	ArchiveRowsTotal     *prometheus.CounterVec
	ArchiveDuration      prometheus.Histogram

	// Storage metrics
	StorageUploadsTotal   *prometheus.CounterVec
	StorageUploadBytes    prometheus.Histogram
	StorageBreakerChanges *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "biolink_http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "biolink_http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
				},
				[]string{"method", "path", "status"},
			),
			HTTPResponseSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "biolink_http_response_size_bytes",
					Help:    "HTTP response size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path"},
			),

			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "biolink_cache_hits_total",
					Help: "Total number of cache hits",
				},
				[]string{"cache_name"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "biolink_cache_misses_total",
					Help: "Total number of cache misses",
				},
				[]string{"cache_name"},
			),
			CacheErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "biolink_cache_errors_total",
					Help: "Cache store failures, by operation",
				},
				[]string{"operation"},
			),
			CacheInvalidations: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "biolink_cache_invalidations_total",
					Help: "Cache keys deleted after mutations",
				},
				[]string{"cache_name"},
			),

			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "biolink_rate_limit_exceeded_total",
					Help: "Requests rejected by the rate limiter",
				},
				[]string{"action"},
			),

			AnalyticsEventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "biolink_analytics_events_total",
					Help: "Analytics events recorded, by kind and referrer source",
				},
				[]string{"kind", "source"},
			),
			ArchiveRunsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "biolink_archive_runs_total",
					Help: "Analytics archive runs, by result",
				},
				[]string{"result"},
			),
			ArchiveRowsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "biolink_archive_rows_total",
					Help: "Rows exported and deleted by archive runs",
				},
				[]string{"category"},
			),
			ArchiveDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "biolink_archive_duration_seconds",
					Help:    "End-to-end archive run latency",
					Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
				},
			),

			StorageUploadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "biolink_storage_uploads_total",
					Help: "Object uploads, by kind and result",
				},
				[]string{"kind", "result"},
			),
			StorageUploadBytes: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "biolink_storage_upload_bytes",
					Help:    "Uploaded object sizes",
					Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
				},
			),
			StorageBreakerChanges: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "biolink_storage_breaker_state_changes_total",
					Help: "Storage circuit breaker transitions",
				},
				[]string{"to"},
			),

			DBQueryDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "biolink_db_query_duration_seconds",
					Help:    "GORM statement latency, by operation and table",
					Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
				},
				[]string{"operation", "table"},
			),

			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "biolink_errors_total",
					Help: "API error responses, by error code",
				},
				[]string{"error_type"},
			),
		}
	})
	return instance
}

// Get returns the metrics instance, initializing it on first use
func Get() *Metrics {
	return Initialize()
}
