package reqflow

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsCollector provides Prometheus metrics for the controller's
// request lifecycle. It is safe for concurrent use and may be shared by
// several controllers.
type MetricsCollector struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight *prometheus.GaugeVec

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheSize   prometheus.Gauge

	cancellationsTotal *prometheus.CounterVec
	triggersThrottled  *prometheus.CounterVec

	errorsTotal *prometheus.CounterVec
}

// NewMetricsCollector creates a metrics collector on the default registerer.
func NewMetricsCollector() *MetricsCollector {
	return NewMetricsCollectorWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsCollectorWithRegistry creates a collector using the supplied registerer.
func NewMetricsCollectorWithRegistry(registry prometheus.Registerer) *MetricsCollector {
	return &MetricsCollector{
		requestsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_requests_total",
				Help: "Total number of HTTP requests dispatched",
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestDuration: promauto.With(registry).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reqflow_request_duration_seconds",
				Help:    "Duration of dispatched HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "status_code", "endpoint"},
		),
		requestsInFlight: promauto.With(registry).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reqflow_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
			[]string{"method", "endpoint"},
		),
		cacheHits: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_cache_hits_total",
				Help: "Total number of resolve cycles served from cache",
			},
			[]string{"endpoint"},
		),
		cacheMisses: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_cache_misses_total",
				Help: "Total number of resolve cycles that missed the cache",
			},
			[]string{"endpoint"},
		),
		cacheSize: promauto.With(registry).NewGauge(
			prometheus.GaugeOpts{
				Name: "reqflow_cache_size",
				Help: "Number of entries currently stored in the cache",
			},
		),
		cancellationsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_cancellations_total",
				Help: "Total number of requests cancelled or superseded before applying",
			},
			[]string{"endpoint"},
		),
		triggersThrottled: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_triggers_throttled_total",
				Help: "Total number of explicit triggers dropped by the pending gate",
			},
			[]string{"endpoint"},
		),
		errorsTotal: promauto.With(registry).NewCounterVec(
			prometheus.CounterOpts{
				Name: "reqflow_errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"type", "endpoint"},
		),
	}
}

// RecordRequestStart increments the in-flight gauge.
func (mc *MetricsCollector) RecordRequestStart(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Inc()
}

// RecordRequestEnd decrements the in-flight gauge.
func (mc *MetricsCollector) RecordRequestEnd(method, endpoint string) {
	mc.requestsInFlight.WithLabelValues(method, endpoint).Dec()
}

// RecordRequest records a completed request with its outcome.
func (mc *MetricsCollector) RecordRequest(method, endpoint string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	mc.requestsTotal.WithLabelValues(method, status, endpoint).Inc()
	mc.requestDuration.WithLabelValues(method, status, endpoint).Observe(duration.Seconds())
}

// RecordCacheHit records a resolve cycle served from cache.
func (mc *MetricsCollector) RecordCacheHit(endpoint string) {
	mc.cacheHits.WithLabelValues(endpoint).Inc()
}

// RecordCacheMiss records a resolve cycle that went to the transport.
func (mc *MetricsCollector) RecordCacheMiss(endpoint string) {
	mc.cacheMisses.WithLabelValues(endpoint).Inc()
}

// RecordCacheSize sets the cache size gauge after a cache mutation.
func (mc *MetricsCollector) RecordCacheSize(n int) {
	mc.cacheSize.Set(float64(n))
}

// RecordCancellation records a cancelled or superseded completion.
func (mc *MetricsCollector) RecordCancellation(endpoint string) {
	mc.cancellationsTotal.WithLabelValues(endpoint).Inc()
}

// RecordTriggerThrottled records a trigger dropped by the pending gate.
func (mc *MetricsCollector) RecordTriggerThrottled(endpoint string) {
	mc.triggersThrottled.WithLabelValues(endpoint).Inc()
}

// RecordError records an error by type.
func (mc *MetricsCollector) RecordError(errorType, endpoint string) {
	mc.errorsTotal.WithLabelValues(errorType, endpoint).Inc()
}
