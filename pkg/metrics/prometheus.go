// Package metrics provides Prometheus metrics for the marks card service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Business metrics
	reportsStored       *prometheus.CounterVec
	nonFiniteAverages   prometheus.Counter
	reportQueries       prometheus.Counter
	reportsReturned     prometheus.Histogram
	totalIdentities     prometheus.Gauge
	unauthenticatedCall prometheus.Counter

	// Repository metrics
	repositoryShardCount    prometheus.Gauge
	repositoryRecordsTotal  prometheus.Gauge
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "markscard",
		subsystem:        "reports",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one block per metric
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	m.reportsStored = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "stored_total",
		Help:        "Total number of reports stored, by derived grade",
		ConstLabels: labels,
	}, []string{"grade"})

	m.nonFiniteAverages = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "non_finite_average_total",
		Help:        "Reports stored with a NaN or infinite average (zero subjects)",
		ConstLabels: labels,
	})

	m.reportQueries = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "queries_total",
		Help:        "Total number of history reads",
		ConstLabels: labels,
	})

	m.reportsReturned = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "returned_per_query",
		Help:        "Number of reports returned per history read",
		Buckets:     []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
		ConstLabels: labels,
	})

	m.totalIdentities = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "identities",
		Help:        "Number of identities holding at least one report",
		ConstLabels: labels,
	})

	m.unauthenticatedCall = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "unauthenticated_total",
		Help:        "Calls rejected because no verified caller was present",
		ConstLabels: labels,
	})

	m.repositoryShardCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "repository_shard_count",
		Help:        "Number of shards in the report store",
		ConstLabels: labels,
	})

	m.repositoryRecordsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "repository_records",
		Help:        "Total number of records across all identities",
		ConstLabels: labels,
	})

	m.repositoryUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "repository_append_latency_milliseconds",
		Help:        "Repository append latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.repositoryQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "repository_list_latency_milliseconds",
		Help:        "Repository list latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_component_total",
		Help:        "Errors by component and type",
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_type_total",
		Help:        "Errors by type and severity",
		ConstLabels: labels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "Errors by endpoint, method and type",
		ConstLabels: labels,
	}, []string{"endpoint", "method", "error_type"})

	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "error_latency_milliseconds",
		Help:        "Latency of operations that ended in an error",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_memory_usage_bytes",
		Help:        "Allocated heap memory in bytes",
		ConstLabels: labels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: labels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: labels,
	})
}

// RecordReportStored counts a stored report under its grade.
func (m *Manager) RecordReportStored(grade string) {
	if m.enabled {
		m.reportsStored.WithLabelValues(grade).Inc()
	}
}

// RecordNonFiniteAverage counts a report whose average is NaN or infinite.
func (m *Manager) RecordNonFiniteAverage() {
	if m.enabled {
		m.nonFiniteAverages.Inc()
	}
}

// RecordReportQuery counts a history read and the number of reports it returned.
func (m *Manager) RecordReportQuery(returned int) {
	if m.enabled {
		m.reportQueries.Inc()
		m.reportsReturned.Observe(float64(returned))
	}
}

// RecordUnauthenticated counts a call rejected for lack of a verified caller.
func (m *Manager) RecordUnauthenticated() {
	if m.enabled {
		m.unauthenticatedCall.Inc()
	}
}

// UpdateTotalIdentities sets the number of identities with reports.
func (m *Manager) UpdateTotalIdentities(count int) {
	if m.enabled {
		m.totalIdentities.Set(float64(count))
	}
}

// UpdateRepositoryShardCount sets the number of repository shards.
func (m *Manager) UpdateRepositoryShardCount(count int) {
	if m.enabled {
		m.repositoryShardCount.Set(float64(count))
	}
}

// UpdateRepositoryRecordsTotal sets the total number of stored records.
func (m *Manager) UpdateRepositoryRecordsTotal(count int) {
	if m.enabled {
		m.repositoryRecordsTotal.Set(float64(count))
	}
}

// RecordRepositoryUpdateLatency records append latency.
func (m *Manager) RecordRepositoryUpdateLatency(latencyMs float64) {
	if m.enabled {
		m.repositoryUpdateLatency.Observe(latencyMs)
	}
}

// RecordRepositoryQueryLatency records list latency.
func (m *Manager) RecordRepositoryQueryLatency(latencyMs float64) {
	if m.enabled {
		m.repositoryQueryLatency.Observe(latencyMs)
	}
}

// RecordHTTPRequest records an HTTP request.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string) {
	if m.enabled {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func (m *Manager) RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if m.enabled {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByComponent records an error with component and type labels.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	if m.enabled {
		m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
	}
}

// RecordErrorByType records an error with type and severity labels.
func (m *Manager) RecordErrorByType(errorType, severity string) {
	if m.enabled {
		m.errorRateByType.WithLabelValues(errorType, severity).Inc()
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func (m *Manager) RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m.enabled {
		m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func (m *Manager) RecordErrorLatency(component, errorType string, latencyMs float64) {
	if m.enabled {
		m.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
	}
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func (m *Manager) UpdateSystemMemoryUsage(bytes uint64) {
	if m.enabled {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func (m *Manager) UpdateSystemGoroutineCount(count int) {
	if m.enabled {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func (m *Manager) RecordSystemGCPauseTime(pauseMs float64) {
	if m.enabled {
		m.systemGCPauseTime.Observe(pauseMs)
	}
}

// Package-level helpers forward to the global manager.

// RecordReportStored counts a stored report under its grade.
func RecordReportStored(grade string) { globalManager.RecordReportStored(grade) }

// RecordNonFiniteAverage counts a report whose average is NaN or infinite.
func RecordNonFiniteAverage() { globalManager.RecordNonFiniteAverage() }

// RecordReportQuery counts a history read.
func RecordReportQuery(returned int) { globalManager.RecordReportQuery(returned) }

// RecordUnauthenticated counts a call without a verified caller.
func RecordUnauthenticated() { globalManager.RecordUnauthenticated() }

// UpdateTotalIdentities sets the number of identities with reports.
func UpdateTotalIdentities(count int) { globalManager.UpdateTotalIdentities(count) }

// UpdateRepositoryShardCount sets the number of repository shards.
func UpdateRepositoryShardCount(count int) { globalManager.UpdateRepositoryShardCount(count) }

// UpdateRepositoryRecordsTotal sets the total number of stored records.
func UpdateRepositoryRecordsTotal(count int) { globalManager.UpdateRepositoryRecordsTotal(count) }

// RecordRepositoryUpdateLatency records append latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.RecordRepositoryUpdateLatency(latencyMs)
}

// RecordRepositoryQueryLatency records list latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.RecordRepositoryQueryLatency(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode)
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.RecordHTTPRequestDuration(endpoint, method, statusCode, duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.RecordErrorByType(errorType, severity)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.RecordErrorByEndpoint(endpoint, method, errorType)
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.RecordErrorLatency(component, errorType, latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.UpdateSystemMemoryUsage(bytes) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.UpdateSystemGoroutineCount(count) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.RecordSystemGCPauseTime(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
