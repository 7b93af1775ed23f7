// Package metrics provides Prometheus metrics for the training dashboard service.
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
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ingestion
	rowsIngested  prometheus.Counter
	rowsDropped   prometheus.Counter
	batches       *prometheus.CounterVec
	ingestLatency prometheus.Histogram

	// Store
	recordsStored  prometheus.Gauge
	storeLatency   *prometheus.HistogramVec
	storeErrors    *prometheus.CounterVec
	recordsDeleted prometheus.Counter

	// Reports
	reportsServed *prometheus.CounterVec

	// Advisor
	advisorCalls   *prometheus.CounterVec
	advisorLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "formacao",
		subsystem:        "dashboard",
		histogramBuckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.rowsIngested = auto.NewCounter(m.counterOpts("rows_ingested_total", "Spreadsheet rows persisted as training records"))
	m.rowsDropped = auto.NewCounter(m.counterOpts("rows_dropped_total", "Spreadsheet rows dropped for missing person, organization or event"))
	m.batches = auto.NewCounterVec(m.counterOpts("ingest_batches_total", "Ingestion attempts by outcome"), []string{"outcome"})
	m.ingestLatency = auto.NewHistogram(m.histogramOpts("ingest_latency_milliseconds", "End-to-end ingestion latency in milliseconds"))

	m.recordsStored = auto.NewGauge(m.gaugeOpts("records_stored", "Training records currently in the store"))
	m.storeLatency = auto.NewHistogramVec(m.histogramOpts("store_latency_milliseconds", "Store operation latency in milliseconds"), []string{"operation"})
	m.storeErrors = auto.NewCounterVec(m.counterOpts("store_errors_total", "Store operation failures"), []string{"operation"})
	m.recordsDeleted = auto.NewCounter(m.counterOpts("records_deleted_total", "Training records removed by delete or clear"))

	m.reportsServed = auto.NewCounterVec(m.counterOpts("reports_total", "Aggregation reports computed by kind"), []string{"kind"})

	m.advisorCalls = auto.NewCounterVec(m.counterOpts("advisor_calls_total", "Assistant calls by operation and outcome"), []string{"operation", "outcome"})
	m.advisorLatency = auto.NewHistogramVec(m.histogramOpts("advisor_latency_milliseconds", "Assistant call latency in milliseconds"), []string{"operation"})

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})
	m.errorsByEndpoint = auto.NewCounterVec(m.counterOpts("http_errors_total", "HTTP error responses by endpoint and error type"), []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordRowsIngested adds n persisted rows.
func RecordRowsIngested(n int) {
	globalManager.rowsIngested.Add(float64(n))
}

// RecordRowsDropped adds n dropped rows.
func RecordRowsDropped(n int) {
	globalManager.rowsDropped.Add(float64(n))
}

// RecordIngestBatch counts one ingestion attempt with the given outcome.
func RecordIngestBatch(outcome string) {
	globalManager.batches.WithLabelValues(outcome).Inc()
}

// RecordIngestLatency records ingestion latency in milliseconds.
func RecordIngestLatency(latencyMs float64) {
	globalManager.ingestLatency.Observe(latencyMs)
}

// UpdateRecordsStored sets the stored-records gauge.
func UpdateRecordsStored(count int) {
	globalManager.recordsStored.Set(float64(count))
}

// RecordStoreLatency records a store operation latency in milliseconds.
func RecordStoreLatency(operation string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreError counts a failed store operation.
func RecordStoreError(operation string) {
	globalManager.storeErrors.WithLabelValues(operation).Inc()
}

// RecordRecordsDeleted adds n removed records.
func RecordRecordsDeleted(n int64) {
	globalManager.recordsDeleted.Add(float64(n))
}

// RecordReport counts one computed report.
func RecordReport(kind string) {
	globalManager.reportsServed.WithLabelValues(kind).Inc()
}

// RecordAdvisorCall counts an assistant call and observes its latency.
func RecordAdvisorCall(operation, outcome string, latencyMs float64) {
	globalManager.advisorCalls.WithLabelValues(operation, outcome).Inc()
	globalManager.advisorLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordHTTPRequest increments the HTTP requests counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint counts an error response on an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
