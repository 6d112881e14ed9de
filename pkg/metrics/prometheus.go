// Package metrics provides Prometheus metrics for the matching service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultRefreshInterval = 10 * time.Second

// Analysis outcomes used as the "outcome" label.
const (
	OutcomeSuccess    = "success"
	OutcomeRejected   = "rejected"
	OutcomeCancelled  = "cancelled"
	OutcomeSuperseded = "superseded"
	OutcomeFailed     = "failed"
)

// Manager owns every metric of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Analysis
	analyses         *prometheus.CounterVec
	analysisDuration prometheus.Histogram
	correlations     *prometheus.CounterVec
	latestResults    *prometheus.GaugeVec
	filesProcessed   prometheus.Counter
	fileFailures     prometheus.Counter
	recordsLoaded    prometheus.Counter

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker
	workerActiveCount       prometheus.Gauge
	workerTasksPerSecond    prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // process-wide metrics

// customRegistry keeps the default Go collectors out of /metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tags",
		subsystem:        "matching",
		histogramBuckets: prometheus.ExponentialBuckets(1, 2, 15),
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

// Enabled reports whether recording is on.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is the sampling period for system gauges.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) name(n string) string { return m.metricPrefix + n }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.analyses = auto.NewCounterVec(m.counterOpts("analyses_total", "Analysis runs by outcome"), []string{"outcome"})
	m.analysisDuration = auto.NewHistogram(m.histogramOpts("analysis_duration_milliseconds", "Duration of analysis runs in milliseconds"))
	m.correlations = auto.NewCounterVec(m.counterOpts("correlations_total", "Results produced by category"), []string{"category"})
	m.latestResults = auto.NewGaugeVec(m.gaugeOpts("latest_results", "Results in the latest snapshot by category"), []string{"category"})
	m.filesProcessed = auto.NewCounter(m.counterOpts("files_processed_total", "Comparison datasets processed"))
	m.fileFailures = auto.NewCounter(m.counterOpts("file_failures_total", "Comparison datasets that failed to process"))
	m.recordsLoaded = auto.NewCounter(m.counterOpts("records_loaded_total", "Event records loaded from datasets"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Tasks waiting in the queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Capacity of the task queue"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue size divided by capacity"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Tasks enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Tasks dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Tasks rejected by the queue"))
	m.queueProcessingLatency = auto.NewHistogram(m.histogramOpts("queue_processing_latency_milliseconds", "Enqueue latency in milliseconds"))

	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Workers currently running"))
	m.workerTasksPerSecond = auto.NewGauge(m.gaugeOpts("worker_tasks_per_second", "Tasks completed per second"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Task processing latency in milliseconds"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Tasks that ended in an error"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "Last GC pause in milliseconds"))
}

// Analysis

func RecordAnalysis(outcome string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.analyses.WithLabelValues(outcome).Inc()
	globalManager.analysisDuration.Observe(durationMs)
}

func RecordCorrelations(category string, n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.correlations.WithLabelValues(category).Add(float64(n))
}

func UpdateLatestResults(category string, n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.latestResults.WithLabelValues(category).Set(float64(n))
}

func RecordFileProcessed(records int) {
	if !globalManager.enabled {
		return
	}
	globalManager.filesProcessed.Inc()
	if records > 0 {
		globalManager.recordsLoaded.Add(float64(records))
	}
}

func RecordFileFailure() {
	if !globalManager.enabled {
		return
	}
	globalManager.fileFailures.Inc()
}

// Queue

func UpdateQueueSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

func UpdateQueueCapacity(capacity int) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

func UpdateQueueUtilization(utilization float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueUtilization.Set(utilization)
}

func RecordQueueEnqueue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueued.Inc()
}

func RecordQueueDequeue() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueDequeued.Inc()
}

func RecordQueueEnqueueError() {
	if !globalManager.enabled {
		return
	}
	globalManager.queueEnqueueErrors.Inc()
}

func RecordQueueProcessingLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker

func UpdateWorkerActiveCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerActiveCount.Set(float64(count))
}

func UpdateWorkerTasksPerSecond(rate float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerTasksPerSecond.Set(rate)
}

func RecordWorkerProcessingLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

func RecordWorkerError() {
	if !globalManager.enabled {
		return
	}
	globalManager.workerErrors.Inc()
}

// HTTP

func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Errors

func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System

func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// RefreshInterval returns the sampling period of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// GetRegistry returns the registry served on /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
