// Package metrics provides Prometheus metrics for the tofo planner service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache lookup outcomes.
const (
	OutcomeHit         = "hit"
	OutcomeRefreshed   = "refreshed"
	OutcomeStale       = "stale"
	OutcomeUnavailable = "unavailable"
)

// Manager manages all Prometheus metrics for the planner.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Catalog cache
	cacheLookups         *prometheus.CounterVec
	cacheRefreshDuration *prometheus.HistogramVec

	// Planning pipeline
	targetsRejected  *prometheus.CounterVec
	eventsPredicted  prometheus.Counter
	eventsObservable prometheus.Counter
	planDuration     prometheus.Histogram
	scoringLatency   prometheus.Histogram
	plansPublished   prometheus.Counter
	planLastUnix     prometheus.Gauge
	planCandidates   prometheus.Gauge

	// Queue and workers
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueEnqueued           prometheus.Counter
	queueDequeued           prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// System
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
		namespace:        "tofo",
		subsystem:        "planner",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.cacheLookups = m.counterVec("cache_lookups_total", "Catalog cache lookups by source and outcome", "source", "outcome")
	m.cacheRefreshDuration = m.histogramVec("cache_refresh_duration_milliseconds", "Live catalog refresh duration in milliseconds", "source")

	m.targetsRejected = m.counterVec("targets_rejected_total", "Targets rejected before prediction, by reason", "reason")
	m.eventsPredicted = m.counter("events_predicted_total", "Events produced by the predictor")
	m.eventsObservable = m.counter("events_observable_total", "Events that passed visibility and window checks")
	m.planDuration = m.histogram("plan_duration_milliseconds", "Planning session duration in milliseconds", m.histogramBuckets)
	m.scoringLatency = m.histogram("scoring_latency_milliseconds", "Scoring pass latency in milliseconds", m.histogramBuckets)
	m.plansPublished = m.counter("plans_published_total", "Plans published to the repository")
	m.planLastUnix = m.gauge("plan_last_unix", "Unix timestamp of the last published plan")
	m.planCandidates = m.gauge("plan_candidates", "Scored targets in the last published plan")

	m.queueSize = m.gauge("queue_size", "Current number of queued target units")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Target units enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Target units dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Failed enqueue attempts")
	m.workerCount = m.gauge("worker_count", "Configured number of workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently processing a unit")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-unit processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Units that failed in a worker")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordCacheLookup counts a cache lookup for source with one of the Outcome* values.
func RecordCacheLookup(source, outcome string) {
	globalManager.cacheLookups.WithLabelValues(source, outcome).Inc()
}

// RecordCacheRefreshDuration records a live refresh duration.
func RecordCacheRefreshDuration(source string, ms float64) {
	globalManager.cacheRefreshDuration.WithLabelValues(source).Observe(ms)
}

// RecordTargetRejected counts a rejected target.
func RecordTargetRejected(reason string) {
	globalManager.targetsRejected.WithLabelValues(reason).Inc()
}

// RecordEventsPredicted adds n predicted events.
func RecordEventsPredicted(n int) {
	globalManager.eventsPredicted.Add(float64(n))
}

// RecordEventsObservable adds n observable events.
func RecordEventsObservable(n int) {
	globalManager.eventsObservable.Add(float64(n))
}

// RecordPlanDuration records a planning session duration.
func RecordPlanDuration(ms float64) {
	globalManager.planDuration.Observe(ms)
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(ms float64) {
	globalManager.scoringLatency.Observe(ms)
}

// RecordPlanPublished marks a published plan.
func RecordPlanPublished(unix int64, candidates int) {
	globalManager.plansPublished.Inc()
	globalManager.planLastUnix.Set(float64(unix))
	globalManager.planCandidates.Set(float64(candidates))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records per-unit latency.
func RecordWorkerProcessingLatency(ms float64) {
	globalManager.workerProcessingLatency.Observe(ms)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
