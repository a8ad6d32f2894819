// Package metrics provides Prometheus metrics for the winprob prediction service.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prediction outcome label values.
const (
	OutcomeSuccess     = "success"
	OutcomeSoftFailure = "soft_failure"
	OutcomeHardFailure = "hard_failure"
)

// probabilityBuckets splits the 0-100 win probability range into deciles.
var probabilityBuckets = prometheus.LinearBuckets(10, 10, 9) //nolint:gochecknoglobals // immutable bucket layout

// Manager manages all Prometheus metrics for the winprob service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Prediction metrics
	predictions       *prometheus.CounterVec
	predictionLatency prometheus.Histogram
	winProbability    prometheus.Histogram

	// Classifier metrics
	classifierLatency *prometheus.HistogramVec
	classifierErrors  *prometheus.CounterVec
	modelLoaded       prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter

	// Journal metrics
	journalRecords     prometheus.Gauge
	journalErrors      prometheus.Counter
	journalQueueLength prometheus.Gauge
	journalDropped     prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         prometheus.Counter

	// Error Metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "winprob",
		subsystem:        "predictor",
		histogramBuckets: prometheus.DefBuckets,
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

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.predictions = auto.NewCounterVec(
		m.counterOpts("predictions_total", "Total number of predictions by outcome"),
		[]string{"outcome"},
	)
	m.predictionLatency = auto.NewHistogram(
		m.histogramOpts("prediction_latency_milliseconds", "End-to-end prediction latency in milliseconds", m.histogramBuckets),
	)
	m.winProbability = auto.NewHistogram(
		m.histogramOpts("win_probability", "Distribution of predicted batting-side win probability (percent)", probabilityBuckets),
	)

	m.classifierLatency = auto.NewHistogramVec(
		m.histogramOpts("classifier_latency_milliseconds", "Classifier invocation latency in milliseconds", m.histogramBuckets),
		[]string{"backend"},
	)
	m.classifierErrors = auto.NewCounterVec(
		m.counterOpts("classifier_errors_total", "Total number of classifier invocation failures"),
		[]string{"backend"},
	)
	m.modelLoaded = auto.NewGauge(
		m.gaugeOpts("model_loaded", "1 when a classifier is loaded and healthy, 0 otherwise"),
	)
	m.cacheHits = auto.NewCounter(
		m.counterOpts("prediction_cache_hits_total", "Classifier results served from the prediction cache"),
	)
	m.cacheMisses = auto.NewCounter(
		m.counterOpts("prediction_cache_misses_total", "Classifier calls that missed the prediction cache"),
	)

	m.journalRecords = auto.NewGauge(
		m.gaugeOpts("journal_records", "Number of prediction records held by the journal"),
	)
	m.journalErrors = auto.NewCounter(
		m.counterOpts("journal_errors_total", "Failures while appending to the prediction journal"),
	)
	m.journalQueueLength = auto.NewGauge(
		m.gaugeOpts("journal_queue_length", "Records waiting to be written to the journal"),
	)
	m.journalDropped = auto.NewCounter(
		m.counterOpts("journal_dropped_total", "Records dropped because the journal queue was full or closed"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.rateLimited = auto.NewCounter(
		m.counterOpts("http_rate_limited_total", "Requests rejected by the rate limiter"),
	)

	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(
		m.gaugeOpts("system_memory_bytes", "Heap bytes allocated by the process"),
	)
	m.systemGoroutineCount = auto.NewGauge(
		m.gaugeOpts("system_goroutines", "Number of live goroutines"),
	)
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_milliseconds", "Average GC pause in milliseconds", m.histogramBuckets),
	)
}

// Prediction Metrics Functions.

// RecordPrediction counts a prediction by outcome and observes its latency.
func RecordPrediction(outcome string, latencyMs float64) error {
	switch outcome {
	case OutcomeSuccess, OutcomeSoftFailure, OutcomeHardFailure:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOutcome, outcome)
	}
	globalManager.predictions.WithLabelValues(outcome).Inc()
	globalManager.predictionLatency.Observe(latencyMs)
	return nil
}

// ObserveWinProbability records the batting-side win probability of a successful prediction.
func ObserveWinProbability(percent float64) {
	globalManager.winProbability.Observe(percent)
}

// Classifier Metrics Functions.

// RecordClassifierLatency records how long a classifier backend took.
func RecordClassifierLatency(backend string, latencyMs float64) {
	globalManager.classifierLatency.WithLabelValues(backend).Observe(latencyMs)
}

// RecordClassifierError increments the failure counter for a backend.
func RecordClassifierError(backend string) {
	globalManager.classifierErrors.WithLabelValues(backend).Inc()
}

// SetModelLoaded flags whether a usable classifier is loaded.
func SetModelLoaded(loaded bool) {
	if loaded {
		globalManager.modelLoaded.Set(1)
		return
	}
	globalManager.modelLoaded.Set(0)
}

// RecordCacheHit increments the prediction cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the prediction cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// Journal Metrics Functions.

// UpdateJournalRecords sets the number of records held by the journal.
func UpdateJournalRecords(count int) {
	globalManager.journalRecords.Set(float64(count))
}

// RecordJournalError increments the journal failure counter.
func RecordJournalError() {
	globalManager.journalErrors.Inc()
}

// UpdateJournalQueueLength sets the number of records waiting to be written.
func UpdateJournalQueueLength(n int) {
	globalManager.journalQueueLength.Set(float64(n))
}

// RecordJournalDropped increments the dropped record counter.
func RecordJournalDropped() {
	globalManager.journalDropped.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited increments the rate limiter rejection counter.
func RecordRateLimited() {
	globalManager.rateLimited.Inc()
}

// Error Metrics Functions.

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

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
