package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// latencyBuckets covers calls to the cloud speech and chat services, in milliseconds.
var latencyBuckets = []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000} //nolint:gochecknoglobals // shared default

// Manager manages all Prometheus metrics for the PhonoEcho service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Practice metrics
	attemptsAssessed   *prometheus.CounterVec
	assessmentLatency  prometheus.Histogram
	assessmentErrors   *prometheus.CounterVec
	errorCategoryWords *prometheus.CounterVec
	pronScore          prometheus.Histogram
	celebrations       prometheus.Counter

	// Feedback metrics
	feedbackLatency prometheus.Histogram
	feedbackErrors  prometheus.Counter
	feedbackChunks  prometheus.Counter

	// Account and session metrics
	activeSessions prometheus.Gauge
	logins         *prometheus.CounterVec
	registrations  prometheus.Counter

	// Audit log pipeline
	auditQueueSize     prometheus.Gauge
	auditEnqueueErrors prometheus.Counter
	auditWritten       prometheus.Counter
	workerErrors       prometheus.Counter

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec
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
		namespace:        "phonoecho",
		subsystem:        "practice",
		histogramBuckets: latencyBuckets,
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.attemptsAssessed = m.counterVec("attempts_assessed_total",
		"Total number of recordings scored by the assessment service", "lesson")
	m.assessmentLatency = m.histogram("assessment_latency_milliseconds",
		"Latency of pronunciation assessment calls in milliseconds", m.histogramBuckets)
	m.assessmentErrors = m.counterVec("assessment_errors_total",
		"Assessment failures by kind (transport, status, malformed)", "kind")
	m.errorCategoryWords = m.counterVec("error_category_words_total",
		"Words flagged per pronunciation error category", "category")
	m.pronScore = m.histogram("pron_score",
		"Distribution of overall pronunciation scores", prometheus.LinearBuckets(10, 10, 10))
	m.celebrations = m.counter("celebrations_total",
		"Attempts that reached the celebration threshold")

	m.feedbackLatency = m.histogram("feedback_latency_milliseconds",
		"Time to stream a complete coaching message in milliseconds", m.histogramBuckets)
	m.feedbackErrors = m.counter("feedback_errors_total",
		"Coaching stream failures")
	m.feedbackChunks = m.counter("feedback_chunks_total",
		"Text fragments streamed to browsers")

	m.activeSessions = m.gauge("active_sessions",
		"Sessions currently held in memory")
	m.logins = m.counterVec("logins_total",
		"Login attempts by outcome", "outcome")
	m.registrations = m.counter("registrations_total",
		"Accounts created")

	m.auditQueueSize = m.gauge("audit_queue_size",
		"Attempt audit records waiting to be written")
	m.auditEnqueueErrors = m.counter("audit_enqueue_errors_total",
		"Audit records dropped because the queue was full or closed")
	m.auditWritten = m.counter("audit_written_total",
		"Audit records written to the attempt log")
	m.workerErrors = m.counter("worker_errors_total",
		"Audit worker failures")

	m.systemMemoryUsage = m.gauge("system_memory_bytes",
		"Heap bytes allocated by the process")
	m.systemGoroutineCount = m.gauge("system_goroutines",
		"Number of live goroutines")

	auto := promauto.With(m.registry)
	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
	m.httpErrors = m.counterVec("http_errors_total",
		"HTTP error responses by endpoint, type and severity", "endpoint", "method", "error_type", "severity")
}

// Practice metrics

func RecordAttemptAssessed(lesson string) {
	globalManager.attemptsAssessed.WithLabelValues(lesson).Inc()
}

func RecordAssessmentLatency(latencyMs float64) {
	globalManager.assessmentLatency.Observe(latencyMs)
}

func RecordAssessmentError(kind string) {
	globalManager.assessmentErrors.WithLabelValues(kind).Inc()
}

// RecordErrorCategory adds n flagged words to the category counter. Non-positive n is ignored.
func RecordErrorCategory(category string, n int) {
	if n <= 0 {
		return
	}
	globalManager.errorCategoryWords.WithLabelValues(category).Add(float64(n))
}

func RecordPronScore(score float64) {
	globalManager.pronScore.Observe(score)
}

func RecordCelebration() {
	globalManager.celebrations.Inc()
}

// Feedback metrics

func RecordFeedbackLatency(latencyMs float64) {
	globalManager.feedbackLatency.Observe(latencyMs)
}

func RecordFeedbackError() {
	globalManager.feedbackErrors.Inc()
}

func RecordFeedbackChunk() {
	globalManager.feedbackChunks.Inc()
}

// Account metrics

func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

func RecordLogin(outcome string) {
	globalManager.logins.WithLabelValues(outcome).Inc()
}

func RecordRegistration() {
	globalManager.registrations.Inc()
}

// Audit pipeline metrics

func UpdateAuditQueueSize(size int) {
	globalManager.auditQueueSize.Set(float64(size))
}

func RecordAuditEnqueueError() {
	globalManager.auditEnqueueErrors.Inc()
}

func RecordAuditWritten() {
	globalManager.auditWritten.Inc()
}

func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// System metrics

func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// HTTP metrics

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

func RecordHTTPError(endpoint, method, errorType, severity string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType, severity).Inc()
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
