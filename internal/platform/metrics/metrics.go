package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the recording orchestrator.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal        prometheus.Counter
	errorsTotal          prometheus.Counter
	attemptsTotal        prometheus.Counter
	failuresTotal        *prometheus.CounterVec
	jobsSubmittedTotal   *prometheus.CounterVec
	batchesCompleted     prometheus.Counter
	activeAttempts       prometheus.Gauge
	stabilityWaitSeconds prometheus.Histogram
}

// New creates and registers the orchestrator's metrics on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recproc_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recproc_request_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		attemptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recproc_processing_attempts_total",
			Help: "Total number of processing attempts started",
		}),
		failuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recproc_processing_failures_total",
			Help: "Total number of failed processing attempts by failure kind",
		}, []string{"kind"}),
		jobsSubmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recproc_jobs_submitted_total",
			Help: "Total number of transcoding jobs submitted by role",
		}, []string{"role"}),
		batchesCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "recproc_batches_completed_total",
			Help: "Total number of intermediate batch jobs that completed",
		}),
		activeAttempts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "recproc_active_attempts",
			Help: "Number of processing attempts currently running",
		}),
		stabilityWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "recproc_stability_wait_seconds",
			Help:    "Time spent waiting for the clip listing to settle",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.attemptsTotal,
		m.failuresTotal,
		m.jobsSubmittedTotal,
		m.batchesCompleted,
		m.activeAttempts,
		m.stabilityWaitSeconds,
	)

	return m
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the request error counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncAttempts increments the processing attempt counter.
func (m *Metrics) IncAttempts() {
	m.attemptsTotal.Inc()
}

// IncFailure increments the failure counter for the given kind.
func (m *Metrics) IncFailure(kind string) {
	m.failuresTotal.WithLabelValues(kind).Inc()
}

// IncJobSubmitted increments the submitted-job counter for the given role.
func (m *Metrics) IncJobSubmitted(role string) {
	m.jobsSubmittedTotal.WithLabelValues(role).Inc()
}

// IncBatchCompleted increments the completed-batch counter.
func (m *Metrics) IncBatchCompleted() {
	m.batchesCompleted.Inc()
}

// AttemptStarted increments the active attempt gauge.
func (m *Metrics) AttemptStarted() {
	m.activeAttempts.Inc()
}

// AttemptDone decrements the active attempt gauge.
func (m *Metrics) AttemptDone() {
	m.activeAttempts.Dec()
}

// ObserveStabilityWait records how long one stability wait took.
func (m *Metrics) ObserveStabilityWait(d time.Duration) {
	m.stabilityWaitSeconds.Observe(d.Seconds())
}

// Handler returns an http.Handler serving this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
