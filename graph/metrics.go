package graph

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics collects simulation metrics.
//
// Metrics exposed (all namespaced with "flowsim_"):
//
//  1. runs_total (counter): finished runs. Labels: outcome
//     (completed, failed, invalid, cancelled).
//  2. active_runs (gauge): runs currently in progress.
//  3. step_latency_ms (histogram): step duration in milliseconds.
//     Labels: node_type, status (completed, error).
//  4. steps_total (counter): finished steps. Labels: node_type, status.
//  5. validation_issues_total (counter): issues reported by pre-run
//     validation. Labels: code, severity.
//
// Usage:
//
//	registry := prometheus.NewRegistry()
//	metrics := graph.NewPrometheusMetrics(registry)
//	runner := graph.NewRunner(graph.WithMetrics(metrics))
//	http.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
//
// All methods are safe for concurrent use and are no-ops on a nil receiver.
type PrometheusMetrics struct {
	runs             *prometheus.CounterVec
	activeRuns       prometheus.Gauge
	stepLatency      *prometheus.HistogramVec
	steps            *prometheus.CounterVec
	validationIssues *prometheus.CounterVec

	registry prometheus.Registerer

	mu      sync.RWMutex
	enabled bool
}

// Run outcomes recorded by RecordRun.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeInvalid   = "invalid"
	OutcomeCancelled = "cancelled"
)

// NewPrometheusMetrics creates and registers the simulation metrics with
// registry (prometheus.DefaultRegisterer when nil).
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	pm := &PrometheusMetrics{
		registry: registry,
		enabled:  true,
	}

	pm.runs = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowsim",
		Name:      "runs_total",
		Help:      "Total number of finished simulation runs by outcome",
	}, []string{"outcome"})

	pm.activeRuns = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "flowsim",
		Name:      "active_runs",
		Help:      "Number of simulation runs currently in progress",
	})

	pm.stepLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "flowsim",
		Name:      "step_latency_ms",
		Help:      "Simulated step duration in milliseconds",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000}, // 1ms to 10s
	}, []string{"node_type", "status"})

	pm.steps = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowsim",
		Name:      "steps_total",
		Help:      "Total number of finished simulation steps",
	}, []string{"node_type", "status"})

	pm.validationIssues = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "flowsim",
		Name:      "validation_issues_total",
		Help:      "Validation issues reported before simulation runs",
	}, []string{"code", "severity"})

	return pm
}

func (pm *PrometheusMetrics) on() bool {
	if pm == nil {
		return false
	}
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}

// RunStarted increments the active run gauge.
func (pm *PrometheusMetrics) RunStarted() {
	if !pm.on() {
		return
	}
	pm.activeRuns.Inc()
}

// RecordRun decrements the active run gauge and counts the outcome.
func (pm *PrometheusMetrics) RecordRun(outcome string) {
	if !pm.on() {
		return
	}
	pm.activeRuns.Dec()
	pm.runs.WithLabelValues(outcome).Inc()
}

// RecordStep records the latency and status of a finished step.
func (pm *PrometheusMetrics) RecordStep(nodeType NodeType, status StepStatus, latency time.Duration) {
	if !pm.on() {
		return
	}
	ms := float64(latency.Microseconds()) / 1000.0
	pm.stepLatency.WithLabelValues(string(nodeType), string(status)).Observe(ms)
	pm.steps.WithLabelValues(string(nodeType), string(status)).Inc()
}

// RecordValidation counts every issue in r.
func (pm *PrometheusMetrics) RecordValidation(r Result) {
	if !pm.on() {
		return
	}
	for _, issue := range r.Errors {
		pm.validationIssues.WithLabelValues(issue.Code, string(SeverityError)).Inc()
	}
	for _, issue := range r.Warnings {
		pm.validationIssues.WithLabelValues(issue.Code, string(SeverityWarning)).Inc()
	}
}

// Disable stops metric recording.
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable resumes metric recording.
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}
