package asl

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is the optional Prometheus sink a Runner reports to (component
// F/I adjacent): a gauge for in-flight Map/Parallel work (set only through
// setInflight, which the Map and Parallel states do not call), a histogram
// of per-state-step latency, and counters for retries, Map/Parallel
// failures, approval outcomes, and agent tokens and cost.
// A nil *Metrics disables recording entirely; Runner never requires one.
type Metrics struct {
	inflight     prometheus.Gauge
	stepLatency  *prometheus.HistogramVec
	retries      *prometheus.CounterVec
	mapFailures  *prometheus.CounterVec
	approvals    *prometheus.CounterVec
	tokensTotal  prometheus.Counter
	costUSDTotal prometheus.Counter
}

// NewMetrics registers the asl_* metric family with registry. Pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() to isolate a test or a single embedded engine.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	f := promauto.With(registry)

	return &Metrics{
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "asl",
			Name:      "inflight_branches",
			Help:      "Current number of Map iterations or Parallel branches executing concurrently",
		}),
		stepLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "asl",
			Name:      "step_latency_ms",
			Help:      "State Step duration in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 60000},
		}, []string{"state_name", "state_type", "status"}),
		retries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asl",
			Name:      "retries_total",
			Help:      "Retry attempts made by the Retry/Catch policy engine",
		}, []string{"state_name", "error_code"}),
		mapFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asl",
			Name:      "map_parallel_failures_total",
			Help:      "States.MapFailed / States.ParallelFailed occurrences",
		}, []string{"state_name", "error_code"}),
		approvals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "asl",
			Name:      "approvals_total",
			Help:      "Approval state outcomes",
		}, []string{"state_name", "outcome"}), // outcome: the decision's option, or "timeout"
		tokensTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "asl",
			Name:      "agent_tokens_total",
			Help:      "Cumulative tokens reported by agent invocations across all executions",
		}),
		costUSDTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: "asl",
			Name:      "agent_cost_usd_total",
			Help:      "Cumulative USD cost reported or estimated across all executions",
		}),
	}
}

func (m *Metrics) recordStep(stateName, stateType, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.stepLatency.WithLabelValues(stateName, stateType, status).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) recordRetry(stateName, errorCode string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(stateName, errorCode).Inc()
}

func (m *Metrics) recordMapParallelFailure(stateName, errorCode string) {
	if m == nil {
		return
	}
	m.mapFailures.WithLabelValues(stateName, errorCode).Inc()
}

func (m *Metrics) recordApproval(stateName, outcome string) {
	if m == nil {
		return
	}
	m.approvals.WithLabelValues(stateName, outcome).Inc()
}

func (m *Metrics) recordUsage(tokens int64, costUSD float64) {
	if m == nil {
		return
	}
	m.tokensTotal.Add(float64(tokens))
	m.costUSDTotal.Add(costUSD)
}

func (m *Metrics) setInflight(n int) {
	if m == nil {
		return
	}
	m.inflight.Set(float64(n))
}
