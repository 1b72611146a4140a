// Package metrics exposes Prometheus collectors for workflow runs, agent
// executions, in-flight gateway calls and loop iterations. A nil *Metrics is
// valid and records nothing, so components accept it as an optional option.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors.
type Metrics struct {
	WorkflowRunsTotal *prometheus.CounterVec
	WorkflowDuration  *prometheus.HistogramVec

	AgentExecutionsTotal *prometheus.CounterVec
	AgentDuration        *prometheus.HistogramVec

	GatewayInflight prometheus.Gauge

	LoopIterationsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg uses a
// fresh private registry, which keeps tests and repeated construction free of
// duplicate-registration panics.
//
// Metrics:
//   - meshflow_workflow_runs_total{topology,status}
//   - meshflow_workflow_duration_seconds{topology}
//   - meshflow_agent_executions_total{agent,terminal_reason}
//   - meshflow_agent_duration_seconds{agent}
//   - meshflow_gateway_inflight
//   - meshflow_loop_iterations_total{outcome}
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		WorkflowRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshflow_workflow_runs_total",
				Help: "Total number of workflow runs by topology and terminal status",
			},
			[]string{"topology", "status"},
		),
		WorkflowDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meshflow_workflow_duration_seconds",
				Help:    "Duration of workflow runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
			[]string{"topology"},
		),
		AgentExecutionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshflow_agent_executions_total",
				Help: "Total number of agent executions by terminal reason",
			},
			[]string{"agent", "terminal_reason"},
		),
		AgentDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "meshflow_agent_duration_seconds",
				Help:    "Duration of single agent executions in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"agent"},
		),
		GatewayInflight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "meshflow_gateway_inflight",
				Help: "Number of completion gateway calls currently in flight",
			},
		),
		LoopIterationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "meshflow_loop_iterations_total",
				Help: "Total number of loop iterations by outcome",
			},
			[]string{"outcome"}, // "success" or "error"
		),
	}
}

// ObserveWorkflow records one finished workflow run.
func (m *Metrics) ObserveWorkflow(topology, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.WorkflowRunsTotal.WithLabelValues(topology, status).Inc()
	m.WorkflowDuration.WithLabelValues(topology).Observe(d.Seconds())
}

// ObserveAgent records one finished agent execution.
func (m *Metrics) ObserveAgent(agentID, terminalReason string, d time.Duration) {
	if m == nil {
		return
	}
	m.AgentExecutionsTotal.WithLabelValues(agentID, terminalReason).Inc()
	m.AgentDuration.WithLabelValues(agentID).Observe(d.Seconds())
}

// GatewayCallStarted increments the in-flight gauge and returns the matching
// decrement.
func (m *Metrics) GatewayCallStarted() func() {
	if m == nil {
		return func() {}
	}
	m.GatewayInflight.Inc()
	return m.GatewayInflight.Dec
}

// ObserveLoopIteration records one loop iteration outcome.
func (m *Metrics) ObserveLoopIteration(failed bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if failed {
		outcome = "error"
	}
	m.LoopIterationsTotal.WithLabelValues(outcome).Inc()
}
