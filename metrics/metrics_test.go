package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, c prometheus.Metric) float64 {
	t.Helper()
	var pb dto.Metric
	require.NoError(t, c.Write(&pb))
	switch {
	case pb.Counter != nil:
		return pb.Counter.GetValue()
	case pb.Gauge != nil:
		return pb.Gauge.GetValue()
	}
	t.Fatalf("unsupported metric type")
	return 0
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveWorkflow("sequential", "completed", time.Second)
	m.ObserveWorkflow("sequential", "completed", time.Second)
	m.ObserveAgent("writer", "completed", 100*time.Millisecond)
	m.ObserveLoopIteration(true)

	assert.Equal(t, 2.0, value(t, m.WorkflowRunsTotal.WithLabelValues("sequential", "completed")))
	assert.Equal(t, 1.0, value(t, m.AgentExecutionsTotal.WithLabelValues("writer", "completed")))
	assert.Equal(t, 1.0, value(t, m.LoopIterationsTotal.WithLabelValues("error")))

	done := m.GatewayCallStarted()
	assert.Equal(t, 1.0, value(t, m.GatewayInflight))
	done()
	assert.Equal(t, 0.0, value(t, m.GatewayInflight))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveWorkflow("parallel", "failed", time.Second)
		m.ObserveAgent("a", "error", time.Second)
		m.ObserveLoopIteration(false)
		m.GatewayCallStarted()()
	})
}

func TestNew_NilRegistererDoesNotPanicTwice(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil)
		New(nil)
	})
}
