package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/internal/testutil"
)

func defs(n int) []core.AgentDefinition {
	out := make([]core.AgentDefinition, n)
	for i := range out {
		out[i] = core.AgentDefinition{ID: fmt.Sprintf("agent-%d", i)}
	}
	return out
}

func TestExecuteParallel_BoundedConcurrencyAndOrder(t *testing.T) {
	gw := &testutil.ConcurrencyGateway{Delay: 30 * time.Millisecond, Randomize: true}
	exec := NewExecutor(gw)

	in := defs(6)
	results := exec.ExecuteParallel(context.Background(), in, testutil.NewContextBuilder("c").User("go").Build(), Options{MaxConcurrency: 2})

	require.Len(t, results, len(in))
	for i, res := range results {
		assert.Equal(t, in[i].ID, res.AgentID)
		assert.Equal(t, in[i].ID+":done", res.Text())
	}
	assert.LessOrEqual(t, gw.Peak(), 2)
	assert.Equal(t, 6, gw.Total())
}

func TestExecuteParallel_Unbounded(t *testing.T) {
	gw := &testutil.ConcurrencyGateway{Delay: 50 * time.Millisecond}
	exec := NewExecutor(gw)

	results := exec.ExecuteParallel(context.Background(), defs(4), nil, Options{})

	require.Len(t, results, 4)
	assert.Equal(t, 4, gw.Peak())
}

func TestExecuteParallel_FailureIsolation(t *testing.T) {
	gw := testutil.NewScriptedGateway().On("agent-1", testutil.Fail(errors.New("boom")))
	exec := NewExecutor(gw)

	results := exec.ExecuteParallel(context.Background(), defs(3), testutil.NewContextBuilder("c").User("x").Build(), Options{})

	require.Len(t, results, 3)
	assert.Equal(t, core.TerminalCompleted, results[0].Metadata.TerminalReason)
	assert.Equal(t, core.TerminalError, results[1].Metadata.TerminalReason)
	assert.Equal(t, core.TerminalCompleted, results[2].Metadata.TerminalReason)
	assert.Equal(t, "agent-2:x", results[2].Text())
}

func TestExecuteParallel_DoesNotMutateContext(t *testing.T) {
	exec := NewExecutor(testutil.NewEchoGateway())
	ec := testutil.NewContextBuilder("c").User("x").Data("nested", map[string]any{"k": "v"}).Build()

	exec.ExecuteParallel(context.Background(), defs(3), ec, Options{})

	assert.Len(t, ec.Turns, 1)
	assert.Equal(t, map[string]any{"k": "v"}, ec.Data["nested"])
}

func TestExecuteParallel_Empty(t *testing.T) {
	exec := NewExecutor(testutil.NewEchoGateway())
	assert.Nil(t, exec.ExecuteParallel(context.Background(), nil, nil, Options{}))
}
