package meshflow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshflow/artifact"
	"github.com/hupe1980/meshflow/config"
	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/engine"
	"github.com/hupe1980/meshflow/internal/testutil"
	"github.com/hupe1980/meshflow/loop"
)

func newMesh(t *testing.T, optFns ...func(o *Options)) *Mesh {
	t.Helper()
	m, err := New(testutil.NewEchoGateway(), append([]func(o *Options){func(o *Options) {
		o.Agents = []core.AgentDefinition{{ID: "A"}, {ID: "B"}}
	}}, optFns...)...)
	require.NoError(t, err)
	return m
}

func TestNew_RequiresGateway(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNew_DuplicateAgent(t *testing.T) {
	_, err := New(testutil.NewEchoGateway(), func(o *Options) {
		o.Agents = []core.AgentDefinition{{ID: "A"}, {ID: "A"}}
	})
	assert.ErrorIs(t, err, core.ErrDuplicateAgent)
}

func TestMesh_RunWorkflow(t *testing.T) {
	m := newMesh(t)

	rec, err := m.RunWorkflow(context.Background(), engine.Descriptor{
		Topology: engine.Sequential{Agents: []string{"A", "B"}},
	}, "hello")
	require.NoError(t, err)

	assert.Equal(t, engine.StatusCompleted, rec.Status)
	assert.Equal(t, "B:A:hello", rec.FinalText())
}

func TestMesh_RunAgent(t *testing.T) {
	m := newMesh(t)

	res, err := m.RunAgent(context.Background(), "A", "hi")
	require.NoError(t, err)
	assert.Equal(t, "A:hi", res.Text())

	_, err = m.RunAgent(context.Background(), "missing", "hi")
	assert.ErrorIs(t, err, core.ErrAgentNotFound)
}

func TestMesh_RunLoop(t *testing.T) {
	m := newMesh(t)
	unit, err := m.AgentUnit("A")
	require.NoError(t, err)

	state := m.RunLoop(context.Background(), unit, loop.Config{
		MaxIterations: 5,
		StopWhen: func(_ int, results []loop.Result) bool {
			return strings.HasPrefix(results[len(results)-1].Text(), "A:A:")
		},
	}, "x")

	assert.Equal(t, loop.ReasonPredicate, state.StopReason)
	assert.Equal(t, 2, state.Iteration)

	wf := m.WorkflowUnit(engine.Descriptor{Topology: engine.Sequential{Agents: []string{"B"}}})
	state = m.RunLoop(context.Background(), wf, loop.Config{MaxIterations: 2}, "y")
	assert.Equal(t, []string{"y", "B:y", "B:B:y"}, testutil.Texts(state.Context.Turns))
}

func TestMesh_ArtifactsBackRecordsAndBackups(t *testing.T) {
	store := artifact.NewInMemoryStore()
	m := newMesh(t, func(o *Options) { o.Artifacts = store })

	rec, err := m.RunWorkflow(context.Background(), engine.Descriptor{
		Topology: engine.Sequential{Agents: []string{"A"}},
	}, "hello")
	require.NoError(t, err)

	names, err := store.List(engine.RecordNamespace)
	require.NoError(t, err)
	assert.Contains(t, names, rec.ID)

	require.NoError(t, m.Backup())
	require.NoError(t, m.Register(core.AgentDefinition{ID: "C"}))
	assert.Equal(t, 3, m.Catalog().Len())
	require.NoError(t, m.Restore())
	assert.Equal(t, 2, m.Catalog().Len())
}

func TestMesh_BackupWithoutArtifacts(t *testing.T) {
	m := newMesh(t)
	assert.ErrorIs(t, m.Backup(), ErrNoArtifacts)
	assert.ErrorIs(t, m.Restore(), ErrNoArtifacts)
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Gateway.Provider = config.ProviderMock
	cfg.Engine.MaxSteps = 1

	m, err := NewFromConfig(cfg, func(o *Options) {
		o.Agents = []core.AgentDefinition{{ID: "A"}, {ID: "B"}}
	})
	require.NoError(t, err)

	rec, err := m.RunWorkflow(context.Background(), engine.Descriptor{
		Topology: engine.Sequential{Agents: []string{"A", "B"}},
	}, "hello")
	require.NoError(t, err)

	assert.Equal(t, engine.StatusStopped, rec.Status)
	assert.Equal(t, engine.ReasonMaxSteps, rec.StopReason)
	assert.Equal(t, "Mock response to: hello", rec.FinalText())
	assert.Equal(t, 10, m.Executor().Defaults().MaxSteps)
}
