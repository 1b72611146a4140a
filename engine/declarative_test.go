package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/evaluation"
)

func TestParseDescriptor_Topologies(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want Topology
	}{
		{
			name: "sequential",
			doc:  "type: sequential\nagents: [a, b]\n",
			want: Sequential{Agents: []string{"a", "b"}},
		},
		{
			name: "parallel",
			doc:  "type: parallel\nagents: [a, b, c]\nmax_concurrency: 2\n",
			want: Parallel{Agents: []string{"a", "b", "c"}, MaxConcurrency: 2},
		},
		{
			name: "routing",
			doc:  "type: routing\nrouter: r\ncandidates: [x, y]\n",
			want: Routing{Router: "r", Candidates: []string{"x", "y"}, Strategy: CapabilityMatch{}},
		},
		{
			name: "evaluator optimizer",
			doc:  "type: evaluator_optimizer\ngenerator: g\nevaluator: e\ntarget_score: 0.8\n",
			want: EvaluatorOptimizer{Generator: "g", Evaluator: "e", TargetScore: 0.8},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDescriptor([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Topology)
		})
	}
}

func TestParseDescriptor_SharedFields(t *testing.T) {
	d, err := ParseDescriptor([]byte(`
id: review
name: Review pipeline
type: sequential
agents: [writer, reviewer]
max_steps: 4
timeout: 90s
stop_contains: APPROVED
`))
	require.NoError(t, err)

	assert.Equal(t, "review", d.ID)
	assert.Equal(t, "Review pipeline", d.Name)
	assert.Equal(t, 4, d.MaxSteps)
	assert.Equal(t, 90*time.Second, d.Timeout)
	require.NotNil(t, d.StopWhen)

	approved := []core.AgentExecutionResult{{Turns: []core.Turn{core.NewTextTurn(core.RoleAssistant, "reviewer", "APPROVED")}}}
	assert.True(t, d.StopWhen(1, approved))
	assert.False(t, d.StopWhen(0, nil))
}

func TestParseDescriptor_JSON(t *testing.T) {
	d, err := ParseDescriptor([]byte(`{"type": "evaluator_optimizer", "generator": "g", "evaluator": "e", "score_path": "rating"}`))
	require.NoError(t, err)

	eo, ok := d.Topology.(EvaluatorOptimizer)
	require.True(t, ok)
	assert.Equal(t, 1.0, eo.TargetScore)
	assert.IsType(t, evaluation.Chain{}, eo.Scorer)
}

func TestParseDescriptor_Errors(t *testing.T) {
	for name, doc := range map[string]string{
		"missing type":     "agents: [a]",
		"unknown type":     "type: mesh\nagents: [a]",
		"no agents":        "type: sequential",
		"bad timeout":      "type: sequential\nagents: [a]\ntimeout: soon",
		"no router":        "type: routing\ncandidates: [a]",
		"bad strategy":     "type: routing\nrouter: r\ncandidates: [a]\nstrategy: llm",
		"target too large": "type: evaluator_optimizer\ngenerator: g\nevaluator: e\ntarget_score: 3",
		"negative steps":   "type: sequential\nagents: [a]\nmax_steps: -1",
		"empty agent id":   "type: sequential\nagents: [a, '']",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDescriptor([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadDescriptor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wf.yaml")
	require.NoError(t, os.WriteFile(path, []byte("type: parallel\nagents: [a]\n"), 0o600))

	d, err := LoadDescriptor(path)
	require.NoError(t, err)
	assert.Equal(t, TopologyParallel, d.Topology.Kind())

	d, err = ReadDescriptor(strings.NewReader("type: sequential\nagents: [a]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, d.Topology.AgentIDs())

	_, err = LoadDescriptor(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCapabilityMatch(t *testing.T) {
	candidates := []core.AgentDefinition{
		{ID: "a", Capabilities: []string{"alpha"}},
		{ID: "b", Capabilities: []string{"beta", "ALPHA"}},
	}

	id, ok := CapabilityMatch{}.Select("Alpha\nreasoning...", candidates)
	assert.True(t, ok)
	assert.Equal(t, "a", id)

	id, ok = CapabilityMatch{}.Select(" beta ", candidates)
	assert.True(t, ok)
	assert.Equal(t, "b", id)

	_, ok = CapabilityMatch{}.Select("gamma", candidates)
	assert.False(t, ok)

	_, ok = CapabilityMatch{}.Select("", candidates)
	assert.False(t, ok)
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusRunning.Terminal())
	for _, s := range []Status{StatusCompleted, StatusFailed, StatusTimedOut, StatusStopped} {
		assert.True(t, s.Terminal(), s)
	}
}
