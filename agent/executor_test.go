package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/internal/testutil"
	"github.com/hupe1980/meshflow/model"
	"github.com/hupe1980/meshflow/tool"
)

func sumTool() tool.Tool {
	return tool.NewFunctionTool("sum", "Add two numbers", map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number"},
			"b": map[string]any{"type": "number"},
		},
		"required": []string{"a", "b"},
	}, func(_ *tool.Context, args map[string]any) (any, error) {
		return args["a"].(float64) + args["b"].(float64), nil
	})
}

func TestExecute_Echo(t *testing.T) {
	exec := NewExecutor(testutil.NewEchoGateway())
	ec := testutil.NewContextBuilder("conv").User("hello").Build()

	res := exec.Execute(context.Background(), core.AgentDefinition{ID: "A"}, ec, Options{})

	require.NoError(t, res.Err())
	assert.Equal(t, core.TerminalCompleted, res.Metadata.TerminalReason)
	assert.Equal(t, "A:hello", res.Text())
	assert.Equal(t, 1, res.Metadata.Steps)
	require.Len(t, res.Turns, 1)
	assert.Equal(t, "A", res.Turns[0].Author)
	assert.Equal(t, core.RoleAssistant, res.Turns[0].Role)
	assert.Len(t, ec.Turns, 1, "caller context must not be mutated")
}

func TestExecute_ToolRoundTrip(t *testing.T) {
	gw := testutil.NewScriptedGateway().On("calc",
		testutil.Turn(testutil.ToolCallTurn("call-1", "sum", `{"a":1,"b":2}`)),
		func(req model.Request, _ int) (*model.Response, error) {
			last := req.Turns[len(req.Turns)-1]
			resps := last.FunctionResponses()
			if len(resps) != 1 {
				return nil, errors.New("missing tool response")
			}
			return &model.Response{Turn: core.NewTextTurn(core.RoleAssistant, "", "result is "+model.ToolResultText(resps[0]))}, nil
		},
	)

	exec := NewExecutor(gw, func(o *ExecutorOptions) {
		o.Tools = tool.NewRegistry(sumTool())
	})

	res := exec.Execute(context.Background(), core.AgentDefinition{ID: "calc", Tools: []string{"sum"}},
		testutil.NewContextBuilder("c").User("add").Build(), Options{})

	require.NoError(t, res.Err())
	assert.Equal(t, 2, res.Metadata.Steps)
	assert.Equal(t, 1, res.Metadata.ToolCalls)
	require.Len(t, res.Turns, 3)
	assert.Equal(t, core.RoleTool, res.Turns[1].Role)
	resp := res.Turns[1].FunctionResponses()
	require.Len(t, resp, 1)
	assert.Equal(t, "call-1", resp[0].ID)
	assert.Equal(t, 3.0, resp[0].Response)
	assert.Equal(t, "result is 3", res.Text())

	reqs := gw.Requests()
	require.Len(t, reqs, 2)
	require.Len(t, reqs[0].Tools, 1)
	assert.Equal(t, "sum", reqs[0].Tools[0].Function.Name)
}

func TestExecute_UndeclaredToolCallYieldsNotFound(t *testing.T) {
	gw := testutil.NewScriptedGateway().On("a",
		testutil.Turn(testutil.ToolCallTurn("call-1", "shell", `{}`)),
		testutil.Text("ok"),
	)
	exec := NewExecutor(gw, func(o *ExecutorOptions) {
		o.Tools = tool.NewRegistry(sumTool())
	})

	res := exec.Execute(context.Background(), core.AgentDefinition{ID: "a"}, nil, Options{})

	require.NoError(t, res.Err())
	resp := res.Turns[1].FunctionResponses()
	require.Len(t, resp, 1)
	assert.Contains(t, resp[0].Error, tool.CodeNotFound)
	assert.Equal(t, "ok", res.Text())
}

func TestExecute_InvalidToolArguments(t *testing.T) {
	gw := testutil.NewScriptedGateway().On("a",
		testutil.Turn(testutil.ToolCallTurn("call-1", "sum", `{not json`)),
		testutil.Text("ok"),
	)
	exec := NewExecutor(gw, func(o *ExecutorOptions) {
		o.Tools = tool.NewRegistry(sumTool())
	})

	res := exec.Execute(context.Background(), core.AgentDefinition{ID: "a", Tools: []string{"sum"}}, nil, Options{})

	require.NoError(t, res.Err())
	assert.Contains(t, res.Turns[1].FunctionResponses()[0].Error, tool.CodeValidation)
}

func TestExecute_UnknownDeclaredToolFailsBeforeGateway(t *testing.T) {
	gw := testutil.NewScriptedGateway()
	exec := NewExecutor(gw)

	res := exec.Execute(context.Background(), core.AgentDefinition{ID: "a", Tools: []string{"missing"}}, nil, Options{})

	assert.Equal(t, core.TerminalError, res.Metadata.TerminalReason)
	assert.ErrorIs(t, res.Err(), tool.ErrToolNotFound)
	assert.Equal(t, 0, gw.CallCount("a"))
}

func TestExecute_MaxSteps(t *testing.T) {
	gw := testutil.NewScriptedGateway().On("loop",
		testutil.Turn(testutil.ToolCallTurn("call", "sum", `{"a":1,"b":1}`)),
	)
	exec := NewExecutor(gw, func(o *ExecutorOptions) {
		o.Tools = tool.NewRegistry(sumTool())
	})

	res := exec.Execute(context.Background(), core.AgentDefinition{ID: "loop", Tools: []string{"sum"}}, nil, Options{MaxSteps: 3})

	assert.Equal(t, core.TerminalMaxSteps, res.Metadata.TerminalReason)
	assert.ErrorIs(t, res.Err(), core.ErrMaxStepsExceeded)
	assert.Equal(t, 3, res.Metadata.Steps)
	assert.Equal(t, 3, gw.CallCount("loop"))
	assert.Equal(t, 3, res.Metadata.ToolCalls)
}

func TestExecute_Timeout(t *testing.T) {
	exec := NewExecutor(&testutil.SlowGateway{Delay: time.Second})

	start := time.Now()
	res := exec.Execute(context.Background(), core.AgentDefinition{ID: "slow"}, nil, Options{Timeout: 20 * time.Millisecond})

	assert.Equal(t, core.TerminalTimeout, res.Metadata.TerminalReason)
	assert.ErrorIs(t, res.Err(), core.ErrTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestExecute_ContextLimitsDeadline(t *testing.T) {
	exec := NewExecutor(testutil.NewEchoGateway())
	ec := testutil.NewContextBuilder("c").User("hi").Build()
	ec.Limits.Deadline = time.Now().Add(-time.Second)

	res := exec.Execute(context.Background(), core.AgentDefinition{ID: "a"}, ec, Options{})

	assert.Equal(t, core.TerminalTimeout, res.Metadata.TerminalReason)
	assert.Equal(t, 0, res.Metadata.Steps)
}

func TestExecute_CancelledBeforeStart(t *testing.T) {
	gw := testutil.NewEchoGateway()
	exec := NewExecutor(gw)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := exec.Execute(ctx, core.AgentDefinition{ID: "a"}, nil, Options{})

	assert.Equal(t, core.TerminalError, res.Metadata.TerminalReason)
	assert.ErrorIs(t, res.Err(), core.ErrCancelled)
	assert.Equal(t, 0, gw.Calls())
}

func TestExecute_CancelDoesNotInterruptInFlightCall(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gw := model.GatewayFunc(func(callCtx context.Context, req model.Request) (*model.Response, error) {
		cancel()
		select {
		case <-callCtx.Done():
			return nil, callCtx.Err()
		case <-time.After(20 * time.Millisecond):
		}
		return &model.Response{Turn: testutil.ToolCallTurn("c", "sum", `{"a":1,"b":2}`)}, nil
	})
	exec := NewExecutor(gw, func(o *ExecutorOptions) {
		o.Tools = tool.NewRegistry(sumTool())
	})

	res := exec.Execute(ctx, core.AgentDefinition{ID: "a", Tools: []string{"sum"}}, nil, Options{})

	// The in-flight round trip and its tool calls complete; the stop is
	// observed at the next checkpoint.
	assert.Equal(t, core.TerminalError, res.Metadata.TerminalReason)
	assert.ErrorIs(t, res.Err(), core.ErrCancelled)
	assert.Equal(t, 1, res.Metadata.Steps)
	assert.Equal(t, 1, res.Metadata.ToolCalls)
	assert.Len(t, res.Turns, 2)
}

func TestExecute_StreamingEmitsDeltas(t *testing.T) {
	gw := model.NewMockGateway("mock")
	gw.AddResponse("hello", "world")
	exec := NewExecutor(gw)

	var (
		mu     sync.Mutex
		deltas strings.Builder
		kinds  []core.ProgressKind
	)
	sink := func(p core.Progress) {
		mu.Lock()
		defer mu.Unlock()
		kinds = append(kinds, p.Kind)
		if p.Kind == core.ProgressDelta {
			deltas.WriteString(p.Delta)
		}
	}

	res := exec.Execute(context.Background(), core.AgentDefinition{ID: "s"},
		testutil.NewContextBuilder("c").User("hello").Build(),
		Options{Streaming: true, Progress: sink})

	require.NoError(t, res.Err())
	assert.Equal(t, "world", res.Text())
	assert.Equal(t, "world", deltas.String())
	assert.Equal(t, core.ProgressStepStarted, kinds[0])
	assert.Equal(t, core.ProgressStepCompleted, kinds[len(kinds)-1])
}

func TestExecute_GatewayPanicBecomesError(t *testing.T) {
	gw := model.GatewayFunc(func(context.Context, model.Request) (*model.Response, error) {
		panic("boom")
	})
	exec := NewExecutor(gw)

	res := exec.Execute(context.Background(), core.AgentDefinition{ID: "p"}, nil, Options{})

	assert.Equal(t, core.TerminalError, res.Metadata.TerminalReason)
	assert.ErrorIs(t, res.Err(), core.ErrGateway)
}

func TestExecute_GatewayErrorWrapped(t *testing.T) {
	gw := testutil.NewScriptedGateway().On("a", testutil.Fail(errors.New("connection reset")))
	exec := NewExecutor(gw)

	res := exec.Execute(context.Background(), core.AgentDefinition{ID: "a"}, nil, Options{})

	assert.Equal(t, core.TerminalError, res.Metadata.TerminalReason)
	assert.ErrorIs(t, res.Err(), core.ErrGateway)
	assert.Contains(t, res.Error, "connection reset")
}

func TestExecute_InstructionsRenderedFromData(t *testing.T) {
	gw := testutil.NewScriptedGateway()
	exec := NewExecutor(gw)
	ec := testutil.NewContextBuilder("c").User("hi").Data("name", "Ada").Build()

	res := exec.Execute(context.Background(), core.AgentDefinition{
		ID:           "greeter",
		Instructions: "Greet {{.name}} politely.",
		Model:        "gpt-test",
	}, ec, Options{Model: "ignored"})

	require.NoError(t, res.Err())
	reqs := gw.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Greet Ada politely.", reqs[0].Instructions)
	assert.Equal(t, "gpt-test", reqs[0].Model)
}

func TestExecute_StructuredOutput(t *testing.T) {
	gw := testutil.NewScriptedGateway().On("j", testutil.Text("```json\n{\"score\": 0.9, \"verdict\": \"ok\"}\n```"))
	exec := NewExecutor(gw)

	res := exec.Execute(context.Background(), core.AgentDefinition{ID: "j"}, nil, Options{})

	require.NoError(t, res.Err())
	require.NotNil(t, res.Output)
	assert.Equal(t, 0.9, res.Output["score"])
	assert.Equal(t, "ok", res.Output["verdict"])
}

func TestExecute_HistoryTrimmed(t *testing.T) {
	gw := testutil.NewScriptedGateway()
	exec := NewExecutor(gw)
	ec := testutil.NewContextBuilder("c").User("one").User("two").User("three").Build()

	exec.Execute(context.Background(), core.AgentDefinition{ID: "a"}, ec, Options{MaxHistoryTurns: 2})

	reqs := gw.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"two", "three"}, testutil.Texts(reqs[0].Turns))
}

func TestStructuredOutput(t *testing.T) {
	assert.Nil(t, structuredOutput("plain text"))
	assert.Nil(t, structuredOutput("[1,2,3]"))
	assert.Equal(t, map[string]any{"a": 1.0}, structuredOutput(`  {"a": 1} `))
}

func TestEffectiveDeadline(t *testing.T) {
	now := time.Now()
	limit := now.Add(time.Minute)

	assert.True(t, effectiveDeadline(context.Background(), 0, time.Time{}).IsZero())
	assert.Equal(t, limit, effectiveDeadline(context.Background(), time.Hour, limit))

	ctx, cancel := context.WithDeadline(context.Background(), now.Add(time.Second))
	defer cancel()
	assert.Equal(t, now.Add(time.Second), effectiveDeadline(ctx, time.Hour, limit))
}
