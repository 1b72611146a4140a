package loop

import (
	"context"
	"time"

	"github.com/hupe1980/meshflow/agent"
	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/engine"
)

// Result is the outcome of one iteration.
type Result struct {
	Iteration int           `json:"iteration"`
	Turns     []core.Turn   `json:"turns"`
	Duration  time.Duration `json:"duration"`
	// Agent is set by AgentUnit.
	Agent *core.AgentExecutionResult `json:"agent,omitempty"`
	// Record is set by WorkflowUnit.
	Record *engine.Record `json:"record,omitempty"`
	Err    error          `json:"-"`
}

// Failed reports whether the iteration aborted.
func (r Result) Failed() bool { return r.Err != nil }

// Text returns the last assistant text produced by the iteration.
func (r Result) Text() string {
	for i := len(r.Turns) - 1; i >= 0; i-- {
		if r.Turns[i].Role == core.RoleAssistant {
			if txt := r.Turns[i].Text(); txt != "" {
				return txt
			}
		}
	}
	return ""
}

// Unit is the work repeated by a Controller. Run receives a context copy it
// may read freely; the turns it returns are appended by the controller.
type Unit interface {
	Name() string
	Run(ctx context.Context, ec *core.ExecutionContext) Result
}

// AgentUnit repeats a single agent execution.
type AgentUnit struct {
	Executor   *agent.Executor
	Definition core.AgentDefinition
	Options    agent.Options
}

// Name implements Unit.
func (u AgentUnit) Name() string { return u.Definition.ID }

// Run implements Unit. Any non-completed terminal reason is an iteration
// failure.
func (u AgentUnit) Run(ctx context.Context, ec *core.ExecutionContext) Result {
	res := u.Executor.Execute(ctx, u.Definition, ec, u.Options)
	out := Result{Turns: res.Turns, Agent: &res, Duration: res.Metadata.Duration}
	if res.Failed() {
		out.Err = res.Err()
	}
	return out
}

// WorkflowUnit repeats a whole workflow run.
type WorkflowUnit struct {
	Engine     *engine.Engine
	Descriptor engine.Descriptor
}

// Name implements Unit.
func (u WorkflowUnit) Name() string {
	if u.Descriptor.ID != "" {
		return u.Descriptor.ID
	}
	if u.Descriptor.Topology == nil {
		return "workflow"
	}
	return u.Descriptor.Topology.Kind()
}

// Run implements Unit. Failed and timed out records are iteration failures;
// a stopped record is a regular outcome.
func (u WorkflowUnit) Run(ctx context.Context, ec *core.ExecutionContext) Result {
	start := time.Now()

	rec, err := u.Engine.Execute(ctx, u.Descriptor, ec)
	if err != nil {
		return Result{Err: err, Duration: time.Since(start)}
	}

	out := Result{Record: rec, Duration: rec.Duration()}
	if rec.Context != nil && len(rec.Context.Turns) >= len(ec.Turns) {
		out.Turns = rec.Context.Turns[len(ec.Turns):]
	}
	if rec.Status == engine.StatusFailed || rec.Status == engine.StatusTimedOut {
		out.Err = rec.Err()
	}
	return out
}
