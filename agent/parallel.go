package agent

import (
	"context"

	"github.com/sourcegraph/conc/iter"

	"github.com/hupe1980/meshflow/core"
)

// ExecuteParallel runs every definition concurrently against its own clone
// of ec, with at most opts.MaxConcurrency executions in flight (0 means all
// at once). Results are returned in input order regardless of completion
// order, and a failing agent never cancels its siblings.
func (e *Executor) ExecuteParallel(ctx context.Context, defs []core.AgentDefinition, ec *core.ExecutionContext, opts Options) []core.AgentExecutionResult {
	if len(defs) == 0 {
		return nil
	}
	if ec == nil {
		ec = core.NewExecutionContext("")
	}

	opts = opts.merge(e.defaults)

	limit := opts.MaxConcurrency
	if limit <= 0 || limit > len(defs) {
		limit = len(defs)
	}

	// Clone up front so no goroutine ever reads the owner's context.
	type slot struct {
		def core.AgentDefinition
		ec  *core.ExecutionContext
	}
	slots := make([]slot, len(defs))
	for i, def := range defs {
		slots[i] = slot{def: def, ec: ec.Clone()}
	}

	e.logger.Debug("agent.parallel.start", "agents", len(defs), "max_concurrency", limit)

	mapper := iter.Mapper[slot, core.AgentExecutionResult]{MaxGoroutines: limit}

	return mapper.Map(slots, func(s *slot) core.AgentExecutionResult {
		return e.Execute(ctx, s.def, s.ec, opts)
	})
}
