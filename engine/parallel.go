package engine

import (
	"context"
	"errors"
	"fmt"
)

// runParallel fans out over the executor against one starting context and
// commits results in input order once every agent has settled. A failing
// agent never aborts its siblings; the run fails only when every launched
// agent failed.
func (r *runState) runParallel(ctx context.Context, t Parallel) {
	defs, err := r.resolve(t.Agents...)
	if err != nil {
		r.fail(err)
		return
	}

	if !r.beforeStep(ctx) {
		return
	}

	truncated := false
	if r.maxSteps > 0 && len(defs) > r.maxSteps-r.rec.Steps {
		defs = defs[:r.maxSteps-r.rec.Steps]
		truncated = true
		r.logger.Warn("workflow.parallel.truncated", "record", r.rec.ID, "launched", len(defs), "declared", len(t.Agents))
	}

	for _, def := range defs {
		r.engine.hooks.beforeAgent(ctx, r.rec.ID, def)
	}

	opts := r.agentOptions()
	if t.MaxConcurrency > 0 {
		opts.MaxConcurrency = t.MaxConcurrency
	}

	results := r.engine.executor.ExecuteParallel(ctx, defs, r.ec, opts)

	var errs []error
	for _, res := range results {
		r.step()
		r.commit(ctx, res)
		if res.Failed() {
			errs = append(errs, fmt.Errorf("agent %s: %w", res.AgentID, res.Err()))
		}
	}

	if err := r.checkpoint(ctx); err != nil {
		r.fail(err)
		return
	}
	if len(errs) == len(results) {
		r.fail(errors.Join(errs...))
		return
	}
	if r.shouldStop() {
		r.stop(ReasonPredicate)
		return
	}
	if truncated {
		r.stop(ReasonMaxSteps)
		return
	}

	r.complete()
}
