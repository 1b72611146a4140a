package engine

import (
	"context"
)

// runSequential runs agents in order. Each agent sees every turn committed
// before it; an error-terminal result aborts the run.
func (r *runState) runSequential(ctx context.Context, t Sequential) {
	defs, err := r.resolve(t.Agents...)
	if err != nil {
		r.fail(err)
		return
	}

	for _, def := range defs {
		if !r.beforeStep(ctx) {
			return
		}

		res := r.execute(ctx, def)
		r.step()
		r.commit(ctx, res)

		if res.Failed() {
			r.failAgent(res)
			return
		}
		if r.shouldStop() {
			r.stop(ReasonPredicate)
			return
		}
	}

	r.complete()
}
