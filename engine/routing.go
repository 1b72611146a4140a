package engine

import (
	"context"
	"fmt"

	"github.com/hupe1980/meshflow/core"
)

// runRouting runs the router, selects exactly one candidate and runs it once.
func (r *runState) runRouting(ctx context.Context, t Routing) {
	defs, err := r.resolve(t.AgentIDs()...)
	if err != nil {
		r.fail(err)
		return
	}
	router, candidates := defs[0], defs[1:]

	strategy := t.Strategy
	if strategy == nil {
		strategy = CapabilityMatch{}
	}

	if !r.beforeStep(ctx) {
		return
	}

	res := r.execute(ctx, router)
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

	dest, ok := selectCandidate(strategy, res.Text(), candidates)
	if !ok {
		r.fail(fmt.Errorf("%w: router %s answered %q", core.ErrNoMatchingRoute, router.ID, res.Text()))
		return
	}
	r.rec.Route = dest.ID
	r.logger.Debug("workflow.route.selected", "record", r.rec.ID, "router", router.ID, "destination", dest.ID)

	if !r.beforeStep(ctx) {
		return
	}

	res = r.execute(ctx, dest)
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

	r.complete()
}

// selectCandidate only accepts ids among the candidates.
func selectCandidate(s RouteStrategy, output string, candidates []core.AgentDefinition) (core.AgentDefinition, bool) {
	id, ok := s.Select(output, candidates)
	if !ok {
		return core.AgentDefinition{}, false
	}
	for _, c := range candidates {
		if c.ID == id {
			return c, true
		}
	}
	return core.AgentDefinition{}, false
}
