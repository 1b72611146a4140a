package engine

import (
	"context"

	"github.com/hupe1980/meshflow/evaluation"
)

// runEvaluatorOptimizer alternates generator and evaluator. One round is one
// step. The run completes once a score reaches the target and stops when the
// round budget is spent. A failed round is recorded and the next round runs.
func (r *runState) runEvaluatorOptimizer(ctx context.Context, t EvaluatorOptimizer) {
	defs, err := r.resolve(t.Generator, t.Evaluator)
	if err != nil {
		r.fail(err)
		return
	}
	generator, evaluator := defs[0], defs[1]

	target := t.TargetScore
	if target == 0 {
		target = 1
	}
	scorer := t.Scorer
	if scorer == nil {
		scorer = evaluation.Default()
	}

	for {
		if !r.beforeStep(ctx) {
			return
		}

		round := r.rec.Steps + 1

		draft := r.execute(ctx, generator)
		r.commit(ctx, draft)

		if draft.Failed() {
			r.logger.Warn("workflow.evaluator.generator_failed", "record", r.rec.ID, "round", round, "error", draft.Error)
			r.step()
			if r.shouldStop() {
				r.stop(ReasonPredicate)
				return
			}
			continue
		}

		critique := r.execute(ctx, evaluator)
		r.commit(ctx, critique)
		r.step()

		if critique.Failed() {
			r.logger.Warn("workflow.evaluator.evaluator_failed", "record", r.rec.ID, "round", round, "error", critique.Error)
		} else if score, err := scorer.Score(critique); err != nil {
			r.logger.Warn("workflow.evaluator.no_score", "record", r.rec.ID, "round", round, "error", err)
		} else {
			r.rec.Scores = append(r.rec.Scores, score)
			r.snapshot()
			r.logger.Debug("workflow.evaluator.scored", "record", r.rec.ID, "round", round, "score", score, "target", target)
			if score >= target {
				r.complete()
				return
			}
		}

		if r.shouldStop() {
			r.stop(ReasonPredicate)
			return
		}
	}
}
