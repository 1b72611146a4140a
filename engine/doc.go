// Package engine implements the workflow orchestration layer of meshflow.
//
// The Engine turns a Descriptor (a topology plus shared limits) into a
// time-bounded, cancellable run and records everything it does in a Record.
// Agent ids are resolved through a catalog.Catalog before any agent runs and
// every agent invocation goes through an agent.Executor.
//
// # Topologies
//
// The Topology set is closed and dispatched with an exhaustive type switch:
//
//   - Sequential: agents run one at a time; each sees the turns of all
//     agents before it. An error-terminal agent aborts the run.
//   - Parallel: agents run concurrently against the same starting context;
//     their turns are merged in input order once all have settled. Single
//     failures do not abort the run.
//   - Routing: the router runs first, a RouteStrategy picks exactly one
//     candidate from its answer, and that candidate runs once. No match
//     fails the run with core.ErrNoMatchingRoute.
//   - EvaluatorOptimizer: generator and evaluator alternate until an
//     evaluation.Scorer reports the target score or the round budget ends.
//
// # Lifecycle
//
//	pending -> running -> completed | failed | timed_out | stopped
//
// A step is one agent execution (one generate+evaluate round for
// EvaluatorOptimizer). Before every step the engine checks the run deadline,
// then external cancellation (Engine.Cancel or the caller's context), then
// the step budget. After every committed step it evaluates the descriptor's
// StopWhen predicate. Cancellation is cooperative: an in-flight gateway call
// is never interrupted, only bounded by its deadline.
//
// # Usage
//
//	cat := catalog.New(
//	    core.AgentDefinition{ID: "writer", Instructions: "Write a draft."},
//	    core.AgentDefinition{ID: "editor", Instructions: "Polish the draft."},
//	)
//	exec := agent.NewExecutor(gateway)
//	eng := engine.New(cat, exec, func(o *engine.Options) {
//	    o.Timeout = 5 * time.Minute
//	})
//
//	rec, err := eng.Execute(ctx, engine.Descriptor{
//	    ID:       "draft",
//	    Topology: engine.Sequential{Agents: []string{"writer", "editor"}},
//	}, core.NewExecutionContext("", core.NewUserTurn("Write about Go")))
//	if err != nil {
//	    return err // invalid descriptor
//	}
//	fmt.Println(rec.Status, rec.FinalText())
//
// Records are kept in a RecordStore (in-memory by default, or JSON blobs in
// an artifact.Store via ArtifactRecordStore) and can be listed with
// Engine.Records while runs progress.
package engine
