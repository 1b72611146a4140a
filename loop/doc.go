// Package loop repeats a single agent or a whole workflow until a condition
// holds.
//
// A Controller invokes its Unit once per iteration and appends the turns each
// iteration produced to a context it owns, so iteration n+1 sees the output
// of iteration n. The loop ends when StopWhen returns true (never before
// MinIterations have run), when MaxIterations is reached, when TotalTimeout
// elapses, when Stop is called, or when an iteration fails and OnError does
// not ask to continue. Stop is only observed between iterations: an
// in-flight iteration always runs to completion or to its own deadline.
//
// Example:
//
//	ctrl := loop.New(loop.Config{
//	    MaxIterations: 5,
//	    MinIterations: 2,
//	    StopWhen: func(_ int, results []loop.Result) bool {
//	        return strings.Contains(results[len(results)-1].Text(), "DONE")
//	    },
//	})
//	state := ctrl.Run(ctx, loop.AgentUnit{Executor: exec, Definition: def}, ec)
//	fmt.Println(state.StopReason, state.Iteration)
package loop
