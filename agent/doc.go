// Package agent contains the Agent Executor: it runs one agent definition to
// completion against an ExecutionContext and folds the gateway round trips
// (including tool calls) into a core.AgentExecutionResult.
//
// Execution model:
//   - The executor never writes into the caller's ExecutionContext. Produced
//     turns are returned in the result and the owner of the run appends them.
//   - Each gateway round trip is one step, bounded by Options.MaxSteps.
//   - A deadline (Options.Timeout, the context deadline and Limits.Deadline,
//     whichever is earliest) bounds wall-clock time and yields terminal
//     reason "timeout". In-flight gateway calls are bounded by that deadline
//     but are not interrupted by cancellation.
//   - Cancellation is observed between round trips only and yields terminal
//     reason "error" wrapping core.ErrCancelled.
//   - Failures are captured on the result, never returned.
//
// ExecuteParallel fans one context out to many agents under a concurrency
// ceiling. Every agent receives an independent clone of the context and one
// agent's failure never cancels its siblings.
package agent
