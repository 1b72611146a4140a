// Package core provides the foundational domain types shared by every
// meshflow component. It defines:
//
//   - Turns (role-based conversational content composed of typed parts)
//   - AgentDefinition (immutable description of an invokable agent)
//   - ExecutionContext (the run-owned conversation, data bag and limits)
//   - AgentExecutionResult (the immutable outcome of one agent invocation)
//   - The error taxonomy used across executor, engine and loop controller
//   - Progress events delivered through a synchronous sink
//
// The package keeps execution concerns (gateways, orchestration, looping) out
// of scope and has no dependencies on other meshflow packages.
package core
