package core

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTimeout is reported when a per-agent, per-run or per-loop deadline elapses.
	ErrTimeout = errors.New("deadline exceeded")
	// ErrCancelled is reported when an external stop is observed at a checkpoint.
	ErrCancelled = errors.New("execution cancelled")
	// ErrNoMatchingRoute is returned when a routing step cannot select a destination.
	ErrNoMatchingRoute = errors.New("no matching route")
	// ErrDuplicateAgent is returned when registering an id that already exists.
	ErrDuplicateAgent = errors.New("agent already registered")
	// ErrAgentNotFound is returned when an agent id cannot be resolved.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrGateway marks failures of the completion capability.
	ErrGateway = errors.New("gateway error")
	// ErrMaxStepsExceeded is returned when a tool-call loop exceeds its bound.
	ErrMaxStepsExceeded = errors.New("max steps exceeded")
)

// GatewayError wraps a failure of the completion capability (transport error,
// unusable payload, provider-side error event).
type GatewayError struct {
	Provider string
	Op       string
	Err      error
}

// NewGatewayError wraps err as a GatewayError.
func NewGatewayError(provider, op string, err error) *GatewayError {
	return &GatewayError{Provider: provider, Op: op, Err: err}
}

func (e *GatewayError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("gateway %s %s: %v", e.Provider, e.Op, e.Err)
	}
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *GatewayError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrGateway) succeed for every GatewayError.
func (e *GatewayError) Is(target error) bool { return target == ErrGateway }

// AgentError describes the failure of one agent invocation.
type AgentError struct {
	AgentID string
	Reason  TerminalReason
	Message string
	Err     error
}

func (e *AgentError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("agent %s (%s): %s", e.AgentID, e.Reason, msg)
}

// Unwrap returns the underlying cause, if known.
func (e *AgentError) Unwrap() error { return e.Err }

// Is maps terminal reasons onto the sentinel taxonomy so decoded results
// still classify correctly.
func (e *AgentError) Is(target error) bool {
	switch e.Reason {
	case TerminalTimeout:
		return target == ErrTimeout
	case TerminalMaxSteps:
		return target == ErrMaxStepsExceeded
	}
	return false
}

// ReasonFor classifies an invocation error into a terminal reason.
func ReasonFor(err error) TerminalReason {
	switch {
	case err == nil:
		return TerminalCompleted
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return TerminalTimeout
	case errors.Is(err, ErrMaxStepsExceeded):
		return TerminalMaxSteps
	default:
		return TerminalError
	}
}

// FromContext converts a done context into the taxonomy: a passed deadline
// becomes ErrTimeout, anything else ErrCancelled. Returns nil while ctx is live.
func FromContext(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
}
