package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGatewayError_Is(t *testing.T) {
	cause := errors.New("503")
	err := fmt.Errorf("wrapped: %w", NewGatewayError("openai", "complete", cause))

	assert.ErrorIs(t, err, ErrGateway)
	assert.ErrorIs(t, err, cause)

	var gwErr *GatewayError
	assert.True(t, errors.As(err, &gwErr))
	assert.Equal(t, "openai", gwErr.Provider)
	assert.Contains(t, err.Error(), "gateway openai complete: 503")
}

func TestReasonFor(t *testing.T) {
	assert.Equal(t, TerminalCompleted, ReasonFor(nil))
	assert.Equal(t, TerminalTimeout, ReasonFor(fmt.Errorf("x: %w", ErrTimeout)))
	assert.Equal(t, TerminalTimeout, ReasonFor(context.DeadlineExceeded))
	assert.Equal(t, TerminalMaxSteps, ReasonFor(ErrMaxStepsExceeded))
	assert.Equal(t, TerminalError, ReasonFor(ErrCancelled))
	assert.Equal(t, TerminalError, ReasonFor(errors.New("boom")))
}

func TestFromContext(t *testing.T) {
	assert.NoError(t, FromContext(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, FromContext(ctx), ErrCancelled)

	dctx, dcancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer dcancel()
	assert.ErrorIs(t, FromContext(dctx), ErrTimeout)
}

func TestAgentError_DecodedResultClassification(t *testing.T) {
	r := AgentExecutionResult{AgentID: "a", Error: "too slow", Metadata: ExecutionMetadata{TerminalReason: TerminalTimeout}}

	err := r.Err()
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "agent a (timeout): too slow")
	assert.True(t, r.Failed())
}

func TestNewErrorResult(t *testing.T) {
	cause := fmt.Errorf("%w: x", ErrAgentNotFound)
	r := NewErrorResult("x", TerminalError, cause)

	assert.Equal(t, "x", r.AgentID)
	assert.Equal(t, TerminalError, r.Metadata.TerminalReason)
	assert.ErrorIs(t, r.Err(), ErrAgentNotFound)
	assert.Empty(t, r.Text())
}
