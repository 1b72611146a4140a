package engine

import (
	"context"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/logging"
)

// Hooks are lifecycle callbacks. They run synchronously on the goroutine that
// owns the run, so they observe commits in order and must not block for long.
// Any field may be nil.
type Hooks struct {
	// BeforeAgent fires before an agent execution starts. For parallel runs
	// it fires for every launched agent before the fan-out begins.
	BeforeAgent func(ctx context.Context, recordID string, def core.AgentDefinition)
	// AfterAgent fires once the result has been committed to the record.
	AfterAgent func(ctx context.Context, recordID string, res core.AgentExecutionResult)
	// OnStatus fires on every status transition.
	OnStatus func(recordID string, from, to Status)
}

func (h Hooks) beforeAgent(ctx context.Context, recordID string, def core.AgentDefinition) {
	if h.BeforeAgent != nil {
		h.BeforeAgent(ctx, recordID, def)
	}
}

func (h Hooks) afterAgent(ctx context.Context, recordID string, res core.AgentExecutionResult) {
	if h.AfterAgent != nil {
		h.AfterAgent(ctx, recordID, res)
	}
}

func (h Hooks) onStatus(recordID string, from, to Status) {
	if h.OnStatus != nil {
		h.OnStatus(recordID, from, to)
	}
}

// Chain returns hooks invoking every non-nil hook of each set in order.
func Chain(sets ...Hooks) Hooks {
	return Hooks{
		BeforeAgent: func(ctx context.Context, recordID string, def core.AgentDefinition) {
			for _, h := range sets {
				h.beforeAgent(ctx, recordID, def)
			}
		},
		AfterAgent: func(ctx context.Context, recordID string, res core.AgentExecutionResult) {
			for _, h := range sets {
				h.afterAgent(ctx, recordID, res)
			}
		},
		OnStatus: func(recordID string, from, to Status) {
			for _, h := range sets {
				h.onStatus(recordID, from, to)
			}
		},
	}
}

// LoggingHooks logs every lifecycle event at debug level.
func LoggingHooks(logger logging.Logger) Hooks {
	logger = logging.OrNoOp(logger)
	return Hooks{
		BeforeAgent: func(_ context.Context, recordID string, def core.AgentDefinition) {
			logger.Debug("workflow.agent.start", "record", recordID, "agent", def.ID)
		},
		AfterAgent: func(_ context.Context, recordID string, res core.AgentExecutionResult) {
			logger.Debug("workflow.agent.complete",
				"record", recordID,
				"agent", res.AgentID,
				"terminal_reason", res.Metadata.TerminalReason,
				"steps", res.Metadata.Steps,
			)
		},
		OnStatus: func(recordID string, from, to Status) {
			logger.Debug("workflow.status", "record", recordID, "from", from, "to", to)
		},
	}
}
