package core

// ProgressKind enumerates the progress notifications emitted by the executor.
type ProgressKind string

const (
	// ProgressStepStarted is emitted before each gateway round trip.
	ProgressStepStarted ProgressKind = "step_started"
	// ProgressStepCompleted is emitted after a round trip's turn is folded in.
	ProgressStepCompleted ProgressKind = "step_completed"
	// ProgressToolCall is emitted after each tool call completes.
	ProgressToolCall ProgressKind = "tool_call"
	// ProgressDelta carries an incremental text chunk from a streaming gateway.
	ProgressDelta ProgressKind = "delta"
)

// Progress is a single synchronous progress notification. Step is 1-based;
// TotalSteps is the step ceiling (0 when unbounded).
type Progress struct {
	Kind       ProgressKind `json:"kind"`
	AgentID    string       `json:"agent_id"`
	Step       int          `json:"step"`
	TotalSteps int          `json:"total_steps"`
	MessageID  string       `json:"message_id,omitempty"`
	ToolName   string       `json:"tool_name,omitempty"`
	Delta      string       `json:"delta,omitempty"`
}

// ProgressSink receives progress notifications synchronously on the calling
// goroutine. Sinks must not block for long: the executor waits for them.
type ProgressSink func(Progress)

// Emit invokes the sink when non-nil.
func (s ProgressSink) Emit(p Progress) {
	if s != nil {
		s(p)
	}
}
