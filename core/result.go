package core

import "time"

// TerminalReason explains why a single agent invocation stopped.
type TerminalReason string

const (
	TerminalCompleted TerminalReason = "completed"
	TerminalMaxSteps  TerminalReason = "max_steps"
	TerminalTimeout   TerminalReason = "timeout"
	TerminalError     TerminalReason = "error"
)

// Usage captures token usage statistics reported by a gateway.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates other into u.
func (u *Usage) Add(other *Usage) {
	if other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// ExecutionMetadata describes how an agent invocation unfolded.
type ExecutionMetadata struct {
	Steps          int            `json:"steps"`
	ToolCalls      int            `json:"tool_calls"`
	Usage          Usage          `json:"usage"`
	StartedAt      time.Time      `json:"started_at"`
	Duration       time.Duration  `json:"duration"`
	TerminalReason TerminalReason `json:"terminal_reason"`
}

// AgentExecutionResult is the immutable outcome of running one agent. Errors
// local to the invocation are captured here (TerminalReason + Error) rather
// than returned, so composite topologies can continue around a failure.
type AgentExecutionResult struct {
	AgentID  string            `json:"agent_id"`
	Turns    []Turn            `json:"turns"`
	Output   map[string]any    `json:"output,omitempty"`
	Metadata ExecutionMetadata `json:"metadata"`
	Error    string            `json:"error,omitempty"`

	err error
}

// NewErrorResult builds an error-terminal result for an agent that could not
// run at all (e.g. it failed before any gateway call).
func NewErrorResult(agentID string, reason TerminalReason, err error) AgentExecutionResult {
	r := AgentExecutionResult{
		AgentID: agentID,
		Metadata: ExecutionMetadata{
			StartedAt:      time.Now().UTC(),
			TerminalReason: reason,
		},
	}
	r.SetErr(err)
	return r
}

// SetErr records err on the result (both as text and as the wrapped value).
func (r *AgentExecutionResult) SetErr(err error) {
	r.err = err
	if err != nil {
		r.Error = err.Error()
	}
}

// Err returns the underlying error (nil when the invocation completed). For
// results decoded from JSON only the text survives, wrapped as a plain error.
func (r AgentExecutionResult) Err() error {
	if r.err != nil {
		return r.err
	}
	if r.Error != "" {
		return &AgentError{AgentID: r.AgentID, Reason: r.Metadata.TerminalReason, Message: r.Error}
	}
	return nil
}

// Failed reports whether the invocation did not complete normally.
func (r AgentExecutionResult) Failed() bool {
	return r.Metadata.TerminalReason != TerminalCompleted
}

// LastTurn returns the final produced turn, if any.
func (r AgentExecutionResult) LastTurn() (Turn, bool) {
	if len(r.Turns) == 0 {
		return Turn{}, false
	}
	return r.Turns[len(r.Turns)-1], true
}

// Text returns the text of the last assistant turn produced.
func (r AgentExecutionResult) Text() string {
	for i := len(r.Turns) - 1; i >= 0; i-- {
		if r.Turns[i].Role == RoleAssistant {
			if txt := r.Turns[i].Text(); txt != "" {
				return txt
			}
		}
	}
	return ""
}
