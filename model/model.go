package model

import (
	"context"

	"github.com/hupe1980/meshflow/core"
)

// ToolDefinition declaratively exposes a callable function to the model.
type ToolDefinition struct {
	Type     string             `json:"type"` // "function"
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes an individual function (tool) exposed to the model.
// Parameters is a JSON Schema object (draft agnostic, minimal subset expected).
type FunctionDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// Request captures the normalized per-call input for a gateway.
type Request struct {
	AgentID      string           `json:"agent_id,omitempty"`     // Requesting agent, for routing and diagnostics
	Model        string           `json:"model,omitempty"`        // Optional model override
	Instructions string           `json:"instructions,omitempty"` // System prompt
	Turns        []core.Turn      `json:"turns"`
	Tools        []ToolDefinition `json:"tools,omitempty"`
	MaxTokens    int64            `json:"max_tokens,omitempty"`
	Temperature  *float64         `json:"temperature,omitempty"`
}

// LastUserText returns the text of the most recent user turn in the request.
func (r Request) LastUserText() string {
	for i := len(r.Turns) - 1; i >= 0; i-- {
		if r.Turns[i].Role == core.RoleUser {
			return r.Turns[i].Text()
		}
	}
	return ""
}

// LastText returns the text of the most recent turn carrying text, whatever its role.
func (r Request) LastText() string {
	for i := len(r.Turns) - 1; i >= 0; i-- {
		if txt := r.Turns[i].Text(); txt != "" {
			return txt
		}
	}
	return ""
}

// Finish reasons normalized across providers.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
	FinishLength    = "length"
)

// Response is a completed assistant turn.
type Response struct {
	ID           string      `json:"id"`
	Turn         core.Turn   `json:"turn"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", "tool_calls", etc.
	Usage        *core.Usage `json:"usage,omitempty"`
}

// StreamEventType enumerates incremental delivery events.
type StreamEventType string

const (
	StreamStart    StreamEventType = "start"
	StreamChunk    StreamEventType = "chunk"
	StreamComplete StreamEventType = "complete"
	StreamError    StreamEventType = "error"
)

// StreamEvent is one incremental delivery keyed by message id. Chunk events
// carry Delta text; the complete event carries the final Response; the error
// event carries Err.
type StreamEvent struct {
	Type      StreamEventType `json:"type"`
	MessageID string          `json:"message_id"`
	Delta     string          `json:"delta,omitempty"`
	Response  *Response       `json:"response,omitempty"`
	Err       error           `json:"-"`
}

// Info contains metadata about a gateway implementation.
type Info struct {
	Name          string `json:"name"`
	Provider      string `json:"provider"` // "openai", "anthropic", "langchain", "mock", ...
	SupportsTools bool   `json:"supports_tools"`
}

// Gateway is the Completion Gateway consumed by the agent executor. Complete
// and Stream are interchangeable sources of a final turn. Implementations must
// be safe for concurrent use.
type Gateway interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request) (<-chan StreamEvent, error)

	// Info returns information about the gateway implementation.
	Info() Info
}
