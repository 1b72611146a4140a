package testutil

import (
	"time"

	"github.com/hupe1980/meshflow/core"
)

// ContextBuilder helps construct execution contexts with fluent chaining.
// Example:
//
//	ec := NewContextBuilder("conv-1").User("hello").Data("k", "v").Build()
type ContextBuilder struct {
	id     string
	turns  []core.Turn
	data   map[string]any
	limits core.Limits
}

// NewContextBuilder creates a builder for the given conversation id.
func NewContextBuilder(id string) *ContextBuilder {
	return &ContextBuilder{id: id, data: map[string]any{}}
}

// User appends a user text turn (chainable).
func (b *ContextBuilder) User(text string) *ContextBuilder {
	b.turns = append(b.turns, core.NewUserTurn(text))
	return b
}

// Assistant appends an assistant text turn authored by agentID (chainable).
func (b *ContextBuilder) Assistant(agentID, text string) *ContextBuilder {
	b.turns = append(b.turns, core.NewTextTurn(core.RoleAssistant, agentID, text))
	return b
}

// Turn appends an arbitrary turn (chainable).
func (b *ContextBuilder) Turn(t core.Turn) *ContextBuilder {
	b.turns = append(b.turns, t)
	return b
}

// Data sets a data bag entry (chainable).
func (b *ContextBuilder) Data(key string, val any) *ContextBuilder {
	b.data[key] = val
	return b
}

// MaxSteps sets the context step limit (chainable).
func (b *ContextBuilder) MaxSteps(n int) *ContextBuilder {
	b.limits.MaxSteps = n
	return b
}

// Deadline sets the context deadline relative to now (chainable).
func (b *ContextBuilder) Deadline(in time.Duration) *ContextBuilder {
	b.limits.Deadline = time.Now().Add(in)
	return b
}

// Build returns a fresh context.
func (b *ContextBuilder) Build() *core.ExecutionContext {
	ec := core.NewExecutionContext(b.id, b.turns...)
	ec.Merge(b.data)
	ec.Limits = b.limits
	return ec
}

// ToolCallTurn builds an assistant turn requesting a single tool call.
func ToolCallTurn(callID, name, args string) core.Turn {
	return core.NewTurn(core.RoleAssistant, "", core.FunctionCallPart{FunctionCall: core.FunctionCall{
		ID:        callID,
		Name:      name,
		Arguments: args,
	}})
}

// Texts returns the text of every turn, in order.
func Texts(turns []core.Turn) []string {
	out := make([]string, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Text())
	}
	return out
}
