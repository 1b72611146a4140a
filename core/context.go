package core

import (
	"time"
)

// Limits bounds a single run. Zero values mean "no limit".
type Limits struct {
	MaxSteps int       `json:"max_steps,omitempty"`
	Deadline time.Time `json:"deadline,omitempty"`
}

// Expired reports whether the deadline is set and has passed at now.
func (l Limits) Expired(now time.Time) bool {
	return !l.Deadline.IsZero() && !now.Before(l.Deadline)
}

// ExecutionContext carries the conversation and working data visible to the
// next agent invocation of a run. It is exclusively owned by one run: the
// workflow engine appends to it between executor calls, concurrent
// invocations always receive a Clone.
//
// ExecutionContext is not safe for concurrent mutation.
type ExecutionContext struct {
	ConversationID string         `json:"conversation_id"`
	Turns          []Turn         `json:"turns"`
	Data           map[string]any `json:"data"`
	Limits         Limits         `json:"limits"`
}

// NewExecutionContext creates a context for the given conversation seeded
// with the supplied turns.
func NewExecutionContext(conversationID string, turns ...Turn) *ExecutionContext {
	if conversationID == "" {
		conversationID = NewID()
	}
	return &ExecutionContext{
		ConversationID: conversationID,
		Turns:          append([]Turn(nil), turns...),
		Data:           map[string]any{},
	}
}

// Append adds turns to the end of the conversation.
func (c *ExecutionContext) Append(turns ...Turn) {
	c.Turns = append(c.Turns, turns...)
}

// LastTurn returns the most recent turn, if any.
func (c *ExecutionContext) LastTurn() (Turn, bool) {
	if len(c.Turns) == 0 {
		return Turn{}, false
	}
	return c.Turns[len(c.Turns)-1], true
}

// Get returns the value and existence flag for a data key.
func (c *ExecutionContext) Get(key string) (any, bool) {
	if c.Data == nil {
		return nil, false
	}
	v, ok := c.Data[key]
	return v, ok
}

// Set stores a data value, allocating the bag on first use.
func (c *ExecutionContext) Set(key string, value any) {
	if c.Data == nil {
		c.Data = map[string]any{}
	}
	c.Data[key] = value
}

// Merge copies every key of delta into the data bag (last write wins).
func (c *ExecutionContext) Merge(delta map[string]any) {
	for k, v := range delta {
		c.Set(k, v)
	}
}

// Clone returns an independent copy: the turn slice, the data bag and any
// nested maps/slices inside it are duplicated so writes to the clone are never
// observed by the original.
func (c *ExecutionContext) Clone() *ExecutionContext {
	if c == nil {
		return nil
	}
	cp := &ExecutionContext{
		ConversationID: c.ConversationID,
		Turns:          make([]Turn, len(c.Turns)),
		Data:           make(map[string]any, len(c.Data)),
		Limits:         c.Limits,
	}
	for i, t := range c.Turns {
		cp.Turns[i] = t.Clone()
	}
	for k, v := range c.Data {
		cp.Data[k] = deepCopyValue(v)
	}
	return cp
}

// DataSnapshot returns a deep copy of the data bag.
func (c *ExecutionContext) DataSnapshot() map[string]any {
	out := make(map[string]any, len(c.Data))
	for k, v := range c.Data {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = deepCopyValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(val))
		for i, inner := range val {
			s[i] = deepCopyValue(inner)
		}
		return s
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}
