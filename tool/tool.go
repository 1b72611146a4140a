// Package tool implements the function / tool calling subsystem that lets agents
// invoke structured capabilities (APIs, computations, lookups) with schema
// validated arguments, consistent error handling and metadata for model guidance.
package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/meshflow/internal/util"
	"github.com/hupe1980/meshflow/logging"
)

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeNotFound   = "NOT_FOUND"
)

// ErrToolNotFound is returned when a tool name cannot be resolved.
var ErrToolNotFound = errors.New("tool not found")

// Context is handed to every tool invocation. It carries the cancellation
// scope of the surrounding agent execution, correlation identifiers and a
// read-only snapshot of the execution data bag.
type Context struct {
	context.Context

	AgentID string
	CallID  string

	data   map[string]any
	logger logging.Logger
}

// NewContext builds a tool Context. data is treated as read-only.
func NewContext(ctx context.Context, agentID, callID string, data map[string]any, logger logging.Logger) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{
		Context: ctx,
		AgentID: agentID,
		CallID:  callID,
		data:    data,
		logger:  logging.OrNoOp(logger),
	}
}

// Data returns the value stored under key in the data snapshot.
func (c *Context) Data(key string) (any, bool) {
	v, ok := c.data[key]
	return v, ok
}

// DataKeys lists the keys present in the data snapshot.
func (c *Context) DataKeys() []string {
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	return keys
}

// Logger returns the logger of the surrounding execution.
func (c *Context) Logger() logging.Logger { return c.logger }

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tools are resolved by name from a Registry when an agent definition lists
// them, and their schema is advertised to the model. Implementations must be
// safe for concurrent use: parallel agents may call the same tool at once.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case recommended).
	Name() string

	// Description is provided to the model to explain when and how to use the tool.
	Description() string

	// Parameters returns a JSON schema describing the expected input format.
	Parameters() map[string]any

	// Call executes the tool with arguments decoded from the model's JSON.
	Call(toolCtx *Context, args map[string]any) (any, error)
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ToolError represents errors that occur during tool execution. It is fed
// back to the model as the tool turn's error payload.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
