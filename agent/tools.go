package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/tool"
)

// resolveTools looks up every tool the definition declares. An undeclared or
// unregistered name is a configuration error and fails the execution before
// the first gateway call.
func (e *Executor) resolveTools(def core.AgentDefinition) ([]tool.Tool, error) {
	if len(def.Tools) == 0 {
		return nil, nil
	}
	tools, err := e.tools.Resolve(def.Tools)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", def.ID, err)
	}
	return tools, nil
}

// runTools executes the requested calls in order and returns one tool turn
// holding a response part per call. Tool failures become error payloads the
// model can react to.
func (e *Executor) runTools(ctx context.Context, r *run, calls []core.FunctionCall) core.Turn {
	parts := make([]core.Part, 0, len(calls))
	snapshot := r.ec.DataSnapshot()

	for _, fc := range calls {
		start := time.Now()

		result, err := e.callTool(ctx, r, snapshot, fc)
		r.result.Metadata.ToolCalls++

		resp := core.FunctionResponse{ID: fc.ID, Name: fc.Name, Response: result}
		if err != nil {
			resp.Response = nil
			resp.Error = err.Error()
		}
		parts = append(parts, core.FunctionResponsePart{FunctionResponse: resp})

		e.logger.Debug("agent.tool.executed",
			"agent", r.def.ID,
			"tool", fc.Name,
			"call_id", fc.ID,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err != nil,
		)
		r.opts.Progress.Emit(core.Progress{
			Kind:       core.ProgressToolCall,
			AgentID:    r.def.ID,
			Step:       r.limiter.Count(),
			TotalSteps: r.opts.MaxSteps,
			ToolName:   fc.Name,
		})
	}

	return core.NewTurn(core.RoleTool, r.def.ID, parts...)
}

func (e *Executor) callTool(ctx context.Context, r *run, snapshot map[string]any, fc core.FunctionCall) (result any, err error) {
	impl, ok := e.declaredTool(r.def, fc.Name)
	if !ok {
		return nil, tool.NewToolError(fc.Name, "tool not available to this agent", tool.CodeNotFound)
	}

	args := map[string]any{}
	if fc.Arguments != "" {
		if err := json.Unmarshal([]byte(fc.Arguments), &args); err != nil {
			return nil, tool.NewToolError(fc.Name, fmt.Sprintf("invalid arguments: %v", err), tool.CodeValidation)
		}
	}

	callCtx, cancel := r.callContext(ctx)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			e.logger.Error("agent.tool.panic", "agent", r.def.ID, "tool", fc.Name, "recover", rec)
			result, err = nil, tool.NewToolError(fc.Name, fmt.Sprintf("panic: %v", rec), tool.CodeExecution)
		}
	}()

	result, err = impl.Call(tool.NewContext(callCtx, r.def.ID, fc.ID, snapshot, e.logger), args)
	if err != nil {
		var toolErr *tool.ToolError
		if !errors.As(err, &toolErr) {
			err = tool.NewToolError(fc.Name, err.Error(), tool.CodeExecution)
		}
	}
	return result, err
}

// declaredTool only exposes tools the definition lists.
func (e *Executor) declaredTool(def core.AgentDefinition, name string) (tool.Tool, bool) {
	for _, n := range def.Tools {
		if n == name {
			return e.tools.Get(name)
		}
	}
	return nil, false
}
