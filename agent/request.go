package agent

import (
	"fmt"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/internal/util"
	"github.com/hupe1980/meshflow/model"
	"github.com/hupe1980/meshflow/tool"
)

// renderInstructions renders the definition instructions as a template
// against the context data bag.
func renderInstructions(def core.AgentDefinition, ec *core.ExecutionContext) (string, error) {
	out, err := util.RenderTemplate(def.Instructions, ec.Data)
	if err != nil {
		return "", fmt.Errorf("render instructions for agent %s: %w", def.ID, err)
	}
	return out, nil
}

// buildRequest assembles the gateway request: context history (optionally
// trimmed) followed by every turn produced so far in this execution.
func buildRequest(
	def core.AgentDefinition,
	ec *core.ExecutionContext,
	produced []core.Turn,
	instructions string,
	tools []tool.Tool,
	opts Options,
) model.Request {
	history := ec.Turns
	if opts.MaxHistoryTurns > 0 && len(history) > opts.MaxHistoryTurns {
		history = history[len(history)-opts.MaxHistoryTurns:]
	}

	turns := make([]core.Turn, 0, len(history)+len(produced))
	turns = append(turns, history...)
	turns = append(turns, produced...)

	req := model.Request{
		AgentID:      def.ID,
		Model:        opts.Model,
		Instructions: instructions,
		Turns:        turns,
		MaxTokens:    opts.MaxTokens,
		Temperature:  opts.Temperature,
	}
	if def.Model != "" {
		req.Model = def.Model
	}

	for _, t := range tools {
		req.Tools = append(req.Tools, model.ToolDefinition{
			Type: "function",
			Function: model.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  t.Parameters(),
			},
		})
	}

	return req
}
