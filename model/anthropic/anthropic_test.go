package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/model"
)

func TestBuildMessages_ToolResultsAsUser(t *testing.T) {
	turns := []core.Turn{
		core.NewTextTurn(core.RoleSystem, "system", "ignored here"),
		core.NewUserTurn("weather?"),
		core.NewTurn(core.RoleAssistant, "a", core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "weather", Arguments: `{"city":"Berlin"}`}}),
		core.NewTurn(core.RoleTool, "a", core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "c1", Name: "weather", Response: "sunny"}}),
	}

	msgs := buildMessages(turns)
	require.Len(t, msgs, 3)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[0].Role)
	assert.Equal(t, anthropic.MessageParamRoleAssistant, msgs[1].Role)
	assert.Equal(t, anthropic.MessageParamRoleUser, msgs[2].Role)
	require.Len(t, msgs[2].Content, 1)
	assert.NotNil(t, msgs[2].Content[0].OfToolResult)
}

func TestSystemPrompt(t *testing.T) {
	blocks := systemPrompt(model.Request{
		Instructions: "be brief",
		Turns:        []core.Turn{core.NewTextTurn(core.RoleSystem, "system", "extra")},
	})
	require.Len(t, blocks, 2)
	assert.Equal(t, "be brief", blocks[0].Text)
	assert.Equal(t, "extra", blocks[1].Text)
}

func TestFinishReason(t *testing.T) {
	assert.Equal(t, model.FinishToolCalls, finishReason(anthropic.StopReasonToolUse))
	assert.Equal(t, model.FinishLength, finishReason(anthropic.StopReasonMaxTokens))
	assert.Equal(t, model.FinishStop, finishReason(anthropic.StopReasonEndTurn))
	assert.Equal(t, model.FinishStop, finishReason(""))
}

func TestBuildTools(t *testing.T) {
	tools := buildTools([]model.ToolDefinition{{
		Type: "function",
		Function: model.FunctionDefinition{
			Name:        "lookup",
			Description: "look things up",
			Parameters: map[string]any{
				"type":       "object",
				"properties": map[string]any{"key": map[string]any{"type": "string"}},
				"required":   []any{"key"},
			},
		},
	}})
	require.Len(t, tools, 1)
	require.NotNil(t, tools[0].OfTool)
	assert.Equal(t, "lookup", tools[0].OfTool.Name)
	assert.Equal(t, []string{"key"}, tools[0].OfTool.InputSchema.Required)
}
