package openai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/meshflow/core"
	"github.com/hupe1980/meshflow/model"
)

func TestBuildMessages(t *testing.T) {
	req := model.Request{
		Instructions: "system prompt",
		Turns: []core.Turn{
			core.NewUserTurn("weather?"),
			core.NewTurn(core.RoleAssistant, "a", core.FunctionCallPart{FunctionCall: core.FunctionCall{ID: "c1", Name: "weather", Arguments: `{"city":"Berlin"}`}}),
			core.NewTurn(core.RoleTool, "a", core.FunctionResponsePart{FunctionResponse: core.FunctionResponse{ID: "c1", Name: "weather", Response: "sunny"}}),
			core.NewTextTurn(core.RoleAssistant, "a", "It is sunny."),
		},
	}

	msgs := buildMessages(req)
	require.Len(t, msgs, 5)
	assert.NotNil(t, msgs[0].OfSystem)
	assert.NotNil(t, msgs[1].OfUser)
	require.NotNil(t, msgs[2].OfAssistant)
	require.Len(t, msgs[2].OfAssistant.ToolCalls, 1)
	assert.Equal(t, "weather", msgs[2].OfAssistant.ToolCalls[0].Function.Name)
	require.NotNil(t, msgs[3].OfTool)
	assert.Equal(t, "c1", msgs[3].OfTool.ToolCallID)
	assert.NotNil(t, msgs[4].OfAssistant)
}

func TestBuildParams_RequestOverrides(t *testing.T) {
	g := NewGatewayFromClient(nil, func(o *Options) { o.Model = "gpt-base" })
	temp := 0.1

	params := g.buildParams(model.Request{
		Model:       "gpt-override",
		Temperature: &temp,
		MaxTokens:   42,
		Tools: []model.ToolDefinition{{
			Type:     "function",
			Function: model.FunctionDefinition{Name: "lookup", Parameters: map[string]any{"type": "object"}},
		}},
	}, nil)

	assert.Equal(t, "gpt-override", string(params.Model))
	assert.Equal(t, 0.1, params.Temperature.Value)
	assert.Equal(t, int64(42), params.MaxCompletionTokens.Value)
	require.Len(t, params.Tools, 1)
	assert.Equal(t, "lookup", params.Tools[0].Function.Name)
	assert.Equal(t, "openai", g.Info().Provider)
}
