package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnJSON_PreservesPartTypes(t *testing.T) {
	in := NewTurn(RoleAssistant, "a",
		TextPart{Text: "hi"},
		DataPart{Data: map[string]any{"k": "v"}},
		FunctionCallPart{FunctionCall: FunctionCall{ID: "c1", Name: "sum", Arguments: `{"a":1}`}},
		FunctionResponsePart{FunctionResponse: FunctionResponse{ID: "c1", Name: "sum", Error: "boom"}},
	)

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"function_call"`)

	var out Turn
	require.NoError(t, json.Unmarshal(data, &out))

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, "a", out.Author)
	require.Len(t, out.Parts, 4)
	assert.Equal(t, "hi", out.Text())
	assert.Equal(t, "sum", out.FunctionCalls()[0].Name)
	assert.Equal(t, "boom", out.FunctionResponses()[0].Error)
	assert.IsType(t, DataPart{}, out.Parts[1])
}

func TestTurnJSON_UnknownPartType(t *testing.T) {
	var out Turn
	err := json.Unmarshal([]byte(`{"id":"x","role":"user","parts":[{"type":"audio"}]}`), &out)
	assert.Error(t, err)
}
