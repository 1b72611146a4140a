package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleSchema struct {
	A string `json:"a" jsonschema:"description=Field A"`
	B []int  `json:"b"`
	C int    `json:"c,omitempty"`
}

func TestCreateSchema(t *testing.T) {
	schema := CreateSchema(sampleSchema{})

	assert.Equal(t, "object", schema["type"])
	assert.NotContains(t, schema, "$schema")

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	require.Contains(t, props, "a")
	assert.Contains(t, props, "b")
	assert.Contains(t, props, "c")
	assert.Equal(t, "Field A", props["a"].(map[string]any)["description"])
	assert.ElementsMatch(t, []any{"a", "b"}, schema["required"])
}

func TestValidateParameters(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "integer"},
		},
		"required": []any{"x"},
	}

	assert.NoError(t, ValidateParameters(map[string]any{"x": 5}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"x": 5.0}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"x": 5, "extra": true}, schema))

	err := ValidateParameters(map[string]any{}, schema)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "x")

	err = ValidateParameters(map[string]any{"x": "not-int"}, schema)
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Message, "integer")

	assert.Error(t, ValidateParameters(map[string]any{"x": 1.5}, schema))
}

func TestValidateParameters_StringRequired(t *testing.T) {
	schema := map[string]any{"required": []string{"a"}}
	assert.Error(t, ValidateParameters(map[string]any{}, schema))
	assert.NoError(t, ValidateParameters(map[string]any{"a": 1}, schema))
}

func TestValidateParameters_EmptySchema(t *testing.T) {
	assert.NoError(t, ValidateParameters(map[string]any{"anything": 1}, nil))
}

func TestRenderTemplate(t *testing.T) {
	out, err := RenderTemplate("plain <text>", nil)
	require.NoError(t, err)
	assert.Equal(t, "plain <text>", out)

	out, err = RenderTemplate(`Write for {{.audience}} in {{default "English" .lang}} & keep <tags>.`, map[string]any{"audience": "kids"})
	require.NoError(t, err)
	assert.Equal(t, "Write for kids in English & keep <tags>.", out)

	out, err = RenderTemplate("Topic: {{.missing}}!", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "Topic: !", out)

	_, err = RenderTemplate("{{.broken", nil)
	assert.Error(t, err)
}
