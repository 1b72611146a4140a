package util

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	invopop "github.com/invopop/jsonschema"
)

// ValidationError reports tool arguments that do not satisfy the tool's
// parameter schema.
type ValidationError struct {
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return "invalid arguments: " + e.Message
}

// CreateSchema reflects a JSON schema object from a Go struct. Fields without
// omitempty are required; descriptions come from the jsonschema tag
// (`jsonschema:"description=..."`).
func CreateSchema(structType any) map[string]any {
	r := &invopop.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}

	data, err := json.Marshal(r.Reflect(structType))
	if err != nil {
		return emptyObjectSchema()
	}

	var schema map[string]any
	if err := json.Unmarshal(data, &schema); err != nil {
		return emptyObjectSchema()
	}
	delete(schema, "$schema")
	delete(schema, "$id")

	if _, ok := schema["properties"]; !ok {
		schema["properties"] = map[string]any{}
	}
	return schema
}

func emptyObjectSchema() map[string]any {
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

// ValidateParameters checks params against a JSON schema given as a plain map.
// params are normalized through JSON first so Go literals and decoded model
// output validate alike.
func ValidateParameters(params map[string]any, schema map[string]any) error {
	if len(schema) == 0 {
		return nil
	}

	resolved, err := resolveSchema(schema)
	if err != nil {
		return err
	}

	instance, err := normalize(params)
	if err != nil {
		return &ValidationError{Value: params, Message: err.Error()}
	}

	if err := resolved.Validate(instance); err != nil {
		return &ValidationError{Value: params, Message: err.Error()}
	}
	return nil
}

func resolveSchema(schema map[string]any) (*jsonschema.Resolved, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("encode parameter schema: %w", err)
	}

	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode parameter schema: %w", err)
	}

	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve parameter schema: %w", err)
	}
	return resolved, nil
}

func normalize(params map[string]any) (any, error) {
	if params == nil {
		params = map[string]any{}
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
