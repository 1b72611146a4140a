package tool

import (
	"sort"
)

// DataLookupTool exposes the execution data bag to the model. It supports
// reading a single key ("get") or listing the available keys ("list").
type DataLookupTool struct{}

// NewDataLookupTool creates a data lookup tool named "data_lookup".
func NewDataLookupTool() *DataLookupTool { return &DataLookupTool{} }

// Name returns the tool identifier.
func (t *DataLookupTool) Name() string { return "data_lookup" }

// Description returns the tool description.
func (t *DataLookupTool) Description() string {
	return "Reads shared workflow data. Operations: get (requires key), list."
}

// Parameters returns the JSON schema for tool parameters.
func (t *DataLookupTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"operation": map[string]any{
				"type":        "string",
				"enum":        []string{"get", "list"},
				"description": "The lookup operation to perform",
			},
			"key": map[string]any{
				"type":        "string",
				"description": "Data key for the get operation",
			},
		},
		"required": []string{"operation"},
	}
}

// Call implements the Tool interface.
func (t *DataLookupTool) Call(toolCtx *Context, args map[string]any) (any, error) {
	operation, _ := args["operation"].(string)

	switch operation {
	case "get":
		key, ok := args["key"].(string)
		if !ok || key == "" {
			return nil, NewToolError(t.Name(), "key parameter is required for get operation", CodeValidation)
		}
		value, exists := toolCtx.Data(key)
		return map[string]any{
			"key":    key,
			"exists": exists,
			"value":  value,
		}, nil
	case "list":
		keys := toolCtx.DataKeys()
		sort.Strings(keys)
		return map[string]any{
			"keys":  keys,
			"count": len(keys),
		}, nil
	default:
		return nil, NewToolError(t.Name(), "unknown operation: "+operation, CodeValidation)
	}
}
