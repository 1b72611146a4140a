package model

import (
	"encoding/json"
	"fmt"

	"github.com/hupe1980/meshflow/core"
)

// ToolResultText renders a function response as the text payload sent back to
// a provider. Errors are encoded as {"error": ...}.
func ToolResultText(fr core.FunctionResponse) string {
	if fr.Error != "" {
		b, _ := json.Marshal(map[string]string{"error": fr.Error})
		return string(b)
	}

	switch v := fr.Response.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(b)
	}
}

// TurnText returns the text a provider without structured parts should see
// for a turn: text parts verbatim, data parts as JSON.
func TurnText(t core.Turn) string {
	txt := t.Text()
	for _, p := range t.Parts {
		dp, ok := p.(core.DataPart)
		if !ok {
			continue
		}
		b, err := json.Marshal(dp.Data)
		if err != nil {
			continue
		}
		if txt != "" {
			txt += "\n"
		}
		txt += string(b)
	}
	return txt
}
