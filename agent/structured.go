package agent

import (
	"strings"

	"github.com/tidwall/gjson"
)

// structuredOutput extracts a JSON object from the final assistant text, if
// the text is one (optionally wrapped in a markdown code fence).
func structuredOutput(text string) map[string]any {
	candidate := strings.TrimSpace(text)
	if strings.HasPrefix(candidate, "```") {
		candidate = strings.TrimPrefix(candidate, "```json")
		candidate = strings.TrimPrefix(candidate, "```")
		candidate = strings.TrimSuffix(strings.TrimSpace(candidate), "```")
		candidate = strings.TrimSpace(candidate)
	}

	if candidate == "" || !gjson.Valid(candidate) {
		return nil
	}

	parsed := gjson.Parse(candidate)
	if !parsed.IsObject() {
		return nil
	}

	out, ok := parsed.Value().(map[string]any)
	if !ok {
		return nil
	}
	return out
}
