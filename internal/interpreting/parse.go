package interpreting

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseResultJSON parses the model's response into a Result, tolerating
// markdown fences and surrounding prose around the JSON object.
func parseResultJSON(text string) (*Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	var result Result
	if err := json.Unmarshal([]byte(text[startIdx:endIdx+1]), &result); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	result.Reply = strings.TrimSpace(result.Reply)
	if result.Reply == "" {
		result.Reply = "Done."
	}

	// Actions are passed through permissively: empty people lists and unknown
	// ops are no-ops in the reducer, and unknown item ids are accepted there.

	return &result, nil
}
