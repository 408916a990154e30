package scanning

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// extractJSON cuts the first {...} object out of a model response, tolerating
// markdown fences and surrounding prose.
func extractJSON(text string) (string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return "", fmt.Errorf("invalid JSON object in response")
	}

	return text[startIdx : endIdx+1], nil
}

// parseReceiptJSON parses and normalizes the JSON response from the model
func parseReceiptJSON(text string) (*ReceiptData, error) {
	text, err := extractJSON(text)
	if err != nil {
		return nil, err
	}

	var data ReceiptData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	if len(data.Items) == 0 {
		return nil, fmt.Errorf("no line items found on receipt")
	}

	// Item ids must be unique and stable for the session; replace missing or
	// duplicate ids with positional ones.
	seen := make(map[string]bool)
	for i := range data.Items {
		item := &data.Items[i]
		item.ID = strings.TrimSpace(item.ID)
		if item.ID == "" || seen[item.ID] {
			item.ID = strconv.Itoa(i + 1)
		}
		seen[item.ID] = true

		item.Name = strings.TrimSpace(item.Name)
		if item.Name == "" {
			item.Name = fmt.Sprintf("Item %s", item.ID)
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
	}

	if data.Currency == "" {
		data.Currency = "$"
	}

	// Tip is frequently absent from the response; the zero value is the
	// documented default. Totals are passed through as extracted, consistent
	// or not.

	return &data, nil
}
