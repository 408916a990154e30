package interpreting

import (
	"fmt"
	"strings"

	"github.com/tabsplit/tabsplit/internal/bill"
)

// Result is the structured outcome of interpreting one chat command: a
// conversational reply plus the assignment actions to apply.
type Result struct {
	Reply   string        `json:"reply"`
	Actions []bill.Action `json:"assignments"`
}

// Interpreter translates a free-text instruction into assignment actions,
// given the receipt's items and the people already on the bill. The people
// list must reflect state before the command is applied so the model can
// resolve "everyone" against it.
type Interpreter interface {
	Interpret(text string, items []bill.Item, people []string) (*Result, error)
	// Close closes the interpreter and releases resources
	Close() error
}

// buildPrompt renders the shared instruction prompt with the current item
// table and existing-people context.
func buildPrompt(text string, items []bill.Item, people []string) string {
	var b strings.Builder

	b.WriteString(`You are helping split a restaurant bill. The user tells you in plain language who had which items; you translate that into assignment actions.

Receipt items:
`)
	for _, item := range items {
		fmt.Fprintf(&b, "- id %q: %s (%.2f)\n", item.ID, item.Name, item.Price)
	}

	b.WriteString("\nPeople already on the bill: ")
	if len(people) == 0 {
		b.WriteString("(none yet)")
	} else {
		b.WriteString(strings.Join(people, ", "))
	}

	b.WriteString(`

Return ONLY valid JSON in this exact format:
{
  "reply": "a short friendly confirmation of what you did",
  "assignments": [
    {"item_ids": ["1"], "people": ["Name"], "action": "assign"}
  ]
}

Important:
- "action" is either "assign" or "unassign"
- Use item ids from the receipt items above, never item names
- When the user says "everyone", "all", "all of us" or "the group", use exactly the people already on the bill; only introduce new names if that list is empty and the user names nobody
- Never invent people the user did not mention
- If the message needs no changes (a question, a greeting), return an empty assignments array and answer in the reply
- Do not include any text before or after the JSON
- Do not use markdown code blocks

User message: `)
	b.WriteString(text)

	return b.String()
}
