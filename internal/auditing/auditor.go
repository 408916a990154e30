package auditing

import (
	"fmt"
	"strings"

	"github.com/tabsplit/tabsplit/internal/bill"
)

// FallbackReport is shown whenever the audit call fails. The audit is purely
// advisory, so a failure never surfaces as an error to the user.
const FallbackReport = "The audit assistant is unavailable right now. The split above was computed directly from the receipt, so the numbers are still correct."

// Auditor reviews a computed settlement for fairness and returns a markdown
// narrative. It never mutates state.
type Auditor interface {
	Review(receipt bill.Receipt, settlement bill.Settlement) (string, error)
	// Close closes the auditor and releases resources
	Close() error
}

// buildPrompt renders the audit prompt from the receipt totals and the
// computed breakdown.
func buildPrompt(receipt bill.Receipt, settlement bill.Settlement) string {
	var b strings.Builder
	cur := receipt.Totals.Currency

	b.WriteString("You are reviewing a restaurant bill split for fairness.\n\nReceipt totals:\n")
	fmt.Fprintf(&b, "- Subtotal: %s%.2f\n- Tax: %s%.2f\n- Tip: %s%.2f\n- Total: %s%.2f\n",
		cur, receipt.Totals.Subtotal, cur, receipt.Totals.Tax, cur, receipt.Totals.Tip, cur, receipt.Totals.Total)

	b.WriteString("\nComputed split:\n")
	for _, p := range settlement.People {
		var names []string
		for _, item := range p.Items {
			names = append(names, item.Name)
		}
		fmt.Fprintf(&b, "- %s: subtotal %s%.2f, tax %s%.2f, tip %s%.2f, total %s%.2f (items: %s)\n",
			p.Name, cur, p.Subtotal, cur, p.Tax, cur, p.Tip, cur, p.Total, strings.Join(names, ", "))
	}

	if len(settlement.Unassigned) > 0 {
		b.WriteString("\nStill unassigned:\n")
		for _, item := range settlement.Unassigned {
			fmt.Fprintf(&b, "- %s (%s%.2f)\n", item.Name, cur, item.Price)
		}
	}

	b.WriteString(`
Write a short markdown report (a few sentences plus bullet points if useful) that:
- Says whether the split looks fair given the items each person had
- Points out unassigned items and who might be forgotten
- Flags anything odd, like one person carrying most of the bill or shared items split unevenly

The arithmetic is already correct; comment on fairness, not math. Do not suggest changing the tax or tip distribution method.`)

	return b.String()
}
