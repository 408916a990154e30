package bill

// Item is a single line item extracted from a receipt. Price is the line
// total as printed on the receipt, not a per-unit price.
type Item struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// Totals holds the receipt-level amounts. Extraction sources are not always
// internally consistent, so subtotal+tax+tip is never assumed to equal total.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Tip      float64 `json:"tip"`
	Total    float64 `json:"total"`
	Currency string  `json:"currency"`
}

// Receipt is the parsed receipt: line items plus totals. Immutable once
// extracted.
type Receipt struct {
	Items  []Item `json:"items"`
	Totals Totals `json:"totals"`
}

// PersonTotal is one person's computed share of the bill. Items lists every
// item the person is assigned to; a shared item appears in each assignee's
// list but contributes only its equal share to each subtotal, so consumers
// must not re-sum item prices per person.
type PersonTotal struct {
	Name     string  `json:"name"`
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Tip      float64 `json:"tip"`
	Total    float64 `json:"total"`
	Items    []Item  `json:"items"`
}

// Settlement is the per-person breakdown derived from a receipt and its
// assignments. People are ordered by first assignment encountered in receipt
// order; Unassigned preserves receipt order. AssignedSubtotal is the sum of
// all person subtotals, which is less than the receipt subtotal whenever
// items remain unassigned.
type Settlement struct {
	People           []PersonTotal `json:"people"`
	Unassigned       []Item        `json:"unassigned"`
	AssignedSubtotal float64       `json:"assigned_subtotal"`
}
