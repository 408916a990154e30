package bill

// Settle computes the per-person breakdown for a receipt under the given
// assignments: each item's price is split equally across its assignees, then
// tax and tip are distributed proportionally to each person's share of the
// receipt's stated subtotal.
//
// Ratios are deliberately normalized against receipt.Totals.Subtotal rather
// than the sum of assigned subtotals, so when items remain unassigned the
// person totals sum to less than the receipt total. The gap is reported via
// AssignedSubtotal, not corrected here.
//
// Inputs are taken at face value: zero or negative prices and inconsistent
// totals pass straight through the arithmetic. A zero receipt subtotal yields
// zero tax and tip for everyone.
func Settle(receipt Receipt, assignments Assignments) Settlement {
	var people []PersonTotal
	index := make(map[string]int)
	var unassigned []Item

	for _, item := range receipt.Items {
		assignees := assignments[item.ID]
		if len(assignees) == 0 {
			unassigned = append(unassigned, item)
			continue
		}
		share := item.Price / float64(len(assignees))
		for _, name := range assignees {
			i, ok := index[name]
			if !ok {
				i = len(people)
				index[name] = i
				people = append(people, PersonTotal{Name: name})
			}
			people[i].Subtotal += share
			people[i].Items = append(people[i].Items, item)
		}
	}

	var assignedSubtotal float64
	for _, p := range people {
		assignedSubtotal += p.Subtotal
	}

	for i := range people {
		var ratio float64
		if receipt.Totals.Subtotal > 0 {
			ratio = people[i].Subtotal / receipt.Totals.Subtotal
		}
		people[i].Tax = receipt.Totals.Tax * ratio
		people[i].Tip = receipt.Totals.Tip * ratio
		people[i].Total = people[i].Subtotal + people[i].Tax + people[i].Tip
	}

	return Settlement{
		People:           people,
		Unassigned:       unassigned,
		AssignedSubtotal: assignedSubtotal,
	}
}
