package bill

// Op is the kind of assignment change an Action performs.
type Op string

const (
	OpAssign   Op = "assign"
	OpUnassign Op = "unassign"
)

// Action is one structured instruction produced by command interpretation:
// add or remove a set of people on a set of items.
type Action struct {
	ItemIDs []string `json:"item_ids"`
	People  []string `json:"people"`
	Op      Op       `json:"action"`
}

// Assignments maps an item id to the people currently responsible for it.
// Each slice behaves as a set: a name appears at most once, and names keep
// the order they were first assigned in so output is deterministic. A missing
// key means the same thing as an empty slice.
type Assignments map[string][]string

// NewAssignments creates an empty assignment set with one entry per receipt
// item.
func NewAssignments(receipt Receipt) Assignments {
	a := make(Assignments, len(receipt.Items))
	for _, item := range receipt.Items {
		a[item.ID] = []string{}
	}
	return a
}

// Clone returns a deep copy.
func (a Assignments) Clone() Assignments {
	next := make(Assignments, len(a))
	for id, people := range a {
		next[id] = append([]string{}, people...)
	}
	return next
}

// People returns the distinct person names across all items, ordered by
// first appearance within each item's set, iterating items in the order of
// the given receipt. This is the "existing people" context handed to the
// command interpreter, so it must reflect state before a command is applied.
func (a Assignments) People(receipt Receipt) []string {
	var people []string
	seen := make(map[string]bool)
	for _, item := range receipt.Items {
		for _, name := range a[item.ID] {
			if !seen[name] {
				seen[name] = true
				people = append(people, name)
			}
		}
	}
	return people
}

// Apply folds a batch of actions over the current assignments and returns a
// new value; the receiver is never mutated. Actions run left to right, so a
// later action in the same batch observes the effect of an earlier one.
// Actions with no people are no-ops. Item ids that do not exist on the
// receipt still get entries; settlement iterates receipt items, so stray ids
// never surface in any report.
func (a Assignments) Apply(actions []Action) Assignments {
	next := a.Clone()
	for _, action := range actions {
		if len(action.People) == 0 {
			continue
		}
		for _, id := range action.ItemIDs {
			switch action.Op {
			case OpAssign:
				next[id] = union(next[id], action.People)
			case OpUnassign:
				next[id] = difference(next[id], action.People)
			}
		}
	}
	return next
}

// union appends the people not already present, keeping existing order.
func union(current, people []string) []string {
	out := append([]string{}, current...)
	for _, name := range people {
		if !contains(out, name) {
			out = append(out, name)
		}
	}
	return out
}

// difference removes the given people, keeping the order of the rest.
func difference(current, people []string) []string {
	out := make([]string, 0, len(current))
	for _, name := range current {
		if !contains(people, name) {
			out = append(out, name)
		}
	}
	return out
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
