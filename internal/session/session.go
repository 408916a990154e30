package session

import (
	"time"

	"github.com/tabsplit/tabsplit/internal/bill"
)

// Transcript message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a session's chat transcript
type Message struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session holds one bill-splitting conversation: the parsed receipt, the
// current item assignments, and the chat transcript. Revision increments on
// every persisted change and is used to discard results of model calls that
// were in flight when the session moved underneath them.
type Session struct {
	ID          string           `json:"id"`
	Receipt     bill.Receipt     `json:"receipt"`
	Assignments bill.Assignments `json:"assignments"`
	Transcript  []Message        `json:"transcript"`
	ImagePath   string           `json:"image_path"`
	ImageType   string           `json:"image_type"`
	Revision    int              `json:"revision"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Settlement returns the per-person breakdown for the session's current
// state. It is recomputed on every call and never stored.
func (s *Session) Settlement() bill.Settlement {
	return bill.Settle(s.Receipt, s.Assignments)
}
