package session

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tabsplit/tabsplit/internal/auditing"
	"github.com/tabsplit/tabsplit/internal/bill"
	"github.com/tabsplit/tabsplit/internal/interpreting"
	"github.com/tabsplit/tabsplit/internal/scanning"
)

var (
	// ErrCommandInFlight is returned when a command arrives for a session that
	// is still processing a previous one. Commands mutate assignments, so they
	// are strictly serialized per session.
	ErrCommandInFlight = errors.New("a command is already being processed for this session")

	// ErrInterpretation marks a failed command-interpretation call. The
	// session's assignments are guaranteed unchanged.
	ErrInterpretation = errors.New("command interpretation failed")

	// ErrAudit marks a failed audit call.
	ErrAudit = errors.New("audit failed")

	// ErrStaleResult is returned when a model call completed after the session
	// was reset underneath it; the result is discarded, never applied.
	ErrStaleResult = errors.New("session changed while the request was in flight")
)

// apologyReply is appended to the transcript when interpretation fails.
const apologyReply = "Sorry, I couldn't work out what to change from that. Your assignments are unchanged - try rephrasing, for example: \"Tom had the burger\"."

// IDGenerator generates unique IDs for sessions
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// CommandResult is what a successfully processed chat command returns
type CommandResult struct {
	Reply      string          `json:"reply"`
	Settlement bill.Settlement `json:"settlement"`
}

// Service orchestrates sessions: scanning receipts into new sessions,
// funnelling chat commands through interpretation and the assignment
// reducer, and producing settlements and audit reports.
type Service struct {
	store       Store
	images      ImageStore
	scanner     scanning.Scanner
	interpreter interpreting.Interpreter
	auditor     auditing.Auditor
	idGenerator IDGenerator
	timeSource  TimeSource

	mu       sync.Mutex
	inFlight map[string]bool

	// commitMu serializes session commits with resets. Without it a reset
	// landing between Command's revision check and its save would be
	// overwritten, resurrecting the deleted session.
	commitMu sync.Mutex
}

// NewService creates a new Service with default ID generator and time source
func NewService(store Store, images ImageStore, scanner scanning.Scanner, interpreter interpreting.Interpreter, auditor auditing.Auditor) *Service {
	return NewServiceWithDeps(store, images, scanner, interpreter, auditor, &defaultIDGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(store Store, images ImageStore, scanner scanning.Scanner, interpreter interpreting.Interpreter, auditor auditing.Auditor, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		store:       store,
		images:      images,
		scanner:     scanner,
		interpreter: interpreter,
		auditor:     auditor,
		idGenerator: idGen,
		timeSource:  timeSrc,
		inFlight:    make(map[string]bool),
	}
}

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

// toReceipt converts extracted data into the bill model
func toReceipt(data *scanning.ReceiptData) bill.Receipt {
	items := make([]bill.Item, 0, len(data.Items))
	for _, it := range data.Items {
		items = append(items, bill.Item{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}
	return bill.Receipt{
		Items: items,
		Totals: bill.Totals{
			Subtotal: data.Subtotal,
			Tax:      data.Tax,
			Tip:      data.Tip,
			Total:    data.Total,
			Currency: data.Currency,
		},
	}
}

// Scan extracts a receipt from an uploaded image and creates a new session
// with every item unassigned. Extraction failure creates no session.
func (s *Service) Scan(filename string, data []byte, contentType string) (*Session, error) {
	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	cleanFilename := sanitizeFilename(filename)

	savedPath, err := s.images.Save(fmt.Sprintf("%s_%s", id, cleanFilename), data)
	if err != nil {
		return nil, fmt.Errorf("saving image: %w", err)
	}

	receiptData, err := s.scanner.ScanReceipt(data, contentType)
	if err != nil {
		slog.Error("Failed to scan receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		// Clean up the saved image since extraction failed
		s.images.Delete(savedPath)
		return nil, fmt.Errorf("scanning receipt: %w", err)
	}

	receipt := toReceipt(receiptData)

	session := &Session{
		ID:          id,
		Receipt:     receipt,
		Assignments: bill.NewAssignments(receipt),
		Transcript:  []Message{},
		ImagePath:   savedPath,
		ImageType:   contentType,
		Revision:    1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.SaveSession(session); err != nil {
		s.images.Delete(savedPath)
		return nil, fmt.Errorf("saving session: %w", err)
	}

	return session, nil
}

// Get retrieves a session by ID
func (s *Service) Get(id string) (*Session, error) {
	session, err := s.store.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}
	return session, nil
}

// Settlement recomputes the per-person breakdown for a session
func (s *Service) Settlement(id string) (bill.Settlement, error) {
	session, err := s.store.GetSession(id)
	if err != nil {
		return bill.Settlement{}, fmt.Errorf("getting session: %w", err)
	}
	return session.Settlement(), nil
}

// Command processes one chat instruction: the existing-people context is
// captured before anything changes, the text is interpreted externally, and
// the returned action batch is applied atomically through the reducer. On
// interpretation failure assignments stay untouched and an apology lands in
// the transcript. Commands for the same session are serialized; a second
// concurrent one is rejected with ErrCommandInFlight.
func (s *Service) Command(id string, text string) (*CommandResult, error) {
	if !s.begin(id) {
		return nil, ErrCommandInFlight
	}
	defer s.end(id)

	session, err := s.store.GetSession(id)
	if err != nil {
		return nil, fmt.Errorf("getting session: %w", err)
	}

	// Context for "everyone" resolution: state before this command.
	people := session.Assignments.People(session.Receipt)

	result, interpretErr := s.interpreter.Interpret(text, session.Receipt.Items, people)

	// The model call may have been slow; if the session was reset meanwhile,
	// the outcome is no longer wanted. Holding commitMu through the save keeps
	// a reset from slipping in after the check.
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	current, err := s.store.GetSession(id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrStaleResult, id)
		}
		return nil, fmt.Errorf("getting session: %w", err)
	}
	if current.Revision != session.Revision {
		return nil, fmt.Errorf("%w: %s", ErrStaleResult, id)
	}

	now := s.timeSource.Now()
	current.Transcript = append(current.Transcript, Message{Role: RoleUser, Text: text, At: now})

	if interpretErr != nil {
		slog.Error("Failed to interpret command", "session", id, "error", interpretErr)
		current.Transcript = append(current.Transcript, Message{Role: RoleAssistant, Text: apologyReply, At: now})
		current.Revision++
		current.UpdatedAt = now
		if err := s.store.SaveSession(current); err != nil {
			return nil, fmt.Errorf("saving session: %w", err)
		}
		return nil, fmt.Errorf("%w: %w", ErrInterpretation, interpretErr)
	}

	current.Assignments = current.Assignments.Apply(result.Actions)
	current.Transcript = append(current.Transcript, Message{Role: RoleAssistant, Text: result.Reply, At: now})
	current.Revision++
	current.UpdatedAt = now

	if err := s.store.SaveSession(current); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	return &CommandResult{
		Reply:      result.Reply,
		Settlement: current.Settlement(),
	}, nil
}

// Audit asks the external auditor to review the current split. It never
// mutates the session; a result arriving after a reset is discarded.
func (s *Service) Audit(id string) (string, error) {
	session, err := s.store.GetSession(id)
	if err != nil {
		return "", fmt.Errorf("getting session: %w", err)
	}

	report, auditErr := s.auditor.Review(session.Receipt, session.Settlement())

	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	current, err := s.store.GetSession(id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return "", fmt.Errorf("%w: %s", ErrStaleResult, id)
		}
		return "", fmt.Errorf("getting session: %w", err)
	}
	if current.Revision != session.Revision {
		return "", fmt.Errorf("%w: %s", ErrStaleResult, id)
	}

	if auditErr != nil {
		slog.Error("Failed to audit split", "session", id, "error", auditErr)
		return "", fmt.Errorf("%w: %w", ErrAudit, auditErr)
	}

	return report, nil
}

// Reset discards a session and its stored image
func (s *Service) Reset(id string) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	session, err := s.store.GetSession(id)
	if err != nil {
		return fmt.Errorf("getting session for reset: %w", err)
	}

	if err := s.images.Delete(session.ImagePath); err != nil {
		// Log error but continue with session deletion
		slog.Warn("Failed to delete image", "path", session.ImagePath, "error", err)
	}

	if err := s.store.DeleteSession(id); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Image retrieves the original uploaded image for a session
func (s *Service) Image(id string) ([]byte, string, error) {
	session, err := s.store.GetSession(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting session: %w", err)
	}

	data, err := s.images.Get(session.ImagePath)
	if err != nil {
		return nil, "", fmt.Errorf("getting session image: %w", err)
	}

	return data, session.ImageType, nil
}

func (s *Service) begin(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[id] {
		return false
	}
	s.inFlight[id] = true
	return true
}

func (s *Service) end(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, id)
}
