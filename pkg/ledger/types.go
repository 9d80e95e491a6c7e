package ledger

import "time"

// Event type names. New types may be added; projections skip types they
// do not recognize.
const (
	EventMemoryRecorded  = "memory.recorded"
	EventSessionCleared  = "session.cleared"
	EventPatternDetected = "pattern.detected"
)

// AggregateJournal is the aggregate type for per-user journal history.
const AggregateJournal = "journal"

// Payload is the typed body of an event. Each event type has exactly one
// payload shape; the ledger derives aggregate identity from it.
type Payload interface {
	AggregateID() string
	AggregateType() string
	PayloadUserID() string
}

// Event is the canonical append-only ledger record. Immutable once persisted;
// Version is monotonic and gap-free per AggregateID.
type Event struct {
	ID        string
	Type      string
	AggID     string
	AggType   string
	Data      Payload
	Timestamp time.Time
	UserID    string
	Version   int
}

// MemoryRecorded is emitted when a memory entry enters the system.
type MemoryRecorded struct {
	EntryID    string `json:"entry_id"`
	UserID     string `json:"user_id"`
	MemoryType string `json:"memory_type"`
	Content    string `json:"content"`
	Element    string `json:"element,omitempty"`
	SessionID  string `json:"session_id,omitempty"`
}

func (p MemoryRecorded) AggregateID() string   { return p.UserID }
func (p MemoryRecorded) AggregateType() string { return AggregateJournal }
func (p MemoryRecorded) PayloadUserID() string { return p.UserID }

// SessionCleared is emitted when a user purges one conversation. It is a new
// event, never an edit of history: deletion is expressed as an append.
type SessionCleared struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

func (p SessionCleared) AggregateID() string   { return p.UserID }
func (p SessionCleared) AggregateType() string { return AggregateJournal }
func (p SessionCleared) PayloadUserID() string { return p.UserID }

// PatternDetected is emitted when the pattern detector finds a new recurring
// label in a user's content.
type PatternDetected struct {
	UserID string `json:"user_id"`
	Label  string `json:"label"`
}

func (p PatternDetected) AggregateID() string   { return p.UserID }
func (p PatternDetected) AggregateType() string { return AggregateJournal }
func (p PatternDetected) PayloadUserID() string { return p.UserID }

// RawPayload carries an event body whose type this build does not know.
// Events with raw payloads load and replay fine; projections skip them.
type RawPayload struct {
	AggID   string
	AggType string
	UserID  string
	JSON    []byte
}

func (p RawPayload) AggregateID() string   { return p.AggID }
func (p RawPayload) AggregateType() string { return p.AggType }
func (p RawPayload) PayloadUserID() string { return p.UserID }
