package memory

import "time"

// EntryType classifies memory entries.
type EntryType string

const (
	TypeConversation  EntryType = "conversation"
	TypeInsight       EntryType = "insight"
	TypeBreakthrough  EntryType = "breakthrough"
	TypeRitual        EntryType = "ritual"
	TypeJournal       EntryType = "journal"
	TypeDream         EntryType = "dream"
	TypeReflection    EntryType = "reflection"
	TypeSynchronicity EntryType = "synchronicity"
	TypePattern       EntryType = "pattern"
	TypeVoice         EntryType = "voice"
	TypeVision        EntryType = "vision"
)

var validTypes = map[EntryType]struct{}{
	TypeConversation: {}, TypeInsight: {}, TypeBreakthrough: {}, TypeRitual: {},
	TypeJournal: {}, TypeDream: {}, TypeReflection: {}, TypeSynchronicity: {},
	TypePattern: {}, TypeVoice: {}, TypeVision: {},
}

// Valid reports whether t is a known entry type.
func (t EntryType) Valid() bool {
	_, ok := validTypes[t]
	return ok
}

// Metadata carries the contextual attributes of an entry.
type Metadata struct {
	Element   string
	SessionID string
	Archetype string
	Extra     map[string]string
}

// Entry is a single memory record. Never mutated after creation, only
// superseded by newer entries. Relevance is transient, computed per query.
type Entry struct {
	ID        string
	UserID    string
	Type      EntryType
	Content   string
	Metadata  Metadata
	Timestamp time.Time
	Relevance float64
}

// RecallContext describes one recall query.
type RecallContext struct {
	Query     string
	UserID    string
	SessionID string
	Element   string
	Limit     int

	IncludeRituals         bool
	IncludeReflections     bool
	IncludeSynchronicities bool
}

// RecallResult is the ranked answer to a recall query.
type RecallResult struct {
	Entries  []Entry
	Patterns []string
	Summary  string
}

// Stats summarizes one user's memory.
type Stats struct {
	Total        int
	CountsByType map[EntryType]int
	Patterns     []string
	MostRecent   time.Time
}
