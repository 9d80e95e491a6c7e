package symbols

import "time"

// DictionaryEntry is one configured symbol: a label, the trigger pattern that
// detects it, and its interpretive attributes. Loaded once at startup and
// treated as read-only.
type DictionaryEntry struct {
	Label     string  `yaml:"label"`
	Trigger   string  `yaml:"trigger"`
	Element   string  `yaml:"element"`
	Archetype string  `yaml:"archetype"`
	Meaning   string  `yaml:"meaning"`
	Weight    float64 `yaml:"weight"`
}

// ContentPiece is one unit of user text under analysis.
type ContentPiece struct {
	Text      string
	Timestamp time.Time
}

// ProcessedSymbol is the cumulative record for one detected label across a
// corpus. Frequency counts distinct content pieces containing the label, at
// most once per piece.
type ProcessedSymbol struct {
	Label     string
	Element   string
	Archetype string
	Meaning   string
	Weight    float64
	Frequency int
	Context   string
	FirstSeen time.Time
	LastSeen  time.Time
}

// Analysis is the full result of one corpus pass.
type Analysis struct {
	Symbols           []ProcessedSymbol
	Recurring         []ProcessedSymbol
	DominantElement   string
	DominantArchetype string
	ElementCounts     map[string]int
	ArchetypeCounts   map[string]int
	Narrative         string
	Elapsed           time.Duration
}
