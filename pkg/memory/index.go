package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultRecallLimit applies when a recall context does not set one.
const defaultRecallLimit = 5

// Index maintains per-user and per-session memory buckets, relevance-ranked
// recall, and the lightweight pattern detector. All state is in-process;
// durable history lives in the ledger.
type Index struct {
	mu       sync.RWMutex
	users    map[string][]Entry            // userID -> full history
	sessions map[string]map[string][]Entry // userID -> sessionID -> entries
	patterns map[string][]string           // userID -> recent labels, capped

	patternHook func(userID, label string)
	logger      *zap.Logger
	now         func() time.Time
}

// NewIndex creates an empty memory index.
func NewIndex(logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		users:    make(map[string][]Entry),
		sessions: make(map[string]map[string][]Entry),
		patterns: make(map[string][]string),
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the timestamp source for deterministic tests.
func (i *Index) SetClock(now func() time.Time) {
	if now != nil {
		i.now = now
	}
}

// SetPatternHook registers a callback invoked once per newly merged pattern
// label, after the entry is stored. Called outside the index lock.
func (i *Index) SetPatternHook(fn func(userID, label string)) {
	i.patternHook = fn
}

// Remember creates and stores an entry in the user bucket and, when a session
// is present, the session bucket, then runs the pattern detector over the
// content.
func (i *Index) Remember(content string, entryType EntryType, meta Metadata, userID string) (Entry, error) {
	return i.RememberEntry(Entry{
		UserID:   userID,
		Type:     entryType,
		Content:  content,
		Metadata: meta,
	})
}

// RememberEntry stores a pre-shaped entry, minting the ID and timestamp when
// absent. The ledger path uses it so the indexed entry keeps the ID recorded
// in the event history.
func (i *Index) RememberEntry(entry Entry) (Entry, error) {
	if strings.TrimSpace(entry.UserID) == "" {
		return Entry{}, ErrEmptyUserID
	}
	if strings.TrimSpace(entry.Content) == "" {
		return Entry{}, ErrEmptyContent
	}
	if !entry.Type.Valid() {
		return Entry{}, ErrUnknownEntryType
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = i.now()
	}
	userID := entry.UserID
	meta := entry.Metadata

	detected := detectPatterns(entry.Content)

	i.mu.Lock()
	i.users[userID] = append(i.users[userID], entry)
	if meta.SessionID != "" {
		bySession, ok := i.sessions[userID]
		if !ok {
			bySession = make(map[string][]Entry)
			i.sessions[userID] = bySession
		}
		bySession[meta.SessionID] = append(bySession[meta.SessionID], entry)
	}
	before := i.patterns[userID]
	merged := mergePatterns(append([]string(nil), before...), detected)
	i.patterns[userID] = merged
	newLabels := diffLabels(before, merged)
	i.mu.Unlock()

	if i.patternHook != nil {
		for _, label := range newLabels {
			i.patternHook(userID, label)
		}
	}

	i.logger.Debug("memory recorded",
		zap.String("user_id", userID),
		zap.String("type", string(entry.Type)),
		zap.Int("new_patterns", len(newLabels)))
	return entry, nil
}

func diffLabels(before, after []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, l := range before {
		seen[l] = struct{}{}
	}
	var out []string
	for _, l := range after {
		if _, ok := seen[l]; !ok {
			out = append(out, l)
		}
	}
	return out
}

// Recall ranks the user's candidate entries against rc and returns the top
// matches, the user's most recent pattern labels, and a one-line summary.
func (i *Index) Recall(rc RecallContext) (RecallResult, error) {
	if strings.TrimSpace(rc.UserID) == "" {
		return RecallResult{}, ErrEmptyUserID
	}
	limit := rc.Limit
	if limit <= 0 {
		limit = defaultRecallLimit
	}
	now := i.now()

	i.mu.RLock()
	candidates := i.candidateSet(rc.UserID, rc.SessionID)
	recent := recentPatternLabels(i.patterns[rc.UserID], 3)
	i.mu.RUnlock()

	for idx := range candidates {
		candidates[idx].Relevance = scoreEntry(&candidates[idx], rc, now)
	}
	sortByRelevance(candidates)

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return RecallResult{
		Entries:  candidates,
		Patterns: recent,
		Summary:  summarize(candidates),
	}, nil
}

// candidateSet unions the user's full history with the session bucket,
// deduplicated by entry ID. Caller holds at least the read lock.
func (i *Index) candidateSet(userID, sessionID string) []Entry {
	history := i.users[userID]
	out := make([]Entry, 0, len(history))
	seen := make(map[string]struct{}, len(history))
	for _, e := range history {
		out = append(out, e)
		seen[e.ID] = struct{}{}
	}
	if sessionID != "" {
		for _, e := range i.sessions[userID][sessionID] {
			if _, dup := seen[e.ID]; dup {
				continue
			}
			out = append(out, e)
			seen[e.ID] = struct{}{}
		}
	}
	return out
}

func recentPatternLabels(labels []string, n int) []string {
	if len(labels) == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for idx := len(labels) - 1; idx >= 0 && len(out) < n; idx-- {
		out = append(out, labels[idx])
	}
	return out
}

// Stats returns aggregate counts for one user.
func (i *Index) Stats(userID string) Stats {
	i.mu.RLock()
	defer i.mu.RUnlock()

	entries := i.users[userID]
	st := Stats{
		Total:        len(entries),
		CountsByType: make(map[EntryType]int),
		Patterns:     append([]string(nil), i.patterns[userID]...),
	}
	for _, e := range entries {
		st.CountsByType[e.Type]++
		if e.Timestamp.After(st.MostRecent) {
			st.MostRecent = e.Timestamp
		}
	}
	return st
}

// ClearSession removes only the session-scoped bucket. User-scoped history is
// untouched: a user can purge one conversation without losing long-term
// memory.
func (i *Index) ClearSession(userID, sessionID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if bySession, ok := i.sessions[userID]; ok {
		delete(bySession, sessionID)
	}
	i.logger.Info("session memory cleared",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID))
}
