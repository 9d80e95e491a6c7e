package memory

import (
	"math"
	"sort"
	"strings"
	"time"
)

// tieBreakWindow is the score distance under which recency decides ordering.
const tieBreakWindow = 0.1

// scoreEntry computes the bounded relevance of one candidate for a query.
//
// Signals stack: 0.3 per distinct matched query term, type bonuses gated by
// the include flags, element match, recency (under 24h, extra under 1h), and
// session match. The total clamps to [0, 1].
func scoreEntry(e *Entry, rc RecallContext, now time.Time) float64 {
	score := 0.0
	content := strings.ToLower(e.Content)
	for _, term := range queryTerms(rc.Query) {
		if strings.Contains(content, term) {
			score += 0.3
		}
	}

	switch e.Type {
	case TypeRitual:
		if rc.IncludeRituals {
			score += 0.2
		}
	case TypeReflection:
		if rc.IncludeReflections {
			score += 0.2
		}
	case TypeSynchronicity:
		if rc.IncludeSynchronicities {
			score += 0.3
		}
	}

	if rc.Element != "" && rc.Element == e.Metadata.Element {
		score += 0.2
	}

	age := now.Sub(e.Timestamp)
	if age < 24*time.Hour {
		score += 0.1
		if age < time.Hour {
			score += 0.2
		}
	}

	if rc.SessionID != "" && rc.SessionID == e.Metadata.SessionID {
		score += 0.3
	}

	return math.Min(1, math.Max(0, score))
}

// queryTerms returns the distinct lowercase terms of a query.
func queryTerms(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// sortByRelevance orders candidates by descending score; scores closer than
// the tie-break window order by descending recency instead.
func sortByRelevance(entries []Entry) {
	sort.SliceStable(entries, func(a, b int) bool {
		if math.Abs(entries[a].Relevance-entries[b].Relevance) < tieBreakWindow {
			return entries[a].Timestamp.After(entries[b].Timestamp)
		}
		return entries[a].Relevance > entries[b].Relevance
	})
}

// summarize picks a one-line summary by scanning the returned entries' types
// in priority order.
func summarize(entries []Entry) string {
	if len(entries) == 0 {
		return "Your story is just beginning; no memories match yet."
	}
	present := make(map[EntryType]bool, len(entries))
	var order []EntryType
	for _, e := range entries {
		if !present[e.Type] {
			present[e.Type] = true
			order = append(order, e.Type)
		}
	}
	switch {
	case present[TypeBreakthrough]:
		return "Recent breakthroughs are reshaping your path."
	case present[TypeSynchronicity]:
		return "Synchronicities are weaving through your experience."
	case present[TypeRitual]:
		return "Your rituals are anchoring this phase of the journey."
	}
	labels := make([]string, 0, len(order))
	for _, t := range order {
		labels = append(labels, string(t))
	}
	return "Memories surfaced: " + strings.Join(labels, ", ")
}
