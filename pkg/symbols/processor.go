package symbols

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const (
	// DefaultCacheTTL is how long a cached analysis stays fresh.
	DefaultCacheTTL = 10 * time.Minute

	// cacheSweepThreshold triggers an inline expired-entry sweep around
	// insertion. No background janitor: this package must be safe to embed
	// without spawning goroutines.
	cacheSweepThreshold = 100

	// slowAnalysisBudget is the soft latency SLO per Analyze call. Exceeding
	// it warns and counts; it never fails the call.
	slowAnalysisBudget = 50 * time.Millisecond

	// contextWindow is the number of characters kept on each side of a match
	// start for citation display.
	contextWindow = 20
)

// Processor detects dictionary symbols in text, aggregates frequency and
// recency across a corpus, and caches results keyed by content fingerprint.
type Processor struct {
	entries  []compiledEntry
	cache    *gocache.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithCacheTTL overrides the analysis cache TTL.
func WithCacheTTL(ttl time.Duration) Option {
	return func(p *Processor) {
		if ttl > 0 {
			p.cacheTTL = ttl
		}
	}
}

// WithClock overrides the timestamp source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

// NewProcessor compiles the dictionary and prepares the analysis cache.
//
// A malformed dictionary does not fail construction: the processor degrades
// to empty analyses for every run, keeping the recall path available. The
// load error is logged once here.
func NewProcessor(dictionary []DictionaryEntry, logger *zap.Logger, opts ...Option) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{
		cacheTTL: DefaultCacheTTL,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	// Cleanup interval 0: expiry is checked on read and swept inline, never
	// by a background goroutine.
	p.cache = gocache.New(p.cacheTTL, 0)

	compiled, err := compileDictionary(dictionary)
	if err != nil {
		logger.Error("symbol dictionary rejected, analyses degrade to empty", zap.Error(err))
		return p
	}
	p.entries = compiled
	return p
}

// Analyze runs the detection pipeline over pieces for one user. Results are
// cached by (userID, content fingerprint); a fresh hit returns the stored
// analysis unchanged. forceRefresh bypasses the lookup but still stores the
// recomputed result.
func (p *Processor) Analyze(userID string, pieces []ContentPiece, forceRefresh bool) *Analysis {
	key := p.cacheKey(userID, pieces)
	if !forceRefresh {
		if hit, ok := p.cache.Get(key); ok {
			cacheHits.Inc()
			return hit.(*Analysis)
		}
	}
	cacheMisses.Inc()

	start := p.now()
	analysis := p.compute(pieces)
	analysis.Elapsed = p.now().Sub(start)
	analyzeDuration.Observe(analysis.Elapsed.Seconds())
	if analysis.Elapsed > slowAnalysisBudget {
		slowAnalyses.Inc()
		p.logger.Warn("symbol analysis exceeded latency budget",
			zap.Duration("elapsed", analysis.Elapsed),
			zap.Int("pieces", len(pieces)),
			zap.Int("dictionary", len(p.entries)))
	}

	p.cache.Set(key, analysis, p.cacheTTL)
	if p.cache.ItemCount() > cacheSweepThreshold {
		p.cache.DeleteExpired()
	}
	return analysis
}

// ClearCache drops every cached analysis.
func (p *Processor) ClearCache() {
	p.cache.Flush()
}

// CacheSize reports how many analyses are cached, expired entries included
// until the next sweep.
func (p *Processor) CacheSize() int {
	return p.cache.ItemCount()
}

// cacheKey fingerprints the concatenated content with a fast
// non-cryptographic hash. Collisions between different content sets are
// possible in principle and accepted for non-adversarial input.
func (p *Processor) cacheKey(userID string, pieces []ContentPiece) string {
	h := xxhash.New()
	for _, piece := range pieces {
		_, _ = h.WriteString(piece.Text)
		_, _ = h.WriteString("\x00")
	}
	return userID + ":" + strconv.FormatUint(h.Sum64(), 16)
}

func (p *Processor) compute(pieces []ContentPiece) *Analysis {
	analysis := &Analysis{
		ElementCounts:   make(map[string]int),
		ArchetypeCounts: make(map[string]int),
	}
	merged := make(map[string]*ProcessedSymbol)
	var order []string
	var elementOrder, archetypeOrder []string

	for _, piece := range pieces {
		ts := piece.Timestamp
		if ts.IsZero() {
			ts = p.now()
		}
		lower := strings.ToLower(piece.Text)

		for _, entry := range p.entries {
			if !passesPrefilter(lower, entry.prefilter) {
				continue
			}
			loc := entry.re.FindStringIndex(piece.Text)
			if loc == nil {
				continue
			}
			// At most one hit per label per piece, however often the
			// trigger repeats inside it.
			sym, seen := merged[entry.Label]
			if !seen {
				sym = &ProcessedSymbol{
					Label:     entry.Label,
					Element:   entry.Element,
					Archetype: entry.Archetype,
					Meaning:   entry.Meaning,
					Weight:    entry.Weight,
					Context:   contextSnippet(piece.Text, loc[0]),
					FirstSeen: ts,
				}
				merged[entry.Label] = sym
				order = append(order, entry.Label)
			}
			sym.Frequency++
			sym.LastSeen = ts
			if entry.Weight > sym.Weight {
				sym.Weight = entry.Weight
			}
			if entry.Element != "" {
				if analysis.ElementCounts[entry.Element] == 0 {
					elementOrder = append(elementOrder, entry.Element)
				}
				analysis.ElementCounts[entry.Element]++
			}
			if entry.Archetype != "" {
				if analysis.ArchetypeCounts[entry.Archetype] == 0 {
					archetypeOrder = append(archetypeOrder, entry.Archetype)
				}
				analysis.ArchetypeCounts[entry.Archetype]++
			}
		}
	}

	for _, label := range order {
		analysis.Symbols = append(analysis.Symbols, *merged[label])
	}
	analysis.Recurring = recurringSymbols(analysis.Symbols)
	analysis.DominantElement = dominant(analysis.ElementCounts, elementOrder)
	analysis.DominantArchetype = dominant(analysis.ArchetypeCounts, archetypeOrder)
	analysis.Narrative = synthesizeNarrative(analysis.Recurring, analysis.DominantElement)
	return analysis
}

func passesPrefilter(lowerContent string, words []string) bool {
	if len(words) == 0 {
		return true
	}
	for _, w := range words {
		if strings.Contains(lowerContent, w) {
			return true
		}
	}
	return false
}

// contextSnippet extracts a window around the match start for citation. The
// window bounds widen to the nearest rune boundaries so multi-byte content is
// never cut mid-rune.
func contextSnippet(text string, start int) string {
	lo := start - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := start + contextWindow
	if hi > len(text) {
		hi = len(text)
	}
	for lo > 0 && !utf8.RuneStart(text[lo]) {
		lo--
	}
	for hi < len(text) && !utf8.RuneStart(text[hi]) {
		hi++
	}
	return strings.TrimSpace(text[lo:hi])
}

// recurringSymbols filters to frequency >= 2, ordered by frequency then
// weight, both descending.
func recurringSymbols(symbols []ProcessedSymbol) []ProcessedSymbol {
	var out []ProcessedSymbol
	for _, s := range symbols {
		if s.Frequency >= 2 {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Frequency == out[b].Frequency {
			return out[a].Weight > out[b].Weight
		}
		return out[a].Frequency > out[b].Frequency
	})
	return out
}

// dominant returns the key with the highest raw count; ties resolve to the
// first-encountered key.
func dominant(counts map[string]int, order []string) string {
	best := ""
	bestCount := 0
	for _, key := range order {
		if counts[key] > bestCount {
			best = key
			bestCount = counts[key]
		}
	}
	return best
}

func synthesizeNarrative(recurring []ProcessedSymbol, dominantElement string) string {
	switch len(recurring) {
	case 0:
		return ""
	case 1:
		s := recurring[0]
		if s.Meaning != "" {
			return fmt.Sprintf("The %s has appeared %d times, suggesting %s.", s.Label, s.Frequency, s.Meaning)
		}
		return fmt.Sprintf("The %s has appeared %d times in your recent story.", s.Label, s.Frequency)
	default:
		first, second := recurring[0], recurring[1]
		combined := first.Frequency + second.Frequency
		if dominantElement != "" {
			return fmt.Sprintf("The %s and the %s recur through your story (%d appearances), carried by the %s element.",
				first.Label, second.Label, combined, dominantElement)
		}
		return fmt.Sprintf("The %s and the %s recur through your story (%d appearances).",
			first.Label, second.Label, combined)
	}
}
