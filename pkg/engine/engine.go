// Package engine wires the ledger, read-model projector, memory index, and
// symbol processor into one embeddable component. Writes flow through the
// ledger; recall and analysis never touch it.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dotsetgreg/mnemo/pkg/config"
	"github.com/dotsetgreg/mnemo/pkg/ledger"
	"github.com/dotsetgreg/mnemo/pkg/memory"
	"github.com/dotsetgreg/mnemo/pkg/symbols"
)

// Store is the durable backing the engine needs: the ledger store plus full
// replay access.
type Store interface {
	ledger.Store
	ledger.Replayer
}

// Engine is the memory and pattern-recognition core. All methods are safe for
// concurrent use.
type Engine struct {
	cfg       *config.Config
	store     Store
	ledger    *ledger.Ledger
	projector *ledger.Projector
	index     *memory.Index
	symbols   *symbols.Processor
	logger    *zap.Logger
}

// Option configures engine construction.
type Option func(*options)

type options struct {
	store      Store
	dictionary []symbols.DictionaryEntry
}

// WithStore substitutes the durable store. Tests pass an in-memory store.
func WithStore(s Store) Option {
	return func(o *options) { o.store = s }
}

// WithDictionary substitutes the symbol dictionary.
func WithDictionary(entries []symbols.DictionaryEntry) Option {
	return func(o *options) { o.dictionary = entries }
}

// New builds an engine from cfg. Unless overridden, the ledger persists to
// the configured sqlite path and the embedded symbol dictionary is used.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store := o.store
	if store == nil {
		s, err := ledger.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open ledger store: %w", err)
		}
		store = s
	}

	dictionary := o.dictionary
	if dictionary == nil {
		var err error
		if cfg.DictionaryPath != "" {
			dictionary, err = symbols.LoadDictionary(cfg.DictionaryPath)
		} else {
			dictionary, err = symbols.DefaultDictionary()
		}
		if err != nil {
			// The processor degrades to empty analyses; recall keeps working.
			logger.Error("symbol dictionary unavailable", zap.Error(err))
		}
	}

	projector := ledger.NewProjector(logger)
	led, err := ledger.New(store, projector, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	eng := &Engine{
		cfg:       cfg,
		store:     store,
		ledger:    led,
		projector: projector,
		index:     memory.NewIndex(logger),
		symbols:   symbols.NewProcessor(dictionary, logger, symbols.WithCacheTTL(cfg.AnalysisCacheTTL)),
		logger:    logger,
	}
	eng.index.SetPatternHook(eng.recordPattern)
	return eng, nil
}

// Close releases the durable store.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Ledger exposes the event log for subscribers and audit reads.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Index exposes the memory index for direct writes that bypass the ledger.
func (e *Engine) Index() *memory.Index { return e.index }

// Symbols exposes the symbol processor.
func (e *Engine) Symbols() *symbols.Processor { return e.symbols }

// Remember records a memory: the domain event is persisted first (a store
// failure aborts and nothing is remembered), then the index stores the entry
// for fast recall. Read-model projection rides along best-effort inside the
// ledger append.
func (e *Engine) Remember(ctx context.Context, content string, entryType memory.EntryType, meta memory.Metadata, userID string) (memory.Entry, error) {
	// Validate before the append so a rejected write leaves no event behind.
	if strings.TrimSpace(userID) == "" {
		return memory.Entry{}, memory.ErrEmptyUserID
	}
	if strings.TrimSpace(content) == "" {
		return memory.Entry{}, memory.ErrEmptyContent
	}
	if !entryType.Valid() {
		return memory.Entry{}, memory.ErrUnknownEntryType
	}
	entryID := uuid.NewString()
	ev, err := e.ledger.Append(ctx, ledger.EventMemoryRecorded, ledger.MemoryRecorded{
		EntryID:    entryID,
		UserID:     userID,
		MemoryType: string(entryType),
		Content:    content,
		Element:    meta.Element,
		SessionID:  meta.SessionID,
	})
	if err != nil {
		return memory.Entry{}, err
	}
	return e.index.RememberEntry(memory.Entry{
		ID:        entryID,
		UserID:    userID,
		Type:      entryType,
		Content:   content,
		Metadata:  meta,
		Timestamp: ev.Timestamp,
	})
}

// Recall queries the memory index. The ledger is never consulted on the read
// path.
func (e *Engine) Recall(rc memory.RecallContext) (memory.RecallResult, error) {
	if rc.Limit <= 0 {
		rc.Limit = e.cfg.RecallLimit
	}
	return e.index.Recall(rc)
}

// Analyze runs symbol detection over pieces for one user.
func (e *Engine) Analyze(userID string, pieces []symbols.ContentPiece, forceRefresh bool) *symbols.Analysis {
	return e.symbols.Analyze(userID, pieces, forceRefresh)
}

// Stats summarizes one user's indexed memory.
func (e *Engine) Stats(userID string) memory.Stats {
	return e.index.Stats(userID)
}

// Journal returns the projected read model for one user.
func (e *Engine) Journal(userID string) (ledger.JournalView, bool) {
	return e.projector.Journal(userID)
}

// History returns the ordered event history for one user's journal aggregate.
func (e *Engine) History(ctx context.Context, userID string) ([]ledger.Event, error) {
	return e.ledger.EventsFor(ctx, userID)
}

// ClearSession purges one conversation's session-scoped memory. The clearing
// is itself an appended event; user-scoped history stays intact.
func (e *Engine) ClearSession(ctx context.Context, userID, sessionID string) error {
	_, err := e.ledger.Append(ctx, ledger.EventSessionCleared, ledger.SessionCleared{
		UserID:    userID,
		SessionID: sessionID,
	})
	if err != nil {
		return err
	}
	e.index.ClearSession(userID, sessionID)
	return nil
}

// Replay rebuilds the read model from the full ledger.
func (e *Engine) Replay(ctx context.Context) error {
	return e.projector.Replay(ctx, e.store)
}

// recordPattern appends a pattern event when the detector finds a new label.
// Best-effort: the in-memory pattern list is already updated, and the event
// exists only to make pattern history replayable.
func (e *Engine) recordPattern(userID, label string) {
	if _, err := e.ledger.Append(context.Background(), ledger.EventPatternDetected, ledger.PatternDetected{
		UserID: userID,
		Label:  label,
	}); err != nil {
		e.logger.Warn("pattern event not recorded",
			zap.String("user_id", userID),
			zap.String("label", label),
			zap.Error(err))
	}
}
