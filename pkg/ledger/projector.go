package ledger

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// JournalView is the queryable read model for one user: aggregate counts
// optimized for lookup, not audit. Rebuildable at any time via Replay.
type JournalView struct {
	UserID          string
	TotalEntries    int
	CountsByType    map[string]int
	ElementCounts   map[string]int
	Patterns        []string
	ClearedSessions int
	LastActivity    time.Time
}

func (v *JournalView) clone() JournalView {
	out := *v
	out.CountsByType = make(map[string]int, len(v.CountsByType))
	for k, n := range v.CountsByType {
		out.CountsByType[k] = n
	}
	out.ElementCounts = make(map[string]int, len(v.ElementCounts))
	for k, n := range v.ElementCounts {
		out.ElementCounts[k] = n
	}
	out.Patterns = append([]string(nil), v.Patterns...)
	return out
}

// Projector applies ledger events to the journal read model.
type Projector struct {
	mu     sync.RWMutex
	views  map[string]*JournalView
	logger *zap.Logger
}

func NewProjector(logger *zap.Logger) *Projector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Projector{
		views:  make(map[string]*JournalView),
		logger: logger,
	}
}

// Apply folds one event into the read model. Unknown event types are skipped
// with a warning: older builds must keep projecting ledgers written by newer
// ones.
func (p *Projector) Apply(ev Event) error {
	switch data := ev.Data.(type) {
	case MemoryRecorded:
		p.mu.Lock()
		defer p.mu.Unlock()
		view := p.viewFor(data.UserID)
		view.TotalEntries++
		view.CountsByType[data.MemoryType]++
		if data.Element != "" {
			view.ElementCounts[data.Element]++
		}
		view.LastActivity = ev.Timestamp
	case SessionCleared:
		p.mu.Lock()
		defer p.mu.Unlock()
		view := p.viewFor(data.UserID)
		view.ClearedSessions++
		view.LastActivity = ev.Timestamp
	case PatternDetected:
		p.mu.Lock()
		defer p.mu.Unlock()
		view := p.viewFor(data.UserID)
		for _, label := range view.Patterns {
			if label == data.Label {
				return nil
			}
		}
		view.Patterns = append(view.Patterns, data.Label)
		view.LastActivity = ev.Timestamp
	default:
		p.logger.Warn("skipping unknown event type during projection",
			zap.String("event_id", ev.ID),
			zap.String("event_type", ev.Type))
	}
	return nil
}

func (p *Projector) viewFor(userID string) *JournalView {
	view, ok := p.views[userID]
	if !ok {
		view = &JournalView{
			UserID:        userID,
			CountsByType:  make(map[string]int),
			ElementCounts: make(map[string]int),
		}
		p.views[userID] = view
	}
	return view
}

// Journal returns a copy of the read model for one user.
func (p *Projector) Journal(userID string) (JournalView, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	view, ok := p.views[userID]
	if !ok {
		return JournalView{}, false
	}
	return view.clone(), true
}

// Reset drops all projected state.
func (p *Projector) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.views = make(map[string]*JournalView)
}

// Replayer is the slice of Store needed to rebuild the read model.
type Replayer interface {
	AllEvents(ctx context.Context) ([]Event, error)
}

// Replay rebuilds the read model from the full ledger. This is the only
// recovery path for projections lost to the best-effort apply in Append.
func (p *Projector) Replay(ctx context.Context, store Replayer) error {
	events, err := store.AllEvents(ctx)
	if err != nil {
		return err
	}
	p.Reset()
	for _, ev := range events {
		if err := p.Apply(ev); err != nil {
			return err
		}
	}
	p.logger.Info("read model rebuilt from ledger", zap.Int("events", len(events)))
	return nil
}
