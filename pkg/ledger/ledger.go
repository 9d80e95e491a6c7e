package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// WildcardType subscribes to every event type.
const WildcardType = "*"

// maxAppendRetries bounds the optimistic compare-and-retry loop. Conflicts
// only occur on concurrent appends to the same aggregate; the bound exists so
// a wedged store cannot spin forever.
const maxAppendRetries = 32

const eventCacheSize = 1024

// Subscriber receives an event synchronously after it is durably persisted
// and before it is projected.
type Subscriber func(Event)

// Ledger is the append-only, per-aggregate versioned event log. It is the
// source of truth; the projector's read model is derived and best-effort.
type Ledger struct {
	store     Store
	projector *Projector
	logger    *zap.Logger
	now       func() time.Time

	// cacheMu serializes every read-modify-write of the event cache. The LRU
	// is itself thread-safe, but an unserialized Get then Add lets two
	// concurrent appends each extend the same snapshot and the later Add
	// erase the earlier writer's event for the process lifetime.
	cacheMu sync.Mutex
	cache   *lru.Cache[string, []Event]

	mu   sync.RWMutex
	subs map[string][]Subscriber
}

// New creates a Ledger over store. projector may be nil when no read model
// is needed (e.g. audit-only deployments).
func New(store Store, projector *Projector, logger *zap.Logger) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache, err := lru.New[string, []Event](eventCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create event cache: %w", err)
	}
	return &Ledger{
		store:     store,
		projector: projector,
		cache:     cache,
		logger:    logger,
		now:       time.Now,
		subs:      make(map[string][]Subscriber),
	}, nil
}

// SetClock overrides the timestamp source. Tests freeze it for deterministic
// ordering assertions.
func (l *Ledger) SetClock(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}

// Subscribe registers fn for a specific event type, or for every type when
// eventType is "*".
func (l *Ledger) Subscribe(eventType string, fn Subscriber) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs[eventType] = append(l.subs[eventType], fn)
}

// Append persists a new event for the aggregate derived from payload.
//
// The version is claimed optimistically: read the latest version, attempt a
// conditional write at latest+1, and retry the whole computation when a
// concurrent writer got there first. A store failure aborts the append
// entirely; the event is treated as never having happened. A projection
// failure after durable persistence is logged and swallowed: the read model
// is eventually consistent and recoverable by replay.
func (l *Ledger) Append(ctx context.Context, eventType string, payload Payload) (Event, error) {
	if payload == nil {
		return Event{}, ErrNilPayload
	}
	if eventType == "" {
		return Event{}, fmt.Errorf("%w: empty type", ErrUnknownEventType)
	}

	aggID := payload.AggregateID()
	var ev Event
	for attempt := 0; ; attempt++ {
		latest, err := l.store.LatestVersion(ctx, aggID)
		if err != nil {
			return Event{}, fmt.Errorf("read latest version: %w", err)
		}
		ev = Event{
			ID:        uuid.NewString(),
			Type:      eventType,
			AggID:     aggID,
			AggType:   payload.AggregateType(),
			Data:      payload,
			Timestamp: l.now(),
			UserID:    payload.PayloadUserID(),
			Version:   latest + 1,
		}
		err = l.store.AppendEvent(ctx, ev)
		if err == nil {
			break
		}
		if errors.Is(err, ErrVersionConflict) && attempt < maxAppendRetries {
			versionConflicts.Inc()
			continue
		}
		return Event{}, fmt.Errorf("persist event %s: %w", eventType, err)
	}
	appendsTotal.WithLabelValues(eventType).Inc()

	l.refreshCache(ev)
	l.notify(ev)

	if l.projector != nil {
		if err := l.projector.Apply(ev); err != nil {
			projectionFailures.Inc()
			l.logger.Warn("projection failed, read model is stale until replay",
				zap.String("event_id", ev.ID),
				zap.String("event_type", ev.Type),
				zap.Error(err))
		}
	}
	return ev, nil
}

// EventsFor returns the full ordered history of one aggregate, serving from
// the in-process cache when available.
//
// The miss path holds cacheMu across the store load: populating the cache
// from a load that raced with an append must not overwrite the refreshed
// entry with a stale list.
func (l *Ledger) EventsFor(ctx context.Context, aggregateID string) ([]Event, error) {
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()
	if cached, ok := l.cache.Get(aggregateID); ok {
		out := make([]Event, len(cached))
		copy(out, cached)
		return out, nil
	}
	events, err := l.store.EventsFor(ctx, aggregateID, 0)
	if err != nil {
		return nil, fmt.Errorf("load events for %s: %w", aggregateID, err)
	}
	l.cache.Add(aggregateID, events)
	out := make([]Event, len(events))
	copy(out, events)
	return out, nil
}

func (l *Ledger) refreshCache(ev Event) {
	l.cacheMu.Lock()
	defer l.cacheMu.Unlock()
	cached, ok := l.cache.Get(ev.AggID)
	if !ok {
		return
	}
	// Only extend a snapshot this event directly follows. Anything else means
	// an interleaved writer refreshed first; drop the entry so the next read
	// reloads the full history rather than serving it out of order.
	if len(cached) > 0 && cached[len(cached)-1].Version != ev.Version-1 {
		l.cache.Remove(ev.AggID)
		return
	}
	next := make([]Event, len(cached), len(cached)+1)
	copy(next, cached)
	next = append(next, ev)
	l.cache.Add(ev.AggID, next)
}

func (l *Ledger) notify(ev Event) {
	l.mu.RLock()
	typed := l.subs[ev.Type]
	wild := l.subs[WildcardType]
	l.mu.RUnlock()
	for _, fn := range typed {
		fn(ev)
	}
	for _, fn := range wild {
		fn(ev)
	}
}
