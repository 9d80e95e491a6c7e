package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Store provides durable persistence for ledger events.
//
// Append must reject an event whose Version is already taken for its
// aggregate with ErrVersionConflict; that conditional write is the primitive
// the ledger's compare-and-retry loop relies on.
type Store interface {
	Close() error
	AppendEvent(ctx context.Context, ev Event) error
	EventsFor(ctx context.Context, aggregateID string, fromVersion int) ([]Event, error)
	LatestVersion(ctx context.Context, aggregateID string) (int, error)
}

func encodePayload(p Payload) ([]byte, error) {
	if raw, ok := p.(RawPayload); ok {
		return raw.JSON, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return b, nil
}

func decodePayload(eventType, aggID, aggType, userID string, raw []byte) (Payload, error) {
	switch eventType {
	case EventMemoryRecorded:
		var p MemoryRecorded
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return p, nil
	case EventSessionCleared:
		var p SessionCleared
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return p, nil
	case EventPatternDetected:
		var p PatternDetected
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", eventType, err)
		}
		return p, nil
	default:
		// Preserve the body so replay and audit keep working across versions.
		return RawPayload{AggID: aggID, AggType: aggType, UserID: userID, JSON: raw}, nil
	}
}

// MemoryStore is an in-process Store used by tests and the console without a
// database file. It enforces the same version uniqueness as the sqlite store.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string][]Event // aggregateID -> events ordered by version
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string][]Event)}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) AppendEvent(ctx context.Context, ev Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.events[ev.AggID] {
		if existing.Version == ev.Version {
			return ErrVersionConflict
		}
	}
	s.events[ev.AggID] = append(s.events[ev.AggID], ev)
	sort.Slice(s.events[ev.AggID], func(i, j int) bool {
		return s.events[ev.AggID][i].Version < s.events[ev.AggID][j].Version
	})
	return nil
}

func (s *MemoryStore) EventsFor(ctx context.Context, aggregateID string, fromVersion int) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, ev := range s.events[aggregateID] {
		if ev.Version >= fromVersion {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *MemoryStore) LatestVersion(ctx context.Context, aggregateID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	evs := s.events[aggregateID]
	if len(evs) == 0 {
		return 0, nil
	}
	return evs[len(evs)-1].Version, nil
}

// AllEvents returns every stored event ordered by aggregate then version.
// Used by replay.
func (s *MemoryStore) AllEvents(ctx context.Context) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	aggs := make([]string, 0, len(s.events))
	for agg := range s.events {
		aggs = append(aggs, agg)
	}
	sort.Strings(aggs)
	var out []Event
	for _, agg := range aggs {
		out = append(out, s.events[agg]...)
	}
	return out, nil
}
