package ledger

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestLedger(t *testing.T) (*Ledger, *MemoryStore, *Projector) {
	t.Helper()
	store := NewMemoryStore()
	projector := NewProjector(zap.NewNop())
	led, err := New(store, projector, zap.NewNop())
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	return led, store, projector
}

func TestAppend_SequentialVersionsAreGapless(t *testing.T) {
	ctx := context.Background()
	led, _, _ := newTestLedger(t)

	const n = 25
	for i := 0; i < n; i++ {
		_, err := led.Append(ctx, EventMemoryRecorded, MemoryRecorded{
			EntryID: "e", UserID: "u1", MemoryType: "journal", Content: "day",
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	events, err := led.EventsFor(ctx, "u1")
	if err != nil {
		t.Fatalf("events for: %v", err)
	}
	if len(events) != n {
		t.Fatalf("got %d events, want %d", len(events), n)
	}
	for i, ev := range events {
		if ev.Version != i+1 {
			t.Fatalf("event %d has version %d, want %d", i, ev.Version, i+1)
		}
	}
}

func TestAppend_ConcurrentWritersKeepVersionsGapless(t *testing.T) {
	ctx := context.Background()
	led, store, _ := newTestLedger(t)

	const writers = 10
	var wg sync.WaitGroup
	errCh := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := led.Append(ctx, EventMemoryRecorded, MemoryRecorded{
				UserID: "u1", MemoryType: "insight", Content: "concurrent",
			})
			errCh <- err
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("concurrent append: %v", err)
		}
	}

	events, err := store.EventsFor(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("events for: %v", err)
	}
	versions := make([]int, 0, len(events))
	for _, ev := range events {
		versions = append(versions, ev.Version)
	}
	sort.Ints(versions)
	if len(versions) != writers {
		t.Fatalf("got %d events, want %d", len(versions), writers)
	}
	for i, v := range versions {
		if v != i+1 {
			t.Fatalf("versions not gapless: %v", versions)
		}
	}
}

func TestAppend_NotifiesSubscribersAfterPersist(t *testing.T) {
	ctx := context.Background()
	led, _, _ := newTestLedger(t)

	var typed, wild []string
	led.Subscribe(EventSessionCleared, func(ev Event) {
		typed = append(typed, ev.ID)
	})
	led.Subscribe(WildcardType, func(ev Event) {
		wild = append(wild, ev.ID)
	})

	ev, err := led.Append(ctx, EventSessionCleared, SessionCleared{UserID: "u1", SessionID: "s1"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(typed) != 1 || typed[0] != ev.ID {
		t.Fatalf("typed subscriber not notified: %v", typed)
	}
	if len(wild) != 1 || wild[0] != ev.ID {
		t.Fatalf("wildcard subscriber not notified: %v", wild)
	}

	// Different type: typed subscriber stays silent, wildcard fires.
	if _, err := led.Append(ctx, EventPatternDetected, PatternDetected{UserID: "u1", Label: "fire"}); err != nil {
		t.Fatalf("append pattern: %v", err)
	}
	if len(typed) != 1 {
		t.Fatalf("typed subscriber fired for wrong type")
	}
	if len(wild) != 2 {
		t.Fatalf("wildcard subscriber missed event")
	}
}

type failingStore struct{ *MemoryStore }

var errDown = errors.New("store down")

func (f failingStore) AppendEvent(ctx context.Context, ev Event) error { return errDown }

func TestAppend_StoreFailureAbortsEntirely(t *testing.T) {
	ctx := context.Background()
	projector := NewProjector(zap.NewNop())
	led, err := New(failingStore{NewMemoryStore()}, projector, zap.NewNop())
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	notified := false
	led.Subscribe(WildcardType, func(Event) { notified = true })

	_, err = led.Append(ctx, EventMemoryRecorded, MemoryRecorded{UserID: "u1", MemoryType: "dream", Content: "x"})
	if !errors.Is(err, errDown) {
		t.Fatalf("expected store failure to propagate, got %v", err)
	}
	if notified {
		t.Fatalf("subscriber notified for an event that never happened")
	}
	if _, ok := projector.Journal("u1"); ok {
		t.Fatalf("read model updated for an event that never happened")
	}
}

func TestAppend_NilPayloadRejected(t *testing.T) {
	led, _, _ := newTestLedger(t)
	if _, err := led.Append(context.Background(), EventMemoryRecorded, nil); !errors.Is(err, ErrNilPayload) {
		t.Fatalf("expected ErrNilPayload, got %v", err)
	}
}

type countingStore struct {
	*MemoryStore
	loads int
}

func (c *countingStore) EventsFor(ctx context.Context, aggregateID string, fromVersion int) ([]Event, error) {
	c.loads++
	return c.MemoryStore.EventsFor(ctx, aggregateID, fromVersion)
}

func TestEventsFor_ServesFromCacheAndStaysCurrent(t *testing.T) {
	ctx := context.Background()
	store := &countingStore{MemoryStore: NewMemoryStore()}
	led, err := New(store, nil, zap.NewNop())
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}

	if _, err := led.Append(ctx, EventMemoryRecorded, MemoryRecorded{UserID: "u1", MemoryType: "journal", Content: "a"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	first, err := led.EventsFor(ctx, "u1")
	if err != nil {
		t.Fatalf("events for: %v", err)
	}
	if len(first) != 1 {
		t.Fatalf("got %d events, want 1", len(first))
	}
	loadsAfterFirst := store.loads

	// Cached: a second read must not hit the store.
	if _, err := led.EventsFor(ctx, "u1"); err != nil {
		t.Fatalf("events for: %v", err)
	}
	if store.loads != loadsAfterFirst {
		t.Fatalf("cached read went to the store")
	}

	// Appends keep the cached history current without a reload.
	if _, err := led.Append(ctx, EventMemoryRecorded, MemoryRecorded{UserID: "u1", MemoryType: "journal", Content: "b"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := led.EventsFor(ctx, "u1")
	if err != nil {
		t.Fatalf("events for: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("cache missed appended event: got %d events", len(second))
	}
	if store.loads != loadsAfterFirst {
		t.Fatalf("append invalidated the cache instead of refreshing it")
	}
}

func TestEventsFor_CacheStaysCompleteUnderConcurrentAppends(t *testing.T) {
	ctx := context.Background()

	const rounds = 10
	const writers = 16
	for round := 0; round < rounds; round++ {
		led, store, _ := newTestLedger(t)

		// Warm the cache so every concurrent append takes the refresh path.
		if _, err := led.Append(ctx, EventMemoryRecorded, MemoryRecorded{UserID: "u1", MemoryType: "journal", Content: "seed"}); err != nil {
			t.Fatalf("seed append: %v", err)
		}
		if _, err := led.EventsFor(ctx, "u1"); err != nil {
			t.Fatalf("warm cache: %v", err)
		}

		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := led.Append(ctx, EventMemoryRecorded, MemoryRecorded{UserID: "u1", MemoryType: "insight", Content: "racer"})
				if err != nil {
					t.Errorf("concurrent append: %v", err)
				}
			}()
		}
		wg.Wait()

		fromLedger, err := led.EventsFor(ctx, "u1")
		if err != nil {
			t.Fatalf("ledger read: %v", err)
		}
		fromStore, err := store.EventsFor(ctx, "u1", 0)
		if err != nil {
			t.Fatalf("store read: %v", err)
		}
		if len(fromLedger) != len(fromStore) {
			t.Fatalf("round %d: cached history lost events: ledger has %d, store has %d",
				round, len(fromLedger), len(fromStore))
		}
		for i, ev := range fromLedger {
			if ev.Version != i+1 {
				t.Fatalf("round %d: cached history gapped at position %d: version %d", round, i, ev.Version)
			}
		}
	}
}

func TestAppend_FrozenClockStampsTimestamp(t *testing.T) {
	led, _, _ := newTestLedger(t)
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	led.SetClock(func() time.Time { return frozen })

	ev, err := led.Append(context.Background(), EventMemoryRecorded, MemoryRecorded{UserID: "u1", MemoryType: "vision", Content: "x"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if !ev.Timestamp.Equal(frozen) {
		t.Fatalf("timestamp = %v, want %v", ev.Timestamp, frozen)
	}
}
