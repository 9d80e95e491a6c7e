package memory

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRemember_StoresInUserAndSessionBuckets(t *testing.T) {
	idx := NewIndex(zap.NewNop())

	entry, err := idx.Remember("a quiet morning by the river", TypeJournal,
		Metadata{SessionID: "s1", Element: "water"}, "u1")
	if err != nil {
		t.Fatalf("remember: %v", err)
	}
	if entry.ID == "" || entry.Timestamp.IsZero() {
		t.Fatalf("entry not stamped: %+v", entry)
	}

	res, err := idx.Recall(RecallContext{Query: "river", UserID: "u1", SessionID: "s1"})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(res.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(res.Entries))
	}
	if res.Entries[0].ID != entry.ID {
		t.Fatalf("recalled wrong entry")
	}
}

func TestRemember_RejectsBadInput(t *testing.T) {
	idx := NewIndex(zap.NewNop())

	if _, err := idx.Remember("", TypeJournal, Metadata{}, "u1"); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("empty content: got %v", err)
	}
	if _, err := idx.Remember("x", EntryType("mood"), Metadata{}, "u1"); !errors.Is(err, ErrUnknownEntryType) {
		t.Fatalf("bad type: got %v", err)
	}
	if _, err := idx.Remember("x", TypeJournal, Metadata{}, " "); !errors.Is(err, ErrEmptyUserID) {
		t.Fatalf("blank user: got %v", err)
	}
}

func TestRecall_NeverCrossesUsers(t *testing.T) {
	idx := NewIndex(zap.NewNop())

	if _, err := idx.Remember("the secret garden", TypeJournal, Metadata{}, "u1"); err != nil {
		t.Fatalf("remember u1: %v", err)
	}
	if _, err := idx.Remember("the secret ledger", TypeJournal, Metadata{}, "u2"); err != nil {
		t.Fatalf("remember u2: %v", err)
	}

	res, err := idx.Recall(RecallContext{Query: "secret", UserID: "u1"})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	for _, e := range res.Entries {
		if e.UserID != "u1" {
			t.Fatalf("recall for u1 returned entry owned by %s", e.UserID)
		}
	}
}

func TestClearSession_KeepsUserHistory(t *testing.T) {
	idx := NewIndex(zap.NewNop())

	if _, err := idx.Remember("session note", TypeConversation, Metadata{SessionID: "s1"}, "u1"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if _, err := idx.Remember("long term note", TypeJournal, Metadata{}, "u1"); err != nil {
		t.Fatalf("remember: %v", err)
	}

	idx.ClearSession("u1", "s1")

	// The privacy boundary: the conversation bucket is gone, long-term
	// history is not.
	res, err := idx.Recall(RecallContext{Query: "note", UserID: "u1", SessionID: "s1"})
	if err != nil {
		t.Fatalf("recall: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("user history must survive a session clear, got %d entries", len(res.Entries))
	}

	st := idx.Stats("u1")
	if st.Total != 2 {
		t.Fatalf("stats total = %d, want 2", st.Total)
	}
}

func TestPatterns_CapAndNoReorder(t *testing.T) {
	idx := NewIndex(zap.NewNop())

	if _, err := idx.Remember("the fire inside", TypeInsight, Metadata{}, "u1"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if _, err := idx.Remember("fire again, nothing new", TypeInsight, Metadata{}, "u1"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	st := idx.Stats("u1")
	if len(st.Patterns) != 1 || st.Patterns[0] != "fire" {
		t.Fatalf("duplicate pattern re-inserted: %v", st.Patterns)
	}

	// Saturate the list well past the cap.
	texts := []string{
		"water flows", "the earth grounds me", "wind in the air",
		"a real transformation", "sudden insight arrived",
	}
	for _, txt := range texts {
		if _, err := idx.Remember(txt, TypeJournal, Metadata{}, "u1"); err != nil {
			t.Fatalf("remember %q: %v", txt, err)
		}
	}
	st = idx.Stats("u1")
	if len(st.Patterns) > 10 {
		t.Fatalf("pattern list exceeded cap: %d", len(st.Patterns))
	}
	if st.Patterns[0] != "fire" {
		t.Fatalf("existing labels must not reorder: %v", st.Patterns)
	}
}

func TestStats_CountsAndMostRecent(t *testing.T) {
	idx := NewIndex(zap.NewNop())
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	step := 0
	idx.SetClock(func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	})

	for i := 0; i < 3; i++ {
		if _, err := idx.Remember(fmt.Sprintf("note %d", i), TypeJournal, Metadata{}, "u1"); err != nil {
			t.Fatalf("remember: %v", err)
		}
	}
	if _, err := idx.Remember("a vivid dream", TypeDream, Metadata{}, "u1"); err != nil {
		t.Fatalf("remember: %v", err)
	}

	st := idx.Stats("u1")
	if st.Total != 4 {
		t.Fatalf("total = %d, want 4", st.Total)
	}
	if st.CountsByType[TypeJournal] != 3 || st.CountsByType[TypeDream] != 1 {
		t.Fatalf("counts wrong: %v", st.CountsByType)
	}
	if !st.MostRecent.Equal(base.Add(4 * time.Minute)) {
		t.Fatalf("most recent = %v", st.MostRecent)
	}
}

func TestPatternHook_FiresOncePerNewLabel(t *testing.T) {
	idx := NewIndex(zap.NewNop())
	var got []string
	idx.SetPatternHook(func(userID, label string) {
		got = append(got, userID+"/"+label)
	})

	if _, err := idx.Remember("fire and water mixing", TypeInsight, Metadata{}, "u1"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 hook calls, got %v", got)
	}
	if _, err := idx.Remember("more fire", TypeInsight, Metadata{}, "u1"); err != nil {
		t.Fatalf("remember: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("hook fired again for an existing label: %v", got)
	}
}
