package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parthjod/neuroblock/internal/app/ds"
	"github.com/parthjod/neuroblock/internal/app/ledger"
)

func storeWithSession(t *testing.T, flagged bool) (*fakeStore, uint) {
	t.Helper()
	store := newFakeStore(1)
	session := &ds.Session{PatientID: 1, CreatedAt: time.Now(), RecoveryTrendScore: 70, Status: ds.StatusStable, IsFlagged: flagged}
	if err := store.CreateSession(context.Background(), session); err != nil {
		t.Fatal(err)
	}
	return store, session.ID
}

func flagOf(t *testing.T, store *fakeStore, sessionID uint) bool {
	t.Helper()
	sessions, err := store.ListPatientSessions(context.Background(), 1)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range sessions {
		if s.ID == sessionID {
			return s.IsFlagged
		}
	}
	t.Fatalf("session %d not found", sessionID)
	return false
}

func TestSetFlag_AuditThenMutate(t *testing.T) {
	store, sessionID := storeWithSession(t, false)
	chain := ledger.NewMemoryLedger(0)
	f := NewFlagger(store, chain)

	if err := f.SetFlag(context.Background(), 1, sessionID, true); err != nil {
		t.Fatalf("SetFlag() error = %v", err)
	}

	if !flagOf(t, store, sessionID) {
		t.Error("session not flagged after successful audit")
	}
	entries, _ := chain.History(context.Background())
	if len(entries) != 1 {
		t.Fatalf("ledger holds %d entries, want 1", len(entries))
	}
	ev := entries[0].Event
	if ev.Type != ledger.EventFlagRecord || ev.SessionID != sessionID || !ev.Flagged {
		t.Errorf("flag event = %+v", ev)
	}
}

func TestSetFlag_AuditFailureLeavesFlagUnchanged(t *testing.T) {
	store, sessionID := storeWithSession(t, false)
	f := NewFlagger(store, failingLedger{})

	err := f.SetFlag(context.Background(), 1, sessionID, true)
	if !errors.Is(err, ledger.ErrWriteFailed) {
		t.Fatalf("SetFlag() error = %v, want ErrWriteFailed", err)
	}
	if flagOf(t, store, sessionID) {
		t.Error("flag changed even though the audit write failed")
	}
}

func TestSetFlag_ValueIdempotent(t *testing.T) {
	store, sessionID := storeWithSession(t, false)
	chain := ledger.NewMemoryLedger(0)
	f := NewFlagger(store, chain)
	ctx := context.Background()

	if err := f.SetFlag(ctx, 1, sessionID, true); err != nil {
		t.Fatal(err)
	}
	if err := f.SetFlag(ctx, 1, sessionID, true); err != nil {
		t.Fatal(err)
	}

	if !flagOf(t, store, sessionID) {
		t.Error("flag not set")
	}
	// The audit log grows on each call; the stored value does not change.
	entries, _ := chain.History(ctx)
	if len(entries) != 2 {
		t.Errorf("ledger holds %d entries, want 2", len(entries))
	}
}

func TestSetFlag_Unflag(t *testing.T) {
	store, sessionID := storeWithSession(t, true)
	f := NewFlagger(store, ledger.NewMemoryLedger(0))

	if err := f.SetFlag(context.Background(), 1, sessionID, false); err != nil {
		t.Fatal(err)
	}
	if flagOf(t, store, sessionID) {
		t.Error("session still flagged")
	}
}
