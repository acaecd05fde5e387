package ledger

import (
	"context"
	"regexp"
	"testing"
	"time"
)

var txHashPattern = regexp.MustCompile(`^0x[0-9a-f]{64}$`)

func TestMemoryLedger_AppendReceipt(t *testing.T) {
	l := NewMemoryLedger(0)

	before := time.Now().UnixMilli()
	rc, err := l.Append(context.Background(), Event{Type: EventSessionRecord, PatientID: 1, SessionID: 7, Score: 72})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	after := time.Now().UnixMilli()

	if !txHashPattern.MatchString(rc.TxHash) {
		t.Errorf("TxHash = %q, want 0x + 64 hex chars", rc.TxHash)
	}
	if rc.Timestamp < before || rc.Timestamp > after {
		t.Errorf("Timestamp = %d, want within [%d,%d]", rc.Timestamp, before, after)
	}
}

func TestMemoryLedger_HistoryGrowsInOrder(t *testing.T) {
	l := NewMemoryLedger(0)
	ctx := context.Background()

	if _, err := l.Append(ctx, Event{Type: EventSessionRecord, PatientID: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append(ctx, Event{Type: EventFlagRecord, PatientID: 1, SessionID: 2, Flagged: true}); err != nil {
		t.Fatal(err)
	}

	entries, err := l.History(ctx)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("History() returned %d entries, want 2", len(entries))
	}
	if entries[0].Seq != 1 || entries[1].Seq != 2 {
		t.Errorf("sequence numbers = %d,%d, want 1,2", entries[0].Seq, entries[1].Seq)
	}
	if entries[0].Event.Type != EventSessionRecord || entries[1].Event.Type != EventFlagRecord {
		t.Errorf("entry types out of order: %s, %s", entries[0].Event.Type, entries[1].Event.Type)
	}
	if entries[0].Receipt.TxHash == entries[1].Receipt.TxHash {
		t.Error("two appends produced the same transaction hash")
	}
}

func TestMemoryLedger_AppendHonorsCancellation(t *testing.T) {
	l := NewMemoryLedger(5 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Append(ctx, Event{Type: EventSessionRecord, PatientID: 1})
	if err != context.Canceled {
		t.Fatalf("Append() with cancelled ctx error = %v, want context.Canceled", err)
	}

	entries, _ := l.History(context.Background())
	if len(entries) != 0 {
		t.Errorf("cancelled append left %d entries, want 0", len(entries))
	}
}

func TestFileLedger_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	l, err := OpenFileLedger(dir, 0)
	if err != nil {
		t.Fatalf("OpenFileLedger() error = %v", err)
	}
	if _, err := l.Append(ctx, Event{Type: EventFlagRecord, PatientID: 3, SessionID: 9, Flagged: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Append(ctx, Event{Type: EventSessionRecord, PatientID: 3, SessionID: 10, Score: 64}); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenFileLedger(dir, 0)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	entries, err := reopened.History(ctx)
	if err != nil {
		t.Fatalf("History() after reopen error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("History() after reopen returned %d entries, want 2", len(entries))
	}
	if entries[0].Event.Type != EventFlagRecord {
		t.Errorf("first entry type = %s, want flag record retained", entries[0].Event.Type)
	}

	// Sequence counter must continue, not restart.
	rc, err := reopened.Append(ctx, Event{Type: EventSessionRecord, PatientID: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !txHashPattern.MatchString(rc.TxHash) {
		t.Errorf("TxHash = %q, want 0x + 64 hex chars", rc.TxHash)
	}
	entries, _ = reopened.History(ctx)
	if entries[len(entries)-1].Seq != 3 {
		t.Errorf("seq after reopen = %d, want 3", entries[len(entries)-1].Seq)
	}
}
