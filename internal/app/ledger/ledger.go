// Package ledger simulates the append-only audit chain that receipts
// rehabilitation sessions and flag changes.
//
// The real system would talk to a smart contract; here the chain is a
// local append-only log behind the Ledger interface so storage can be
// swapped (in-memory for tests, LevelDB for durable runs) without the
// coordinator noticing.
package ledger

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// Event types accepted by the ledger.
const (
	EventSessionRecord = "SESSION_RECORD"
	EventFlagRecord    = "FLAG_RECORD"
)

// ErrWriteFailed is returned when the backing ledger rejects an append.
// The simulated adapters never produce it on their own, but every caller
// must handle it: a real chain can reject or time out.
var ErrWriteFailed = errors.New("ledger write failed")

// Event is one block appended to the audit chain.
type Event struct {
	Type      string `json:"type"`
	PatientID uint   `json:"patient_id"`
	// Attempt identifies the session attempt for SESSION_RECORD events,
	// which are audited before the store assigns a session ID.
	Attempt   string `json:"attempt_id,omitempty"`
	SessionID uint   `json:"session_id,omitempty"`
	// Score is the recovery trend score for SESSION_RECORD events.
	Score int `json:"recovery_trend_score,omitempty"`
	// Flagged carries the desired flag value for FLAG_RECORD events.
	Flagged bool `json:"is_flagged,omitempty"`
}

// Receipt proves an event was accepted at a given time.
type Receipt struct {
	// TxHash is "0x" followed by 64 hex characters (256 bits).
	TxHash string `json:"transactionHash"`
	// Timestamp is wall-clock epoch milliseconds.
	Timestamp int64 `json:"timestamp"`
}

// Entry is a recorded event with its receipt, as returned by History.
type Entry struct {
	Seq     uint64  `json:"seq"`
	Event   Event   `json:"event"`
	Receipt Receipt `json:"receipt"`
}

// Ledger is the append-only audit chain.
//
// Append models network/consensus delay: it blocks for the configured
// latency and honors ctx cancellation while waiting. Appends from one
// writer land in FIFO order; no cross-writer ordering is guaranteed.
type Ledger interface {
	Append(ctx context.Context, ev Event) (Receipt, error)
	History(ctx context.Context) ([]Entry, error)
}

// newTxHash generates a pseudo-random 256-bit transaction identifier.
func newTxHash() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return "0x" + hex.EncodeToString(b)
}

// wait blocks for the simulated consensus latency, or returns early with
// ctx.Err() on cancellation.
func wait(ctx context.Context, latency time.Duration) error {
	if latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
