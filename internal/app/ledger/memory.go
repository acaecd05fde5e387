package ledger

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// MemoryLedger keeps the chain in process memory. Entries do not survive a
// restart; use the LevelDB adapter where audit events must be retained.
type MemoryLedger struct {
	latency time.Duration

	mu      sync.Mutex
	entries []Entry
	seq     uint64
}

// NewMemoryLedger returns an empty in-memory chain with the given
// simulated consensus latency.
func NewMemoryLedger(latency time.Duration) *MemoryLedger {
	return &MemoryLedger{latency: latency}
}

func (l *MemoryLedger) Append(ctx context.Context, ev Event) (Receipt, error) {
	if err := wait(ctx, l.latency); err != nil {
		return Receipt{}, err
	}

	rc := Receipt{
		TxHash:    newTxHash(),
		Timestamp: time.Now().UnixMilli(),
	}

	l.mu.Lock()
	l.seq++
	l.entries = append(l.entries, Entry{Seq: l.seq, Event: ev, Receipt: rc})
	l.mu.Unlock()

	log.WithFields(log.Fields{
		"type":    ev.Type,
		"patient": ev.PatientID,
		"tx":      rc.TxHash,
	}).Info("block appended")

	return rc, nil
}

func (l *MemoryLedger) History(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out, nil
}
