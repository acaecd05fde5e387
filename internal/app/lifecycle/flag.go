package lifecycle

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/parthjod/neuroblock/internal/app/ledger"
)

// Flagger toggles the review flag on a session. The flag event is
// audited first; the stored flag changes only if the ledger accepted it.
type Flagger struct {
	store Datastore
	chain ledger.Ledger
}

func NewFlagger(store Datastore, chain ledger.Ledger) *Flagger {
	return &Flagger{store: store, chain: chain}
}

// SetFlag audits and applies the desired flag value. On audit failure
// the stored flag is untouched. Setting the same value twice appends a
// second audit entry but changes nothing in the store.
func (f *Flagger) SetFlag(ctx context.Context, patientID, sessionID uint, flag bool) error {
	if _, err := f.chain.Append(ctx, ledger.Event{
		Type:      ledger.EventFlagRecord,
		PatientID: patientID,
		SessionID: sessionID,
		Flagged:   flag,
	}); err != nil {
		return fmt.Errorf("audit flag change: %w", err)
	}

	if err := f.store.UpdateSessionFlag(ctx, sessionID, flag); err != nil {
		return fmt.Errorf("update session %d flag: %w", sessionID, err)
	}

	log.WithFields(log.Fields{"session": sessionID, "flagged": flag}).Info("session flag updated")
	return nil
}
