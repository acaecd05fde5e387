package lifecycle

import (
	"context"

	"github.com/parthjod/neuroblock/internal/app/ds"
)

// Datastore is the narrow data-access surface the coordinator and flag
// workflow depend on. The gorm repository implements it in production;
// tests inject an in-memory fake.
type Datastore interface {
	FindPatient(ctx context.Context, id uint) (*ds.Patient, error)

	// ListPatientSessions returns the patient's sessions most-recent-first.
	ListPatientSessions(ctx context.Context, patientID uint) ([]ds.Session, error)

	// CreateSession persists a finalized session together with its
	// exercises, joint scores and audit receipt in one transaction.
	// Nothing is written on error.
	CreateSession(ctx context.Context, session *ds.Session) error

	UpdateSessionFlag(ctx context.Context, sessionID uint, flag bool) error

	UpdateSessionAudit(ctx context.Context, sessionID uint, rec ds.AuditRecord) error
}
