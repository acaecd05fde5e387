package repository

import (
	"context"

	"github.com/parthjod/neuroblock/internal/app/ds"
)

// CreateSession writes the session with its exercises and joint scores
// in one transaction; gorm cascades the associations, so nothing is left
// behind on error.
func (r *Repository) CreateSession(ctx context.Context, session *ds.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *Repository) ListPatientSessions(ctx context.Context, patientID uint) ([]ds.Session, error) {
	var sessions []ds.Session
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("created_at DESC").
		Preload("Exercises").
		Preload("Joints").
		Find(&sessions).Error
	return sessions, err
}

func (r *Repository) GetSessionByID(id uint) (*ds.Session, error) {
	var session ds.Session
	err := r.db.Preload("Exercises").Preload("Joints").Where("id = ?", id).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *Repository) UpdateSessionFlag(ctx context.Context, sessionID uint, flag bool) error {
	return r.db.WithContext(ctx).Model(&ds.Session{}).
		Where("id = ?", sessionID).
		Update("is_flagged", flag).Error
}

func (r *Repository) UpdateSessionAudit(ctx context.Context, sessionID uint, rec ds.AuditRecord) error {
	return r.db.WithContext(ctx).Model(&ds.Session{}).
		Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"tx_hash":      rec.TransactionHash,
			"tx_timestamp": rec.Timestamp,
		}).Error
}
