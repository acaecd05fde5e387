package ds

import "time"

const (
	StatusImprovement = "Improvement"
	StatusStable      = "Stable"
	StatusDecline     = "Decline"
)

// Session is one rehabilitation attempt. Everything except IsFlagged is
// write-once: the row is created in a single transaction after the trend
// score and audit receipt are known.
type Session struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	PatientID          uint      `gorm:"not null;index" json:"patient_id"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
	RecoveryTrendScore int       `gorm:"not null;check:recovery_trend_score BETWEEN 0 AND 100" json:"recovery_trend_score"`
	Status             string    `gorm:"type:varchar(20);not null" json:"status"`
	IsFlagged          bool      `gorm:"type:boolean;default:false" json:"is_flagged"`
	TxHash             *string   `gorm:"type:varchar(66)" json:"-"`
	TxTimestamp        *int64    `json:"-"`

	Patient   Patient          `gorm:"foreignKey:PatientID" json:"-"`
	Exercises []ExerciseMetric `gorm:"foreignKey:SessionID" json:"exercises"`
	Joints    []JointScore     `gorm:"foreignKey:SessionID" json:"rts"`
}

// AuditRecord is the ledger receipt attached to a persisted session.
type AuditRecord struct {
	TransactionHash string `json:"transactionHash"`
	Timestamp       int64  `json:"timestamp"`
}

// Audit returns the attached receipt, or nil if the session predates the
// ledger write (never the case for rows created by the coordinator).
func (s *Session) Audit() *AuditRecord {
	if s.TxHash == nil || s.TxTimestamp == nil {
		return nil
	}
	return &AuditRecord{TransactionHash: *s.TxHash, Timestamp: *s.TxTimestamp}
}
