package ds

// JointScore is one entry of the per-joint breakdown persisted with a
// session (the "rts" array of the session record).
type JointScore struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	SessionID uint   `gorm:"not null;index" json:"-"`
	Joint     string `gorm:"type:varchar(30);not null" json:"joint"`
	Score     int    `gorm:"not null" json:"score"`
}
