package ds

const (
	ExerciseHandOpenClose = "Hand Open/Close"
	ExerciseWristFlexion  = "Wrist Flexion"
	ExerciseFingerPinch   = "Finger Pinch"
)

// ExerciseMetric holds the measured values for one movement task.
// All three measures are percentages in [0,100]; Stability is stored with
// higher = more stable (the variance framing only appears at the AI
// service boundary, see aiclient).
type ExerciseMetric struct {
	ID            uint   `gorm:"primaryKey" json:"-"`
	SessionID     uint   `gorm:"not null;index" json:"-"`
	Name          string `gorm:"type:varchar(50);not null" json:"name"`
	RangeOfMotion int    `gorm:"not null;check:range_of_motion BETWEEN 0 AND 100" json:"rangeOfMotion"`
	Stability     int    `gorm:"not null;check:stability BETWEEN 0 AND 100" json:"stability"`
	Accuracy      int    `gorm:"not null;check:accuracy BETWEEN 0 AND 100" json:"accuracy"`
}

// Composite is the per-exercise score fed into the trend blend.
func (m ExerciseMetric) Composite() float64 {
	return float64(m.RangeOfMotion+m.Stability+m.Accuracy) / 3
}
