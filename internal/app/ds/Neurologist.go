package ds

type Neurologist struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"not null;uniqueIndex" json:"user_id"`

	User User `gorm:"foreignKey:UserID" json:"user"`
}

// PatientNeurologist links a patient to a neurologist authorized to read
// their sessions.
type PatientNeurologist struct {
	ID            uint `gorm:"primaryKey" json:"id"`
	PatientID     uint `gorm:"not null;uniqueIndex:idx_patient_neurologist" json:"patient_id"`
	NeurologistID uint `gorm:"not null;uniqueIndex:idx_patient_neurologist" json:"neurologist_id"`

	Patient     Patient     `gorm:"foreignKey:PatientID" json:"patient"`
	Neurologist Neurologist `gorm:"foreignKey:NeurologistID" json:"neurologist"`
}
