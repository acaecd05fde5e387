package ds

type Patient struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	UserID     uint   `gorm:"not null;uniqueIndex" json:"user_id"`
	Name       string `gorm:"type:varchar(100);not null" json:"name"`
	Age        int    `gorm:"type:integer" json:"age"`
	Condition  string `gorm:"type:varchar(200)" json:"condition"`
	AvatarURL  string `gorm:"type:varchar(200)" json:"avatar_url"`
	Visibility bool   `gorm:"type:boolean;default:true" json:"visibility"`

	User     User      `gorm:"foreignKey:UserID" json:"user"`
	Sessions []Session `gorm:"foreignKey:PatientID" json:"sessions,omitempty"`
}
