package ds

const (
	RolePatient     = "patient"
	RoleNeurologist = "neurologist"
)

type User struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Login    string `gorm:"type:varchar(100);unique;not null" json:"login"`
	Password string `gorm:"column:password_hash;type:varchar(255)" json:"-"`
	Role     string `gorm:"type:varchar(20);not null;default:patient" json:"role"`
}

func (u *User) IsNeurologist() bool {
	return u.Role == RoleNeurologist
}
