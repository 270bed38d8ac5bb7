package models

type User struct {
	Base
	Username           string `gorm:"uniqueIndex;not null" json:"username"` // lowercase-normalized
	PasswordHash       string `gorm:"not null" json:"-"`
	FullName           string `json:"full_name"`
	Phone              string `json:"phone"`
	MustChangePassword bool   `gorm:"default:false" json:"must_change_password"`
	IsActive           bool   `gorm:"default:true" json:"is_active"`
}

func (User) TableName() string {
	return "users"
}
