package models

import "github.com/google/uuid"

// CompanySettings holds branding and contact data. One row per owning user;
// the uniqueness constraint is what resolves the first-access bootstrap race.
type CompanySettings struct {
	Base
	UserID          uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	CompanyName     string    `gorm:"default:'ServiPro'" json:"company_name"`
	Phone           string    `json:"phone"`
	Email           string    `json:"email"`
	Address         string    `json:"address"`
	LogoURL         string    `json:"logo_url"`
	SplitPercentage int       `gorm:"default:50" json:"split_percentage"`
}

func (CompanySettings) TableName() string {
	return "company_settings"
}
