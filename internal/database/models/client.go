package models

import "github.com/google/uuid"

// Client records who created it, but clients are visible to every
// authenticated user regardless of owner.
type Client struct {
	Base
	UserID   uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	Name     string    `gorm:"not null" json:"name"`
	Phone    string    `json:"phone"`
	Email    string    `json:"email"`
	Address  string    `json:"address"`
	Notes    string    `json:"notes"`
	IsActive bool      `gorm:"default:true" json:"is_active"`

	Quotes []Quote `gorm:"foreignKey:ClientID" json:"-"`
}

func (Client) TableName() string {
	return "clients"
}
