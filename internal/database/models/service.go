package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is a catalog entry shared between the partners.
type Service struct {
	Base
	UserID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Name        string          `gorm:"not null" json:"name"`
	Description string          `json:"description"`
	Unit        string          `gorm:"default:'servicio'" json:"unit"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"unit_price"`
	IsActive    bool            `gorm:"default:true" json:"is_active"`
}

func (Service) TableName() string {
	return "services"
}
