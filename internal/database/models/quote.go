package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Quote statuses
const (
	QuoteStatusDraft    = "borrador"
	QuoteStatusSent     = "enviado"
	QuoteStatusApproved = "aprobado"
	QuoteStatusRejected = "rechazado"
)

// Quote is visible to every authenticated user, like clients.
type Quote struct {
	Base
	UserID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	ClientID  uuid.UUID       `gorm:"type:uuid;index;not null" json:"client_id"`
	Number    string          `gorm:"uniqueIndex;not null" json:"number"` // ORC-<year>-<seq>
	QuoteDate time.Time       `gorm:"not null" json:"quote_date"`
	Status    string          `gorm:"default:'borrador'" json:"status"`
	Notes     string          `json:"notes"`
	Subtotal  decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"subtotal"`
	TaxRate   decimal.Decimal `gorm:"type:decimal(5,2);default:0" json:"tax_rate"`
	TaxAmount decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"tax_amount"`
	Total     decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"total"`

	Client        *Client             `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	ServiceItems  []QuoteServiceItem  `gorm:"foreignKey:QuoteID" json:"service_items"`
	MaterialItems []QuoteMaterialItem `gorm:"foreignKey:QuoteID" json:"material_items"`
}

func (Quote) TableName() string {
	return "quotes"
}

type QuoteServiceItem struct {
	Base
	QuoteID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"quote_id"`
	ServiceID   *uuid.UUID      `gorm:"type:uuid" json:"service_id,omitempty"`
	Description string          `gorm:"not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(10,2);default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"unit_price"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"total"`
}

func (QuoteServiceItem) TableName() string {
	return "quote_service_items"
}

type QuoteMaterialItem struct {
	Base
	QuoteID     uuid.UUID       `gorm:"type:uuid;index;not null" json:"quote_id"`
	Description string          `gorm:"not null" json:"description"`
	Quantity    decimal.Decimal `gorm:"type:decimal(10,2);default:1" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"unit_price"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"total"`
}

func (QuoteMaterialItem) TableName() string {
	return "quote_material_items"
}
