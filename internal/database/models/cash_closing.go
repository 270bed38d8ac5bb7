package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashClosing is the period settlement between the partners. Closings are
// created and deleted but never edited.
type CashClosing struct {
	Base
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	ClosingDate     time.Time       `gorm:"index;not null" json:"closing_date"`
	TotalIncome     decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"total_income"`
	TotalExpenses   decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"total_expenses"`
	NetAmount       decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"net_amount"`
	SplitPercentage int             `gorm:"default:50" json:"split_percentage"`
	Notes           string          `json:"notes"`
}

func (CashClosing) TableName() string {
	return "cash_closings"
}
