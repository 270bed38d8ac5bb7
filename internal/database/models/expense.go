package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Expense payment methods
const (
	MethodCash     = "efectivo"
	MethodTransfer = "transferencia"
	MethodCard     = "tarjeta"
)

// Expense is shared between the partners.
type Expense struct {
	Base
	UserID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Description string          `gorm:"not null" json:"description"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Category    string          `gorm:"not null" json:"category"`
	Method      string          `gorm:"default:'efectivo'" json:"method"`
	ExpenseDate time.Time       `gorm:"index;not null" json:"expense_date"`
	EmployeeID  *uuid.UUID      `gorm:"type:uuid;index" json:"employee_id,omitempty"`

	Employee *Employee `gorm:"foreignKey:EmployeeID" json:"employee,omitempty"`
}

func (Expense) TableName() string {
	return "expenses"
}
