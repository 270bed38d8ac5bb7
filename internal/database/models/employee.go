package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Employee is shared between the partners: either partner can see and
// edit employees created by the other.
type Employee struct {
	Base
	UserID    uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Name      string          `gorm:"not null" json:"name"`
	Phone     string          `json:"phone"`
	Position  string          `json:"position"`
	DailyRate decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"daily_rate"`
	Notes     string          `json:"notes"`
	IsActive  bool            `gorm:"default:true" json:"is_active"`

	Expenses []Expense `gorm:"foreignKey:EmployeeID" json:"-"`
}

func (Employee) TableName() string {
	return "employees"
}
