package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditAction identifies the kind of mutation an audit entry records.
type AuditAction string

const (
	ActionCreate         AuditAction = "crear"
	ActionUpdate         AuditAction = "actualizar"
	ActionDelete         AuditAction = "eliminar"
	ActionLogin          AuditAction = "iniciar_sesion"
	ActionPasswordChange AuditAction = "cambiar_contrasena"
)

// Audited entity types
const (
	EntityClient      = "cliente"
	EntityEmployee    = "empleado"
	EntityService     = "servicio"
	EntityExpense     = "gasto"
	EntityCashClosing = "cierre_caja"
	EntityQuote       = "presupuesto"
	EntitySettings    = "configuracion"
	EntityUser        = "usuario"
)

// AuditLog is append-only: the application creates entries and prunes old
// ones in bulk, but never updates or deletes an individual row.
type AuditLog struct {
	ID          uuid.UUID   `gorm:"type:uuid;primary_key" json:"id"`
	UserID      uuid.UUID   `gorm:"type:uuid;index" json:"user_id"`
	Action      AuditAction `gorm:"not null;index" json:"action"`
	EntityType  string      `gorm:"not null;index" json:"entity_type"`
	EntityID    string      `json:"entity_id"`
	Description string      `gorm:"not null" json:"description"`
	OldValue    string      `json:"old_value,omitempty"`
	NewValue    string      `json:"new_value,omitempty"`
	IPAddress   string      `json:"ip_address,omitempty"`
	UserAgent   string      `json:"user_agent,omitempty"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
