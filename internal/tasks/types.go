package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
	"github.com/jdramirez/servipro/internal/database/models"
)

// Task type names
const (
	TypeAuditWrite = "audit:write"
	TypeAuditPrune = "audit:prune"
)

// AuditWritePayload carries a fully resolved audit row to the worker. The
// actor identity is resolved before enqueueing so the worker only persists.
type AuditWritePayload struct {
	Entry models.AuditLog `json:"entry"`
}

func NewAuditWriteTask(entry models.AuditLog) (*asynq.Task, error) {
	data, err := json.Marshal(AuditWritePayload{Entry: entry})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAuditWrite, data), nil
}

// AuditPrunePayload bounds the audit table by age.
type AuditPrunePayload struct {
	RetentionDays int `json:"retention_days"`
}

func NewAuditPruneTask(retentionDays int) (*asynq.Task, error) {
	data, err := json.Marshal(AuditPrunePayload{RetentionDays: retentionDays})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAuditPrune, data), nil
}
