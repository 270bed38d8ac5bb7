package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jdramirez/servipro/internal/database/models"
	"gorm.io/gorm"
)

type Handler struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewHandler(db *gorm.DB, logger *slog.Logger) *Handler {
	return &Handler{db: db, logger: logger}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeAuditWrite, h.HandleAuditWrite)
	mux.HandleFunc(TypeAuditPrune, h.HandleAuditPrune)
}

func (h *Handler) HandleAuditWrite(ctx context.Context, t *asynq.Task) error {
	var payload AuditWritePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := h.db.WithContext(ctx).Create(&payload.Entry).Error; err != nil {
		// Returning the error lets asynq retry; the original mutation is
		// long committed either way.
		return fmt.Errorf("persist audit entry: %w", err)
	}

	h.logger.Debug("audit entry persisted",
		"action", payload.Entry.Action,
		"entity_type", payload.Entry.EntityType,
		"entity_id", payload.Entry.EntityID,
	)
	return nil
}

func (h *Handler) HandleAuditPrune(ctx context.Context, t *asynq.Task) error {
	var payload AuditPrunePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	if payload.RetentionDays <= 0 {
		return nil
	}

	cutoff := time.Now().AddDate(0, 0, -payload.RetentionDays)
	result := h.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.AuditLog{})
	if result.Error != nil {
		return fmt.Errorf("prune audit entries: %w", result.Error)
	}

	h.logger.Info("pruned audit entries", "cutoff", cutoff.Format(time.RFC3339), "removed", result.RowsAffected)
	return nil
}
