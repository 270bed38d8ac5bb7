package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jdramirez/servipro/internal/database/models"
	"github.com/jdramirez/servipro/internal/identity"
	"github.com/jdramirez/servipro/internal/tasks"
	"gorm.io/gorm"
)

// Marker prefixes descriptions of prominent mutations so they stand out in
// a log listing.
const Marker = "⚠️"

// Entry is everything a handler knows about a mutation worth auditing.
type Entry struct {
	ActorAuthID string
	Action      models.AuditAction
	EntityType  string
	EntityID    string
	Description string
	OldValue    interface{}
	NewValue    interface{}
	IPAddress   string
	UserAgent   string
}

// Recorder appends audit entries on a best-effort basis. Record never
// returns an error and never panics into the caller: audit is observability,
// not a transaction participant.
type Recorder struct {
	db     *gorm.DB
	mapper *identity.Mapper
	client *asynq.Client // optional, shifts the write off the request path
	logger *slog.Logger
}

func NewRecorder(db *gorm.DB, mapper *identity.Mapper, client *asynq.Client, logger *slog.Logger) *Recorder {
	return &Recorder{db: db, mapper: mapper, client: client, logger: logger}
}

// Record resolves the actor, serializes the snapshots, and appends one audit
// row. Callers invoke it after the mutation has committed; whatever happens
// in here must not change the outcome the caller reports.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("audit recorder panic", "panic", p, "entity_type", e.EntityType)
		}
	}()

	userID, err := r.mapper.ResolveStorageUserID(ctx, e.ActorAuthID)
	if err != nil {
		r.logger.Warn("audit entry dropped, actor could not be resolved",
			"auth_id", e.ActorAuthID,
			"description", e.Description,
			"error", err,
		)
		return
	}

	row := models.AuditLog{
		UserID:      userID,
		Action:      e.Action,
		EntityType:  e.EntityType,
		EntityID:    e.EntityID,
		Description: e.Description,
		OldValue:    marshalSnapshot(e.OldValue),
		NewValue:    marshalSnapshot(e.NewValue),
		IPAddress:   e.IPAddress,
		UserAgent:   e.UserAgent,
	}

	if r.db == nil {
		// No store: the operational log is the audit trail.
		r.logger.Info("audit",
			"action", row.Action,
			"entity_type", row.EntityType,
			"entity_id", row.EntityID,
			"description", row.Description,
			"actor", e.ActorAuthID,
		)
		return
	}

	if r.client != nil {
		if task, err := tasks.NewAuditWriteTask(row); err == nil {
			if _, err := r.client.EnqueueContext(ctx, task, asynq.Queue("low")); err == nil {
				return
			}
			r.logger.Warn("audit enqueue failed, writing directly", "error", err)
		}
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		r.logger.Error("failed to persist audit entry",
			"error", err,
			"entity_type", row.EntityType,
			"description", row.Description,
		)
	}
}

func marshalSnapshot(v interface{}) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}
