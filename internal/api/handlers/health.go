package handlers

import (
	"net/http"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthHandler struct {
	db  *gorm.DB
	rdb *redis.Client
}

func NewHealthHandler(db *gorm.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

type healthStatus struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Queue    string `json:"queue"`
}

// Health reports component status. The service stays "ok" without redis,
// and "degraded" without a database, matching how the API behaves.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{Status: "ok", Database: "ok", Queue: "ok"}

	switch {
	case h.db == nil:
		status.Database = "unconfigured"
		status.Status = "degraded"
	default:
		sqlDB, err := h.db.DB()
		if err != nil || sqlDB.PingContext(r.Context()) != nil {
			status.Database = "down"
			status.Status = "degraded"
		}
	}

	if h.rdb == nil {
		status.Queue = "unconfigured"
	} else if err := h.rdb.Ping(r.Context()).Err(); err != nil {
		status.Queue = "down"
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	// Simple readiness check
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
