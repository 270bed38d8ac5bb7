package handlers

import (
	"net/http"
	"strconv"

	"github.com/jdramirez/servipro/internal/api/dto"
	"github.com/jdramirez/servipro/internal/api/middleware"
	"github.com/jdramirez/servipro/internal/database/models"
	"gorm.io/gorm"
)

const (
	auditDefaultLimit = 200
	auditMaxLimit     = 1000
)

type AuditLogHandler struct {
	db *gorm.DB
}

func NewAuditLogHandler(db *gorm.DB) *AuditLogHandler {
	return &AuditLogHandler{db: db}
}

// List returns recent audit entries, newest first. The audit trail is
// shared between the partners, so no ownership scope applies here.
func (h *AuditLogHandler) List(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusOK, []models.AuditLog{})
		return
	}

	query := h.db.WithContext(r.Context()).Model(&models.AuditLog{})

	params := r.URL.Query()
	if raw := params.Get("start_date"); raw != "" {
		start, err := parseDate(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   msgValidation,
				Details: map[string]string{"start_date": "Fecha inválida, use el formato AAAA-MM-DD"},
			})
			return
		}
		query = query.Where("created_at >= ?", start)
	}
	if raw := params.Get("end_date"); raw != "" {
		end, err := parseDate(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   msgValidation,
				Details: map[string]string{"end_date": "Fecha inválida, use el formato AAAA-MM-DD"},
			})
			return
		}
		// End date is inclusive: everything up to midnight of the next day.
		query = query.Where("created_at < ?", end.AddDate(0, 0, 1))
	}
	if action := params.Get("action"); action != "" {
		query = query.Where("action = ?", action)
	}
	if entityType := params.Get("entity_type"); entityType != "" {
		query = query.Where("entity_type = ?", entityType)
	}

	limit := auditDefaultLimit
	if raw := params.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > auditMaxLimit {
		limit = auditMaxLimit
	}

	var entries []models.AuditLog
	if err := query.Order("created_at DESC").Limit(limit).Find(&entries).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo obtener la bitácora"})
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
