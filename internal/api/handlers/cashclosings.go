package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jdramirez/servipro/internal/api/dto"
	"github.com/jdramirez/servipro/internal/api/middleware"
	"github.com/jdramirez/servipro/internal/audit"
	"github.com/jdramirez/servipro/internal/database/models"
	"github.com/jdramirez/servipro/internal/identity"
	"github.com/jdramirez/servipro/internal/ownership"
	"github.com/jdramirez/servipro/internal/settings"
	"github.com/jdramirez/servipro/pkg/util"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CashClosingHandler struct {
	db        *gorm.DB
	mapper    *identity.Mapper
	scopes    *ownership.Resolver
	recorder  *audit.Recorder
	bootstrap *settings.Bootstrapper
}

func NewCashClosingHandler(db *gorm.DB, mapper *identity.Mapper, scopes *ownership.Resolver, recorder *audit.Recorder, bootstrap *settings.Bootstrapper) *CashClosingHandler {
	return &CashClosingHandler{db: db, mapper: mapper, scopes: scopes, recorder: recorder, bootstrap: bootstrap}
}

type CreateCashClosingRequest struct {
	ClosingDate     string          `json:"closing_date"`
	TotalIncome     decimal.Decimal `json:"total_income"`
	TotalExpenses   decimal.Decimal `json:"total_expenses"`
	SplitPercentage *int            `json:"split_percentage,omitempty"`
	Notes           string          `json:"notes"`
}

func (r CreateCashClosingRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.ClosingDate == "" {
		errs["closing_date"] = "La fecha de cierre es requerida"
	} else if _, err := parseDate(r.ClosingDate); err != nil {
		errs["closing_date"] = "Fecha inválida, use el formato AAAA-MM-DD"
	}
	if r.TotalIncome.IsNegative() {
		errs["total_income"] = "Los ingresos no pueden ser negativos"
	}
	if r.TotalExpenses.IsNegative() {
		errs["total_expenses"] = "Los gastos no pueden ser negativos"
	}
	if r.SplitPercentage != nil && (*r.SplitPercentage < 0 || *r.SplitPercentage > 100) {
		errs["split_percentage"] = "El porcentaje de reparto debe estar entre 0 y 100"
	}
	return errs
}

// Create records a cash closing. The net amount is always derived
// server side from income minus expenses. Closings are money events,
// so every audit entry carries the prominence marker.
func (h *CashClosingHandler) Create(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: msgNoStore})
		return
	}

	var req CreateCashClosingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msgInvalidBody})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msgValidation, Details: errs})
		return
	}

	userID, err := h.mapper.ResolveStorageUserID(r.Context(), authID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: msgIdentityError})
		return
	}

	split := settings.DefaultSplitPercentage
	if req.SplitPercentage != nil {
		split = *req.SplitPercentage
	} else if cfg, err := h.bootstrap.GetOrCreate(r.Context(), h.mapper.ResolvePartnerGroupIDs(r.Context())); err == nil {
		split = cfg.SplitPercentage
	}

	closingDate, _ := parseDate(req.ClosingDate)
	closing := models.CashClosing{
		UserID:          userID,
		ClosingDate:     closingDate,
		TotalIncome:     req.TotalIncome,
		TotalExpenses:   req.TotalExpenses,
		NetAmount:       req.TotalIncome.Sub(req.TotalExpenses),
		SplitPercentage: split,
		Notes:           strings.TrimSpace(req.Notes),
	}

	if err := h.db.WithContext(r.Context()).Create(&closing).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo registrar el cierre de caja"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionCreate,
		EntityType:  models.EntityCashClosing,
		EntityID:    closing.ID.String(),
		Description: fmt.Sprintf("%s Cierre de caja del %s: ingresos %s, gastos %s, neto %s",
			audit.Marker,
			closing.ClosingDate.Format(dateLayout),
			util.FormatMoney(closing.TotalIncome),
			util.FormatMoney(closing.TotalExpenses),
			util.FormatMoney(closing.NetAmount)),
		NewValue:  closing,
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})

	writeJSON(w, http.StatusCreated, closing)
}

func (h *CashClosingHandler) List(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusOK, []models.CashClosing{})
		return
	}

	var closings []models.CashClosing
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityCashClosing, uuid.Nil)).
		Order("closing_date DESC").
		Find(&closings).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudieron obtener los cierres de caja"})
		return
	}

	writeJSON(w, http.StatusOK, closings)
}

func (h *CashClosingHandler) Get(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Cierre de caja no encontrado"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de cierre inválido"})
		return
	}

	var closing models.CashClosing
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityCashClosing, uuid.Nil)).
		First(&closing, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Cierre de caja no encontrado"})
		return
	}

	writeJSON(w, http.StatusOK, closing)
}

func (h *CashClosingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: msgNoStore})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de cierre inválido"})
		return
	}

	var closing models.CashClosing
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityCashClosing, uuid.Nil)).
		First(&closing, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Cierre de caja no encontrado"})
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(&closing).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo eliminar el cierre de caja"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionDelete,
		EntityType:  models.EntityCashClosing,
		EntityID:    closing.ID.String(),
		Description: fmt.Sprintf("%s Cierre de caja eliminado: %s, neto %s",
			audit.Marker,
			closing.ClosingDate.Format(dateLayout),
			util.FormatMoney(closing.NetAmount)),
		OldValue:  closing,
		IPAddress: middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Cierre de caja eliminado"})
}
