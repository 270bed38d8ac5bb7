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
	"github.com/jdramirez/servipro/pkg/util"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ServiceHandler struct {
	db       *gorm.DB
	mapper   *identity.Mapper
	scopes   *ownership.Resolver
	recorder *audit.Recorder
}

func NewServiceHandler(db *gorm.DB, mapper *identity.Mapper, scopes *ownership.Resolver, recorder *audit.Recorder) *ServiceHandler {
	return &ServiceHandler{db: db, mapper: mapper, scopes: scopes, recorder: recorder}
}

type CreateServiceRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (r CreateServiceRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		errs["name"] = "El nombre es requerido"
	}
	if r.UnitPrice.IsNegative() {
		errs["unit_price"] = "El precio unitario no puede ser negativo"
	}
	return errs
}

type UpdateServiceRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Unit        *string          `json:"unit,omitempty"`
	UnitPrice   *decimal.Decimal `json:"unit_price,omitempty"`
	IsActive    *bool            `json:"is_active,omitempty"`
}

func (h *ServiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: msgNoStore})
		return
	}

	var req CreateServiceRequest
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

	unit := strings.TrimSpace(req.Unit)
	if unit == "" {
		unit = "servicio"
	}

	service := models.Service{
		UserID:      userID,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Unit:        unit,
		UnitPrice:   req.UnitPrice,
		IsActive:    true,
	}

	if err := h.db.WithContext(r.Context()).Create(&service).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo crear el servicio"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionCreate,
		EntityType:  models.EntityService,
		EntityID:    service.ID.String(),
		Description: fmt.Sprintf("Servicio creado: '%s' a %s por %s", service.Name, util.FormatMoney(service.UnitPrice), service.Unit),
		NewValue:    service,
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusCreated, service)
}

func (h *ServiceHandler) List(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusOK, []models.Service{})
		return
	}

	var services []models.Service
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityService, uuid.Nil)).
		Order("name ASC").
		Find(&services).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudieron obtener los servicios"})
		return
	}

	writeJSON(w, http.StatusOK, services)
}

func (h *ServiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Servicio no encontrado"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de servicio inválido"})
		return
	}

	var service models.Service
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityService, uuid.Nil)).
		First(&service, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Servicio no encontrado"})
		return
	}

	writeJSON(w, http.StatusOK, service)
}

func (h *ServiceHandler) Update(w http.ResponseWriter, r *http.Request) {
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
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de servicio inválido"})
		return
	}

	var service models.Service
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityService, uuid.Nil)).
		First(&service, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Servicio no encontrado"})
		return
	}

	var req UpdateServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msgInvalidBody})
		return
	}

	var cs audit.ChangeSet
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   msgValidation,
				Details: map[string]string{"name": "El nombre es requerido"},
			})
			return
		}
		cs.Add("nombre", service.Name, name)
		service.Name = name
	}
	if req.Description != nil {
		cs.Add("descripción", service.Description, *req.Description)
		service.Description = *req.Description
	}
	if req.Unit != nil {
		unit := strings.TrimSpace(*req.Unit)
		if unit != "" {
			cs.Add("unidad", service.Unit, unit)
			service.Unit = unit
		}
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   msgValidation,
				Details: map[string]string{"unit_price": "El precio unitario no puede ser negativo"},
			})
			return
		}
		cs.AddMoney("precio unitario", service.UnitPrice, *req.UnitPrice)
		service.UnitPrice = *req.UnitPrice
	}
	if req.IsActive != nil {
		cs.AddBool("activo", service.IsActive, *req.IsActive)
		service.IsActive = *req.IsActive
	}

	if cs.Empty() {
		writeJSON(w, http.StatusOK, service)
		return
	}

	if err := h.db.WithContext(r.Context()).Save(&service).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo actualizar el servicio"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionUpdate,
		EntityType:  models.EntityService,
		EntityID:    service.ID.String(),
		Description: fmt.Sprintf("Servicio actualizado: '%s' (%s)", service.Name, cs.Describe()),
		OldValue:    cs.OldValues(),
		NewValue:    cs.NewValues(),
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, service)
}

func (h *ServiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de servicio inválido"})
		return
	}

	var service models.Service
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityService, uuid.Nil)).
		First(&service, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Servicio no encontrado"})
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(&service).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo eliminar el servicio"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionDelete,
		EntityType:  models.EntityService,
		EntityID:    service.ID.String(),
		Description: fmt.Sprintf("Servicio eliminado: '%s'", service.Name),
		OldValue:    service,
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Servicio eliminado"})
}
