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

type EmployeeHandler struct {
	db       *gorm.DB
	mapper   *identity.Mapper
	scopes   *ownership.Resolver
	recorder *audit.Recorder
}

func NewEmployeeHandler(db *gorm.DB, mapper *identity.Mapper, scopes *ownership.Resolver, recorder *audit.Recorder) *EmployeeHandler {
	return &EmployeeHandler{db: db, mapper: mapper, scopes: scopes, recorder: recorder}
}

type CreateEmployeeRequest struct {
	Name      string          `json:"name"`
	Phone     string          `json:"phone"`
	Position  string          `json:"position"`
	DailyRate decimal.Decimal `json:"daily_rate"`
	Notes     string          `json:"notes"`
}

func (r CreateEmployeeRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		errs["name"] = "El nombre es requerido"
	}
	if r.DailyRate.IsNegative() {
		errs["daily_rate"] = "La tarifa diaria no puede ser negativa"
	}
	return errs
}

type UpdateEmployeeRequest struct {
	Name      *string          `json:"name,omitempty"`
	Phone     *string          `json:"phone,omitempty"`
	Position  *string          `json:"position,omitempty"`
	DailyRate *decimal.Decimal `json:"daily_rate,omitempty"`
	Notes     *string          `json:"notes,omitempty"`
	IsActive  *bool            `json:"is_active,omitempty"`
}

// Create creates a new employee owned by the caller but visible to the
// whole partner group.
func (h *EmployeeHandler) Create(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: msgNoStore})
		return
	}

	var req CreateEmployeeRequest
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

	employee := models.Employee{
		UserID:    userID,
		Name:      strings.TrimSpace(req.Name),
		Phone:     strings.TrimSpace(req.Phone),
		Position:  strings.TrimSpace(req.Position),
		DailyRate: req.DailyRate,
		Notes:     req.Notes,
		IsActive:  true,
	}

	if err := h.db.WithContext(r.Context()).Create(&employee).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo crear el empleado"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionCreate,
		EntityType:  models.EntityEmployee,
		EntityID:    employee.ID.String(),
		Description: fmt.Sprintf("Empleado creado: '%s' (%s, tarifa %s)", employee.Name, employee.Position, util.FormatMoney(employee.DailyRate)),
		NewValue:    employee,
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusCreated, employee)
}

// List returns every employee of the partner group
func (h *EmployeeHandler) List(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusOK, []models.Employee{})
		return
	}

	var employees []models.Employee
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityEmployee, uuid.Nil)).
		Order("name ASC").
		Find(&employees).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudieron obtener los empleados"})
		return
	}

	writeJSON(w, http.StatusOK, employees)
}

func (h *EmployeeHandler) Get(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Empleado no encontrado"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de empleado inválido"})
		return
	}

	var employee models.Employee
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityEmployee, uuid.Nil)).
		First(&employee, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Empleado no encontrado"})
		return
	}

	writeJSON(w, http.StatusOK, employee)
}

// Update applies partial changes; either partner can edit any group employee.
func (h *EmployeeHandler) Update(w http.ResponseWriter, r *http.Request) {
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
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de empleado inválido"})
		return
	}

	var employee models.Employee
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityEmployee, uuid.Nil)).
		First(&employee, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Empleado no encontrado"})
		return
	}

	var req UpdateEmployeeRequest
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
		cs.Add("nombre", employee.Name, name)
		employee.Name = name
	}
	if req.Phone != nil {
		cs.Add("teléfono", employee.Phone, strings.TrimSpace(*req.Phone))
		employee.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Position != nil {
		cs.Add("puesto", employee.Position, strings.TrimSpace(*req.Position))
		employee.Position = strings.TrimSpace(*req.Position)
	}
	if req.DailyRate != nil {
		if req.DailyRate.IsNegative() {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   msgValidation,
				Details: map[string]string{"daily_rate": "La tarifa diaria no puede ser negativa"},
			})
			return
		}
		cs.AddMoney("tarifa diaria", employee.DailyRate, *req.DailyRate)
		employee.DailyRate = *req.DailyRate
	}
	if req.Notes != nil {
		cs.Add("notas", employee.Notes, *req.Notes)
		employee.Notes = *req.Notes
	}
	if req.IsActive != nil {
		cs.AddBool("activo", employee.IsActive, *req.IsActive)
		employee.IsActive = *req.IsActive
	}

	if cs.Empty() {
		writeJSON(w, http.StatusOK, employee)
		return
	}

	if err := h.db.WithContext(r.Context()).Save(&employee).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo actualizar el empleado"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionUpdate,
		EntityType:  models.EntityEmployee,
		EntityID:    employee.ID.String(),
		Description: fmt.Sprintf("Empleado actualizado: '%s' (%s)", employee.Name, cs.Describe()),
		OldValue:    cs.OldValues(),
		NewValue:    cs.NewValues(),
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, employee)
}

// Delete removes an employee with no recorded expenses; otherwise the
// caller is steered toward deactivation.
func (h *EmployeeHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de empleado inválido"})
		return
	}

	var employee models.Employee
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityEmployee, uuid.Nil)).
		First(&employee, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Empleado no encontrado"})
		return
	}

	var expenses int64
	if err := h.db.WithContext(r.Context()).
		Model(&models.Expense{}).
		Where("employee_id = ?", employee.ID).
		Count(&expenses).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo eliminar el empleado"})
		return
	}
	if expenses > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "No se puede eliminar el empleado porque tiene gastos registrados. Desactívelo en su lugar.",
		})
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(&employee).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo eliminar el empleado"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionDelete,
		EntityType:  models.EntityEmployee,
		EntityID:    employee.ID.String(),
		Description: fmt.Sprintf("Empleado eliminado: '%s'", employee.Name),
		OldValue:    employee,
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Empleado eliminado"})
}
