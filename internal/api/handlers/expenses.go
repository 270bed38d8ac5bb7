package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

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

// Expenses above this amount get the prominence marker when deleted.
var highValueThreshold = decimal.NewFromInt(1000)

type ExpenseHandler struct {
	db       *gorm.DB
	mapper   *identity.Mapper
	scopes   *ownership.Resolver
	recorder *audit.Recorder
}

func NewExpenseHandler(db *gorm.DB, mapper *identity.Mapper, scopes *ownership.Resolver, recorder *audit.Recorder) *ExpenseHandler {
	return &ExpenseHandler{db: db, mapper: mapper, scopes: scopes, recorder: recorder}
}

type CreateExpenseRequest struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Method      string          `json:"method"`
	ExpenseDate string          `json:"expense_date"`
	EmployeeID  *uuid.UUID      `json:"employee_id,omitempty"`
}

func (r CreateExpenseRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Description) == "" {
		errs["description"] = "La descripción es requerida"
	}
	if !r.Amount.IsPositive() {
		errs["amount"] = "El monto debe ser mayor a cero"
	}
	if strings.TrimSpace(r.Category) == "" {
		errs["category"] = "La categoría es requerida"
	}
	if r.Method != "" && r.Method != models.MethodCash && r.Method != models.MethodTransfer && r.Method != models.MethodCard {
		errs["method"] = "Método de pago inválido"
	}
	if r.ExpenseDate == "" {
		errs["expense_date"] = "La fecha es requerida"
	} else if _, err := parseDate(r.ExpenseDate); err != nil {
		errs["expense_date"] = "Fecha inválida, use el formato AAAA-MM-DD"
	}
	return errs
}

type UpdateExpenseRequest struct {
	Description *string          `json:"description,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Method      *string          `json:"method,omitempty"`
	ExpenseDate *string          `json:"expense_date,omitempty"`
	EmployeeID  *uuid.UUID       `json:"employee_id,omitempty"`
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: msgNoStore})
		return
	}

	var req CreateExpenseRequest
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

	if req.EmployeeID != nil && *req.EmployeeID == uuid.Nil {
		req.EmployeeID = nil
	}
	if req.EmployeeID != nil {
		var employee models.Employee
		if err := h.db.WithContext(r.Context()).
			Scopes(h.scopes.Scope(r.Context(), models.EntityEmployee, userID)).
			First(&employee, "id = ?", *req.EmployeeID).Error; err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   msgValidation,
				Details: map[string]string{"employee_id": "Empleado no encontrado"},
			})
			return
		}
	}

	expenseDate, _ := parseDate(req.ExpenseDate)
	method := req.Method
	if method == "" {
		method = models.MethodCash
	}

	expense := models.Expense{
		UserID:      userID,
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		Category:    strings.TrimSpace(req.Category),
		Method:      method,
		ExpenseDate: expenseDate,
		EmployeeID:  req.EmployeeID,
	}

	if err := h.db.WithContext(r.Context()).Create(&expense).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo registrar el gasto"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionCreate,
		EntityType:  models.EntityExpense,
		EntityID:    expense.ID.String(),
		Description: fmt.Sprintf("Gasto registrado: '%s' por %s (%s)", expense.Description, util.FormatMoney(expense.Amount), expense.Category),
		NewValue:    expense,
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusCreated, expense)
}

// List returns the partner group's expenses, newest first, optionally
// filtered by category or month (AAAA-MM).
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusOK, []models.Expense{})
		return
	}

	query := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityExpense, uuid.Nil)).
		Preload("Employee")

	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		query = query.Where("LOWER(category) LIKE ?", "%"+strings.ToLower(category)+"%")
	}
	if month := r.URL.Query().Get("month"); month != "" {
		if start, err := time.Parse("2006-01", month); err == nil {
			query = query.Where("expense_date >= ? AND expense_date < ?", start, start.AddDate(0, 1, 0))
		}
	}

	var expenses []models.Expense
	if err := query.Order("expense_date DESC").Find(&expenses).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudieron obtener los gastos"})
		return
	}

	writeJSON(w, http.StatusOK, expenses)
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Gasto no encontrado"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de gasto inválido"})
		return
	}

	var expense models.Expense
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityExpense, uuid.Nil)).
		Preload("Employee").
		First(&expense, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Gasto no encontrado"})
		return
	}

	writeJSON(w, http.StatusOK, expense)
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
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
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de gasto inválido"})
		return
	}

	var expense models.Expense
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityExpense, uuid.Nil)).
		First(&expense, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Gasto no encontrado"})
		return
	}

	var req UpdateExpenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msgInvalidBody})
		return
	}

	var cs audit.ChangeSet
	if req.Description != nil {
		desc := strings.TrimSpace(*req.Description)
		if desc == "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   msgValidation,
				Details: map[string]string{"description": "La descripción es requerida"},
			})
			return
		}
		cs.Add("descripción", expense.Description, desc)
		expense.Description = desc
	}
	if req.Amount != nil {
		if !req.Amount.IsPositive() {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   msgValidation,
				Details: map[string]string{"amount": "El monto debe ser mayor a cero"},
			})
			return
		}
		cs.AddMoney("monto", expense.Amount, *req.Amount)
		expense.Amount = *req.Amount
	}
	if req.Category != nil {
		category := strings.TrimSpace(*req.Category)
		if category == "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   msgValidation,
				Details: map[string]string{"category": "La categoría es requerida"},
			})
			return
		}
		cs.Add("categoría", expense.Category, category)
		expense.Category = category
	}
	if req.Method != nil {
		if *req.Method != models.MethodCash && *req.Method != models.MethodTransfer && *req.Method != models.MethodCard {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   msgValidation,
				Details: map[string]string{"method": "Método de pago inválido"},
			})
			return
		}
		cs.Add("método", expense.Method, *req.Method)
		expense.Method = *req.Method
	}
	if req.ExpenseDate != nil {
		date, err := parseDate(*req.ExpenseDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   msgValidation,
				Details: map[string]string{"expense_date": "Fecha inválida, use el formato AAAA-MM-DD"},
			})
			return
		}
		cs.Add("fecha", expense.ExpenseDate.Format(dateLayout), date.Format(dateLayout))
		expense.ExpenseDate = date
	}
	if req.EmployeeID != nil {
		oldID := ""
		if expense.EmployeeID != nil {
			oldID = expense.EmployeeID.String()
		}
		// The zero uuid unlinks the employee from the expense.
		if *req.EmployeeID == uuid.Nil {
			cs.Add("empleado", oldID, "")
			expense.EmployeeID = nil
		} else {
			var employee models.Employee
			if err := h.db.WithContext(r.Context()).
				Scopes(h.scopes.Scope(r.Context(), models.EntityEmployee, uuid.Nil)).
				First(&employee, "id = ?", *req.EmployeeID).Error; err != nil {
				writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
					Error:   msgValidation,
					Details: map[string]string{"employee_id": "Empleado no encontrado"},
				})
				return
			}
			cs.Add("empleado", oldID, req.EmployeeID.String())
			expense.EmployeeID = req.EmployeeID
		}
	}

	if cs.Empty() {
		writeJSON(w, http.StatusOK, expense)
		return
	}

	if err := h.db.WithContext(r.Context()).Save(&expense).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo actualizar el gasto"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionUpdate,
		EntityType:  models.EntityExpense,
		EntityID:    expense.ID.String(),
		Description: fmt.Sprintf("Gasto actualizado: '%s' (%s)", expense.Description, cs.Describe()),
		OldValue:    cs.OldValues(),
		NewValue:    cs.NewValues(),
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, expense)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de gasto inválido"})
		return
	}

	var expense models.Expense
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityExpense, uuid.Nil)).
		First(&expense, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Gasto no encontrado"})
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(&expense).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo eliminar el gasto"})
		return
	}

	description := fmt.Sprintf("Gasto eliminado: '%s' por %s", expense.Description, util.FormatMoney(expense.Amount))
	if expense.Amount.GreaterThan(highValueThreshold) {
		description = audit.Marker + " " + description
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionDelete,
		EntityType:  models.EntityExpense,
		EntityID:    expense.ID.String(),
		Description: description,
		OldValue:    expense,
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Gasto eliminado"})
}
