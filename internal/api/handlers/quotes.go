package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
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

type QuoteHandler struct {
	db       *gorm.DB
	mapper   *identity.Mapper
	scopes   *ownership.Resolver
	recorder *audit.Recorder
}

func NewQuoteHandler(db *gorm.DB, mapper *identity.Mapper, scopes *ownership.Resolver, recorder *audit.Recorder) *QuoteHandler {
	return &QuoteHandler{db: db, mapper: mapper, scopes: scopes, recorder: recorder}
}

type QuoteItemRequest struct {
	ServiceID   *uuid.UUID      `json:"service_id,omitempty"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type CreateQuoteRequest struct {
	ClientID      uuid.UUID          `json:"client_id"`
	QuoteDate     string             `json:"quote_date"`
	Status        string             `json:"status"`
	Notes         string             `json:"notes"`
	TaxRate       decimal.Decimal    `json:"tax_rate"`
	ServiceItems  []QuoteItemRequest `json:"service_items"`
	MaterialItems []QuoteItemRequest `json:"material_items"`
}

func validQuoteStatus(s string) bool {
	switch s {
	case models.QuoteStatusDraft, models.QuoteStatusSent, models.QuoteStatusApproved, models.QuoteStatusRejected:
		return true
	}
	return false
}

func validateItems(errs map[string]string, prefix string, items []QuoteItemRequest) {
	for i, item := range items {
		if strings.TrimSpace(item.Description) == "" {
			errs[fmt.Sprintf("%s[%d].description", prefix, i)] = "La descripción es requerida"
		}
		if !item.Quantity.IsPositive() {
			errs[fmt.Sprintf("%s[%d].quantity", prefix, i)] = "La cantidad debe ser mayor a cero"
		}
		if item.UnitPrice.IsNegative() {
			errs[fmt.Sprintf("%s[%d].unit_price", prefix, i)] = "El precio unitario no puede ser negativo"
		}
	}
}

func (r CreateQuoteRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if r.ClientID == uuid.Nil {
		errs["client_id"] = "El cliente es requerido"
	}
	if r.QuoteDate != "" {
		if _, err := parseDate(r.QuoteDate); err != nil {
			errs["quote_date"] = "Fecha inválida, use el formato AAAA-MM-DD"
		}
	}
	if r.Status != "" && !validQuoteStatus(r.Status) {
		errs["status"] = "Estado de presupuesto inválido"
	}
	if r.TaxRate.IsNegative() {
		errs["tax_rate"] = "La tasa de impuesto no puede ser negativa"
	}
	validateItems(errs, "service_items", r.ServiceItems)
	validateItems(errs, "material_items", r.MaterialItems)
	return errs
}

type UpdateQuoteRequest struct {
	ClientID      *uuid.UUID          `json:"client_id,omitempty"`
	QuoteDate     *string             `json:"quote_date,omitempty"`
	Status        *string             `json:"status,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	TaxRate       *decimal.Decimal    `json:"tax_rate,omitempty"`
	ServiceItems  *[]QuoteItemRequest `json:"service_items,omitempty"`
	MaterialItems *[]QuoteItemRequest `json:"material_items,omitempty"`
}

// nextQuoteNumber builds ORC-<year>-<NNN> from the number of quotes ever
// created in that year. Soft-deleted quotes still count, so a number is
// never reissued after a delete.
func (h *QuoteHandler) nextQuoteNumber(tx *gorm.DB, year int) (string, error) {
	var count int64
	start := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := tx.Unscoped().Model(&models.Quote{}).
		Where("quote_date >= ? AND quote_date < ?", start, start.AddDate(1, 0, 0)).
		Count(&count).Error; err != nil {
		return "", err
	}
	return fmt.Sprintf("ORC-%d-%03d", year, count+1), nil
}

func buildServiceItems(items []QuoteItemRequest) ([]models.QuoteServiceItem, decimal.Decimal) {
	out := make([]models.QuoteServiceItem, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		total := item.Quantity.Mul(item.UnitPrice)
		subtotal = subtotal.Add(total)
		out = append(out, models.QuoteServiceItem{
			ServiceID:   item.ServiceID,
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       total,
		})
	}
	return out, subtotal
}

func buildMaterialItems(items []QuoteItemRequest) ([]models.QuoteMaterialItem, decimal.Decimal) {
	out := make([]models.QuoteMaterialItem, 0, len(items))
	subtotal := decimal.Zero
	for _, item := range items {
		total := item.Quantity.Mul(item.UnitPrice)
		subtotal = subtotal.Add(total)
		out = append(out, models.QuoteMaterialItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Total:       total,
		})
	}
	return out, subtotal
}

// describeQuoteItems renders an item array for the audit diff. The rendering
// covers every field a caller can edit, so two arrays render equally only
// when their content is the same; parts are sorted so storage order does not
// register as a change.
func describeQuoteItems(count int, parts []string) string {
	if count == 0 {
		return "sin partidas"
	}
	sort.Strings(parts)
	return fmt.Sprintf("%d partidas: %s", count, strings.Join(parts, "; "))
}

func describeServiceItems(items []models.QuoteServiceItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%s x%s a %s", item.Description, item.Quantity.String(), util.FormatMoney(item.UnitPrice))
		if item.ServiceID != nil {
			parts[i] += " [" + item.ServiceID.String() + "]"
		}
	}
	return describeQuoteItems(len(items), parts)
}

func describeMaterialItems(items []models.QuoteMaterialItem) string {
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = fmt.Sprintf("%s x%s a %s", item.Description, item.Quantity.String(), util.FormatMoney(item.UnitPrice))
	}
	return describeQuoteItems(len(items), parts)
}

func recomputeTotals(q *models.Quote) {
	subtotal := decimal.Zero
	for _, item := range q.ServiceItems {
		subtotal = subtotal.Add(item.Total)
	}
	for _, item := range q.MaterialItems {
		subtotal = subtotal.Add(item.Total)
	}
	q.Subtotal = subtotal
	q.TaxAmount = subtotal.Mul(q.TaxRate).Div(decimal.NewFromInt(100)).Round(2)
	q.Total = q.Subtotal.Add(q.TaxAmount)
}

func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: msgNoStore})
		return
	}

	var req CreateQuoteRequest
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

	var client models.Client
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityClient, userID)).
		First(&client, "id = ?", req.ClientID).Error; err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:   msgValidation,
			Details: map[string]string{"client_id": "Cliente no encontrado"},
		})
		return
	}

	quoteDate := time.Now().UTC().Truncate(24 * time.Hour)
	if req.QuoteDate != "" {
		quoteDate, _ = parseDate(req.QuoteDate)
	}
	status := req.Status
	if status == "" {
		status = models.QuoteStatusDraft
	}

	serviceItems, _ := buildServiceItems(req.ServiceItems)
	materialItems, _ := buildMaterialItems(req.MaterialItems)

	quote := models.Quote{
		UserID:        userID,
		ClientID:      req.ClientID,
		QuoteDate:     quoteDate,
		Status:        status,
		Notes:         strings.TrimSpace(req.Notes),
		TaxRate:       req.TaxRate,
		ServiceItems:  serviceItems,
		MaterialItems: materialItems,
	}
	recomputeTotals(&quote)

	err = h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		number, err := h.nextQuoteNumber(tx, quoteDate.Year())
		if err != nil {
			return err
		}
		quote.Number = number
		return tx.Create(&quote).Error
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo crear el presupuesto"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionCreate,
		EntityType:  models.EntityQuote,
		EntityID:    quote.ID.String(),
		Description: fmt.Sprintf("Presupuesto creado: %s para '%s' por %s", quote.Number, client.Name, util.FormatMoney(quote.Total)),
		NewValue:    quote,
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	quote.Client = &client
	writeJSON(w, http.StatusCreated, quote)
}

func (h *QuoteHandler) List(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusOK, []models.Quote{})
		return
	}

	query := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityQuote, uuid.Nil)).
		Preload("Client").
		Preload("ServiceItems").
		Preload("MaterialItems")

	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if clientID, err := uuid.Parse(r.URL.Query().Get("client_id")); err == nil {
		query = query.Where("client_id = ?", clientID)
	}

	var quotes []models.Quote
	if err := query.Order("quote_date DESC, number DESC").Find(&quotes).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudieron obtener los presupuestos"})
		return
	}

	writeJSON(w, http.StatusOK, quotes)
}

func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Presupuesto no encontrado"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de presupuesto inválido"})
		return
	}

	var quote models.Quote
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityQuote, uuid.Nil)).
		Preload("Client").
		Preload("ServiceItems").
		Preload("MaterialItems").
		First(&quote, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Presupuesto no encontrado"})
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// Update edits header fields and, when item arrays are present, replaces
// the stored items wholesale with the submitted set.
func (h *QuoteHandler) Update(w http.ResponseWriter, r *http.Request) {
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
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de presupuesto inválido"})
		return
	}

	var quote models.Quote
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityQuote, uuid.Nil)).
		Preload("ServiceItems").
		Preload("MaterialItems").
		First(&quote, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Presupuesto no encontrado"})
		return
	}

	var req UpdateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msgInvalidBody})
		return
	}

	errs := make(map[string]string)
	if req.Status != nil && !validQuoteStatus(*req.Status) {
		errs["status"] = "Estado de presupuesto inválido"
	}
	if req.TaxRate != nil && req.TaxRate.IsNegative() {
		errs["tax_rate"] = "La tasa de impuesto no puede ser negativa"
	}
	if req.QuoteDate != nil {
		if _, err := parseDate(*req.QuoteDate); err != nil {
			errs["quote_date"] = "Fecha inválida, use el formato AAAA-MM-DD"
		}
	}
	if req.ServiceItems != nil {
		validateItems(errs, "service_items", *req.ServiceItems)
	}
	if req.MaterialItems != nil {
		validateItems(errs, "material_items", *req.MaterialItems)
	}
	if len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msgValidation, Details: errs})
		return
	}

	var cs audit.ChangeSet
	if req.ClientID != nil && *req.ClientID != quote.ClientID {
		var client models.Client
		if err := h.db.WithContext(r.Context()).
			Scopes(h.scopes.Scope(r.Context(), models.EntityClient, uuid.Nil)).
			First(&client, "id = ?", *req.ClientID).Error; err != nil {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   msgValidation,
				Details: map[string]string{"client_id": "Cliente no encontrado"},
			})
			return
		}
		cs.Add("cliente", quote.ClientID.String(), req.ClientID.String())
		quote.ClientID = *req.ClientID
	}
	if req.QuoteDate != nil {
		date, _ := parseDate(*req.QuoteDate)
		cs.Add("fecha", quote.QuoteDate.Format(dateLayout), date.Format(dateLayout))
		quote.QuoteDate = date
	}
	if req.Status != nil {
		cs.Add("estado", quote.Status, *req.Status)
		quote.Status = *req.Status
	}
	if req.Notes != nil {
		cs.Add("notas", quote.Notes, strings.TrimSpace(*req.Notes))
		quote.Notes = strings.TrimSpace(*req.Notes)
	}
	if req.TaxRate != nil {
		cs.Add("tasa de impuesto", quote.TaxRate.String(), req.TaxRate.String())
		quote.TaxRate = *req.TaxRate
	}

	itemsReplaced := req.ServiceItems != nil || req.MaterialItems != nil
	if req.ServiceItems != nil {
		items, _ := buildServiceItems(*req.ServiceItems)
		cs.Add("servicios", describeServiceItems(quote.ServiceItems), describeServiceItems(items))
		quote.ServiceItems = items
	}
	if req.MaterialItems != nil {
		items, _ := buildMaterialItems(*req.MaterialItems)
		cs.Add("materiales", describeMaterialItems(quote.MaterialItems), describeMaterialItems(items))
		quote.MaterialItems = items
	}

	if cs.Empty() {
		writeJSON(w, http.StatusOK, quote)
		return
	}

	oldTotal := quote.Total
	recomputeTotals(&quote)
	cs.AddMoney("total", oldTotal, quote.Total)

	err = h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if itemsReplaced {
			if err := tx.Unscoped().Where("quote_id = ?", quote.ID).Delete(&models.QuoteServiceItem{}).Error; err != nil {
				return err
			}
			if err := tx.Unscoped().Where("quote_id = ?", quote.ID).Delete(&models.QuoteMaterialItem{}).Error; err != nil {
				return err
			}
		}
		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&quote).Error
	})
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo actualizar el presupuesto"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionUpdate,
		EntityType:  models.EntityQuote,
		EntityID:    quote.ID.String(),
		Description: fmt.Sprintf("Presupuesto actualizado: %s (%s)", quote.Number, cs.Describe()),
		OldValue:    cs.OldValues(),
		NewValue:    cs.NewValues(),
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, quote)
}

func (h *QuoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de presupuesto inválido"})
		return
	}

	var quote models.Quote
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityQuote, uuid.Nil)).
		First(&quote, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Presupuesto no encontrado"})
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(&quote).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo eliminar el presupuesto"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionDelete,
		EntityType:  models.EntityQuote,
		EntityID:    quote.ID.String(),
		Description: fmt.Sprintf("Presupuesto eliminado: %s por %s", quote.Number, util.FormatMoney(quote.Total)),
		OldValue:    quote,
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Presupuesto eliminado"})
}
