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
	"gorm.io/gorm"
)

type ClientHandler struct {
	db       *gorm.DB
	mapper   *identity.Mapper
	scopes   *ownership.Resolver
	recorder *audit.Recorder
}

func NewClientHandler(db *gorm.DB, mapper *identity.Mapper, scopes *ownership.Resolver, recorder *audit.Recorder) *ClientHandler {
	return &ClientHandler{db: db, mapper: mapper, scopes: scopes, recorder: recorder}
}

type CreateClientRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

func (r CreateClientRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		errs["name"] = "El nombre es requerido"
	}
	return errs
}

type UpdateClientRequest struct {
	Name     *string `json:"name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Email    *string `json:"email,omitempty"`
	Address  *string `json:"address,omitempty"`
	Notes    *string `json:"notes,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

// Create creates a new client
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: msgNoStore})
		return
	}

	var req CreateClientRequest
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

	client := models.Client{
		UserID:   userID,
		Name:     strings.TrimSpace(req.Name),
		Phone:    strings.TrimSpace(req.Phone),
		Email:    strings.TrimSpace(req.Email),
		Address:  strings.TrimSpace(req.Address),
		Notes:    req.Notes,
		IsActive: true,
	}

	if err := h.db.WithContext(r.Context()).Create(&client).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo crear el cliente"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionCreate,
		EntityType:  models.EntityClient,
		EntityID:    client.ID.String(),
		Description: fmt.Sprintf("Cliente creado: '%s'", client.Name),
		NewValue:    client,
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusCreated, client)
}

// List returns all clients, optionally filtered by a search term
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusOK, []models.Client{})
		return
	}

	query := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityClient, uuid.Nil))

	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, "%"+q+"%")
	}

	var clients []models.Client
	if err := query.Order("name ASC").Find(&clients).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudieron obtener los clientes"})
		return
	}

	writeJSON(w, http.StatusOK, clients)
}

// Get returns a specific client
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Cliente no encontrado"})
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de cliente inválido"})
		return
	}

	var client models.Client
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityClient, uuid.Nil)).
		First(&client, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Cliente no encontrado"})
		return
	}

	writeJSON(w, http.StatusOK, client)
}

// Update applies partial changes to a client
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
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
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de cliente inválido"})
		return
	}

	var client models.Client
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityClient, uuid.Nil)).
		First(&client, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Cliente no encontrado"})
		return
	}

	var req UpdateClientRequest
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
		cs.Add("nombre", client.Name, name)
		client.Name = name
	}
	if req.Phone != nil {
		cs.Add("teléfono", client.Phone, strings.TrimSpace(*req.Phone))
		client.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		cs.Add("correo", client.Email, strings.TrimSpace(*req.Email))
		client.Email = strings.TrimSpace(*req.Email)
	}
	if req.Address != nil {
		cs.Add("dirección", client.Address, strings.TrimSpace(*req.Address))
		client.Address = strings.TrimSpace(*req.Address)
	}
	if req.Notes != nil {
		cs.Add("notas", client.Notes, *req.Notes)
		client.Notes = *req.Notes
	}
	if req.IsActive != nil {
		cs.AddBool("activo", client.IsActive, *req.IsActive)
		client.IsActive = *req.IsActive
	}

	if cs.Empty() {
		// Nothing changed: no write, no audit entry.
		writeJSON(w, http.StatusOK, client)
		return
	}

	if err := h.db.WithContext(r.Context()).Save(&client).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo actualizar el cliente"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionUpdate,
		EntityType:  models.EntityClient,
		EntityID:    client.ID.String(),
		Description: fmt.Sprintf("Cliente actualizado: '%s' (%s)", client.Name, cs.Describe()),
		OldValue:    cs.OldValues(),
		NewValue:    cs.NewValues(),
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, client)
}

// Delete removes a client with no quotes; clients with quotes must be
// deactivated instead.
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "ID de cliente inválido"})
		return
	}

	var client models.Client
	if err := h.db.WithContext(r.Context()).
		Scopes(h.scopes.Scope(r.Context(), models.EntityClient, uuid.Nil)).
		First(&client, "id = ?", id).Error; err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Cliente no encontrado"})
		return
	}

	var quotes int64
	if err := h.db.WithContext(r.Context()).
		Model(&models.Quote{}).
		Where("client_id = ?", client.ID).
		Count(&quotes).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo eliminar el cliente"})
		return
	}
	if quotes > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error: "No se puede eliminar el cliente porque tiene presupuestos registrados. Desactívelo en su lugar.",
		})
		return
	}

	if err := h.db.WithContext(r.Context()).Delete(&client).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo eliminar el cliente"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionDelete,
		EntityType:  models.EntityClient,
		EntityID:    client.ID.String(),
		Description: fmt.Sprintf("Cliente eliminado: '%s'", client.Name),
		OldValue:    client,
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Cliente eliminado"})
}
