package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jdramirez/servipro/internal/api/dto"
	"github.com/jdramirez/servipro/internal/api/middleware"
	"github.com/jdramirez/servipro/internal/audit"
	"github.com/jdramirez/servipro/internal/database/models"
	"github.com/jdramirez/servipro/internal/identity"
	"github.com/jdramirez/servipro/internal/settings"
	"gorm.io/gorm"
)

type SettingsHandler struct {
	db        *gorm.DB
	mapper    *identity.Mapper
	bootstrap *settings.Bootstrapper
	recorder  *audit.Recorder
}

func NewSettingsHandler(db *gorm.DB, mapper *identity.Mapper, bootstrap *settings.Bootstrapper, recorder *audit.Recorder) *SettingsHandler {
	return &SettingsHandler{db: db, mapper: mapper, bootstrap: bootstrap, recorder: recorder}
}

type UpdateSettingsRequest struct {
	CompanyName     *string `json:"company_name,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Email           *string `json:"email,omitempty"`
	Address         *string `json:"address,omitempty"`
	LogoURL         *string `json:"logo_url,omitempty"`
	SplitPercentage *int    `json:"split_percentage,omitempty"`
}

// Get returns the partner group's settings, creating the default record
// on first access.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: msgNoStore})
		return
	}

	groupIDs := h.mapper.ResolvePartnerGroupIDs(r.Context())
	cfg, err := h.bootstrap.GetOrCreate(r.Context(), groupIDs)
	if err != nil {
		if errors.Is(err, settings.ErrNoPartnerGroup) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Configuración no encontrada"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo obtener la configuración"})
		return
	}

	writeJSON(w, http.StatusOK, cfg)
}

func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	authID := middleware.GetAuthUserID(r.Context())
	if authID == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}
	if h.db == nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: msgNoStore})
		return
	}

	groupIDs := h.mapper.ResolvePartnerGroupIDs(r.Context())
	cfg, err := h.bootstrap.GetOrCreate(r.Context(), groupIDs)
	if err != nil {
		if errors.Is(err, settings.ErrNoPartnerGroup) {
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Configuración no encontrada"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo obtener la configuración"})
		return
	}

	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msgInvalidBody})
		return
	}

	var cs audit.ChangeSet
	if req.CompanyName != nil {
		name := strings.TrimSpace(*req.CompanyName)
		if name == "" {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   msgValidation,
				Details: map[string]string{"company_name": "El nombre de la empresa es requerido"},
			})
			return
		}
		cs.Add("nombre de la empresa", cfg.CompanyName, name)
		cfg.CompanyName = name
	}
	if req.Phone != nil {
		cs.Add("teléfono", cfg.Phone, strings.TrimSpace(*req.Phone))
		cfg.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		cs.Add("correo", cfg.Email, strings.TrimSpace(*req.Email))
		cfg.Email = strings.TrimSpace(*req.Email)
	}
	if req.Address != nil {
		cs.Add("dirección", cfg.Address, strings.TrimSpace(*req.Address))
		cfg.Address = strings.TrimSpace(*req.Address)
	}
	if req.LogoURL != nil {
		cs.Add("logotipo", cfg.LogoURL, strings.TrimSpace(*req.LogoURL))
		cfg.LogoURL = strings.TrimSpace(*req.LogoURL)
	}
	if req.SplitPercentage != nil {
		if *req.SplitPercentage < 0 || *req.SplitPercentage > 100 {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   msgValidation,
				Details: map[string]string{"split_percentage": "El porcentaje de reparto debe estar entre 0 y 100"},
			})
			return
		}
		cs.Add("porcentaje de reparto", fmt.Sprintf("%d%%", cfg.SplitPercentage), fmt.Sprintf("%d%%", *req.SplitPercentage))
		cfg.SplitPercentage = *req.SplitPercentage
	}

	if cs.Empty() {
		writeJSON(w, http.StatusOK, cfg)
		return
	}

	if err := h.db.WithContext(r.Context()).Save(cfg).Error; err != nil {
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo actualizar la configuración"})
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: authID,
		Action:      models.ActionUpdate,
		EntityType:  models.EntitySettings,
		EntityID:    cfg.ID.String(),
		Description: fmt.Sprintf("Configuración actualizada: %s", cs.Describe()),
		OldValue:    cs.OldValues(),
		NewValue:    cs.NewValues(),
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, cfg)
}
