package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jdramirez/servipro/internal/api/dto"
	"github.com/jdramirez/servipro/internal/api/middleware"
	"github.com/jdramirez/servipro/internal/audit"
	"github.com/jdramirez/servipro/internal/auth"
	"github.com/jdramirez/servipro/internal/database/models"
)

type AuthHandler struct {
	authService *auth.Service
	recorder    *audit.Recorder
}

func NewAuthHandler(authService *auth.Service, recorder *audit.Recorder) *AuthHandler {
	return &AuthHandler{authService: authService, recorder: recorder}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msgInvalidBody})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msgValidation, Details: errs})
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Username: req.Username,
		Password: req.Password,
	})

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Usuario o contraseña incorrectos"})
		case errors.Is(err, auth.ErrInactiveUser):
			writeJSON(w, http.StatusForbidden, dto.ErrorResponse{Error: "La cuenta está desactivada"})
		case errors.Is(err, auth.ErrStorageUnavailable):
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: msgNoStore})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo iniciar sesión"})
		}
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: resp.User.Username,
		Action:      models.ActionLogin,
		EntityType:  models.EntityUser,
		EntityID:    resp.User.ID.String(),
		Description: fmt.Sprintf("Inicio de sesión: '%s'", resp.User.Username),
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    resp.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400, // 24 hours
	})

	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token: resp.Token,
		User: dto.UserDTO{
			ID:                 resp.User.ID.String(),
			Username:           resp.User.Username,
			FullName:           resp.User.FullName,
			MustChangePassword: resp.User.MustChangePassword,
		},
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Sesión cerrada"})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	username := middleware.GetUsername(r.Context())
	if username == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}

	var req dto.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msgInvalidBody})
		return
	}

	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: msgValidation, Details: errs})
		return
	}

	err := h.authService.ChangePassword(r.Context(), auth.ChangePasswordInput{
		Username:        username,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})

	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "La contraseña actual es incorrecta"})
		case errors.Is(err, auth.ErrUserNotFound):
			writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Usuario no encontrado"})
		case errors.Is(err, auth.ErrStorageUnavailable):
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: msgNoStore})
		default:
			writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{Error: "No se pudo cambiar la contraseña"})
		}
		return
	}

	h.recorder.Record(r.Context(), audit.Entry{
		ActorAuthID: middleware.GetAuthUserID(r.Context()),
		Action:      models.ActionPasswordChange,
		EntityType:  models.EntityUser,
		Description: fmt.Sprintf("Contraseña actualizada para '%s'", username),
		IPAddress:   middleware.ClientIP(r),
		UserAgent:   r.UserAgent(),
	})

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Message: "Contraseña actualizada"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	username := middleware.GetUsername(r.Context())
	if username == "" {
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: msgUnauthorized})
		return
	}

	user, err := h.authService.GetUserByUsername(r.Context(), username)
	if err != nil {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Error: "Usuario no encontrado"})
		return
	}

	writeJSON(w, http.StatusOK, dto.UserDTO{
		ID:                 user.ID.String(),
		Username:           user.Username,
		FullName:           user.FullName,
		MustChangePassword: user.MustChangePassword,
	})
}
