package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jdramirez/servipro/internal/api/dto"
	"github.com/jdramirez/servipro/internal/api/handlers"
	"github.com/jdramirez/servipro/internal/api/middleware"
	"github.com/jdramirez/servipro/internal/auth"
	"github.com/jdramirez/servipro/internal/database/models"
	"github.com/jdramirez/servipro/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuthTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	authService := auth.NewService(tc.DB, tc.JWTService)
	handler := handlers.NewAuthHandler(authService, tc.Recorder)

	r := chi.NewRouter()
	r.Post("/api/v1/auth/login", handler.Login)
	r.Post("/api/v1/auth/logout", handler.Logout)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(tc.JWTService))
		r.Get("/api/v1/auth/me", handler.Me)
		r.Post("/api/v1/auth/change-password", handler.ChangePassword)
	})

	return r, tc
}

func TestAuthHandler_Login(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
	}{
		{
			name:       "valid credentials",
			body:       map[string]interface{}{"username": "miguel", "password": "testpassword123"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "username is case insensitive",
			body:       map[string]interface{}{"username": "MIGUEL", "password": "testpassword123"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "wrong password",
			body:       map[string]interface{}{"username": "miguel", "password": "incorrecta"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "unknown user",
			body:       map[string]interface{}{"username": "nadie", "password": "testpassword123"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "missing password",
			body:       map[string]interface{}{"username": "miguel"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", tt.body)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code, "Body: %s", rr.Body.String())

			if tt.wantStatus == http.StatusOK {
				var resp dto.AuthResponse
				testutil.ParseJSONResponse(t, rr, &resp)
				assert.NotEmpty(t, resp.Token)
				assert.Equal(t, "miguel", resp.User.Username)
			}
		})
	}
}

func TestAuthHandler_LoginInactiveUser(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	require.NoError(t, tc.DB.Model(&models.User{}).
		Where("username = ?", "raul").
		Update("is_active", false).Error)

	body := map[string]interface{}{"username": "raul", "password": "testpassword123"}
	req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAuthHandler_LoginAudited(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	body := map[string]interface{}{"username": "miguel", "password": "testpassword123"}
	req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var entry models.AuditLog
	require.NoError(t, tc.DB.Where("action = ?", models.ActionLogin).First(&entry).Error)
	assert.Contains(t, entry.Description, "miguel")
	assert.Equal(t, tc.Miguel.ID, entry.UserID)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	body := map[string]interface{}{
		"current_password": "testpassword123",
		"new_password":     "nueva-clave-larga",
	}
	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/auth/change-password", body, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, "Body: %s", rr.Body.String())

	// Old password no longer works, new one does.
	login := map[string]interface{}{"username": "miguel", "password": "testpassword123"}
	req = testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", login)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	login["password"] = "nueva-clave-larga"
	req = testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/login", login)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthHandler_ChangePasswordClearsFlag(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	require.NoError(t, tc.DB.Model(&models.User{}).
		Where("username = ?", "miguel").
		Update("must_change_password", true).Error)

	body := map[string]interface{}{
		"current_password": "testpassword123",
		"new_password":     "otra-clave-larga",
	}
	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/auth/change-password", body, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var user models.User
	require.NoError(t, tc.DB.First(&user, "username = ?", "miguel").Error)
	assert.False(t, user.MustChangePassword)
}

func TestAuthHandler_ChangePasswordValidation(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
	}{
		{
			name:       "wrong current password",
			body:       map[string]interface{}{"current_password": "equivocada", "new_password": "clave-suficiente"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "short new password",
			body:       map[string]interface{}{"current_password": "testpassword123", "new_password": "corta"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/auth/change-password", tt.body, tc.Token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)
			assert.Equal(t, tt.wantStatus, rr.Code, "Body: %s", rr.Body.String())
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/auth/me", nil, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var me dto.UserDTO
	testutil.ParseJSONResponse(t, rr, &me)
	assert.Equal(t, "miguel", me.Username)

	req = testutil.UnauthenticatedRequest(t, "GET", "/api/v1/auth/me", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthHandler_LogoutClearsCookie(t *testing.T) {
	router, tc := setupAuthTestRouter(t)
	defer tc.Cleanup()

	req := testutil.UnauthenticatedRequest(t, "POST", "/api/v1/auth/logout", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}
