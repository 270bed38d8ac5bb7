package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jdramirez/servipro/internal/api/handlers"
	"github.com/jdramirez/servipro/internal/api/middleware"
	"github.com/jdramirez/servipro/internal/database/models"
	"github.com/jdramirez/servipro/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServiceTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	r := chi.NewRouter()
	r.Use(middleware.Auth(tc.JWTService))

	handler := handlers.NewServiceHandler(tc.DB, tc.Mapper, tc.Scopes, tc.Recorder)
	r.Route("/api/v1/services", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Get("/{id}", handler.Get)
		r.Put("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
	})

	return r, tc
}

func TestServiceHandler_Create(t *testing.T) {
	router, tc := setupServiceTestRouter(t)
	defer tc.Cleanup()

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
	}{
		{
			name: "create service",
			body: map[string]interface{}{
				"name":       "Impermeabilización",
				"unit":       "m2",
				"unit_price": "120.50",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "default unit",
			body: map[string]interface{}{
				"name":       "Visita técnica",
				"unit_price": "300",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "missing name",
			body: map[string]interface{}{
				"unit_price": "100",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "negative price",
			body: map[string]interface{}{
				"name":       "Servicio raro",
				"unit_price": "-5",
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/services", tt.body, tc.Token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code, "Body: %s", rr.Body.String())
		})
	}
}

func TestServiceHandler_DefaultUnitApplied(t *testing.T) {
	router, tc := setupServiceTestRouter(t)
	defer tc.Cleanup()

	body := map[string]interface{}{"name": "Mano de obra", "unit_price": "250"}
	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/services", body, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created models.Service
	testutil.ParseJSONResponse(t, rr, &created)
	assert.Equal(t, "servicio", created.Unit)
}

func TestServiceHandler_DeleteAudits(t *testing.T) {
	router, tc := setupServiceTestRouter(t)
	defer tc.Cleanup()

	body := map[string]interface{}{"name": "Servicio Temporal", "unit_price": "80"}
	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/services", body, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created models.Service
	testutil.ParseJSONResponse(t, rr, &created)

	req = testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/services/"+created.ID.String(), nil, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var entries []models.AuditLog
	require.NoError(t, tc.DB.Where("action = ?", models.ActionDelete).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Description, "Servicio Temporal")
	assert.NotEmpty(t, entries[0].OldValue)
}
