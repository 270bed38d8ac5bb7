package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/jdramirez/servipro/internal/api/handlers"
	"github.com/jdramirez/servipro/internal/api/middleware"
	"github.com/jdramirez/servipro/internal/database/models"
	"github.com/jdramirez/servipro/internal/settings"
	"github.com/jdramirez/servipro/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCashClosingTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	r := chi.NewRouter()
	r.Use(middleware.Auth(tc.JWTService))

	bootstrap := settings.NewBootstrapper(tc.DB)
	handler := handlers.NewCashClosingHandler(tc.DB, tc.Mapper, tc.Scopes, tc.Recorder, bootstrap)
	r.Route("/api/v1/cash-closings", func(r chi.Router) {
		r.Get("/", handler.List)
		r.Post("/", handler.Create)
		r.Get("/{id}", handler.Get)
		r.Delete("/{id}", handler.Delete)
	})

	return r, tc
}

func TestCashClosingHandler_Create(t *testing.T) {
	router, tc := setupCashClosingTestRouter(t)
	defer tc.Cleanup()

	tests := []struct {
		name       string
		body       map[string]interface{}
		wantStatus int
	}{
		{
			name: "create closing",
			body: map[string]interface{}{
				"closing_date":   "2026-08-29",
				"total_income":   "15000.00",
				"total_expenses": "6300.00",
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "missing date",
			body: map[string]interface{}{
				"total_income": "1000",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "negative income",
			body: map[string]interface{}{
				"closing_date": "2026-08-29",
				"total_income": "-1",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "split out of range",
			body: map[string]interface{}{
				"closing_date":     "2026-08-29",
				"total_income":     "1000",
				"split_percentage": 140,
			},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/cash-closings", tt.body, tc.Token)
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code, "Body: %s", rr.Body.String())
		})
	}
}

func TestCashClosingHandler_NetComputedServerSide(t *testing.T) {
	router, tc := setupCashClosingTestRouter(t)
	defer tc.Cleanup()

	body := map[string]interface{}{
		"closing_date":   "2026-08-29",
		"total_income":   "10000.00",
		"total_expenses": "4250.50",
		"net_amount":     "99999.00", // ignored
	}
	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/cash-closings", body, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created models.CashClosing
	testutil.ParseJSONResponse(t, rr, &created)
	assert.True(t, created.NetAmount.Equal(decimal.RequireFromString("5749.50")), "net: %s", created.NetAmount)
	assert.Equal(t, settings.DefaultSplitPercentage, created.SplitPercentage)
}

func TestCashClosingHandler_AuditAlwaysMarked(t *testing.T) {
	router, tc := setupCashClosingTestRouter(t)
	defer tc.Cleanup()

	body := map[string]interface{}{
		"closing_date":   "2026-08-29",
		"total_income":   "100.00",
		"total_expenses": "20.00",
	}
	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/cash-closings", body, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created models.CashClosing
	testutil.ParseJSONResponse(t, rr, &created)

	req = testutil.AuthenticatedRequest(t, "DELETE", "/api/v1/cash-closings/"+created.ID.String(), nil, tc.Token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var entries []models.AuditLog
	require.NoError(t, tc.DB.Where("entity_type = ?", models.EntityCashClosing).Find(&entries).Error)
	require.Len(t, entries, 2)
	for _, entry := range entries {
		// Every closing audit entry carries the marker, amount regardless.
		assert.True(t, strings.HasPrefix(entry.Description, "⚠️"), "description: %s", entry.Description)
	}
}

func TestCashClosingHandler_SplitFromSettings(t *testing.T) {
	router, tc := setupCashClosingTestRouter(t)
	defer tc.Cleanup()

	cfg := settings.Defaults(tc.Miguel.ID)
	cfg.SplitPercentage = 60
	require.NoError(t, tc.DB.Create(&cfg).Error)

	body := map[string]interface{}{
		"closing_date": "2026-08-30",
		"total_income": "500",
	}
	req := testutil.AuthenticatedRequest(t, "POST", "/api/v1/cash-closings", body, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code)

	var created models.CashClosing
	testutil.ParseJSONResponse(t, rr, &created)
	assert.Equal(t, 60, created.SplitPercentage)
}
