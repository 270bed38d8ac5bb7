package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jdramirez/servipro/internal/api/handlers"
	"github.com/jdramirez/servipro/internal/api/middleware"
	"github.com/jdramirez/servipro/internal/database/models"
	"github.com/jdramirez/servipro/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAuditLogTestRouter(t *testing.T) (*chi.Mux, *testutil.TestSetup) {
	tc := testutil.NewTestContext(t)

	r := chi.NewRouter()
	r.Use(middleware.Auth(tc.JWTService))

	handler := handlers.NewAuditLogHandler(tc.DB)
	r.Get("/api/v1/audit-logs", handler.List)

	return r, tc
}

func seedAuditEntry(t *testing.T, tc *testutil.TestSetup, action models.AuditAction, entityType string, createdAt time.Time) {
	t.Helper()
	entry := models.AuditLog{
		UserID:      tc.Miguel.ID,
		Action:      action,
		EntityType:  entityType,
		Description: "entrada de prueba",
		CreatedAt:   createdAt,
	}
	require.NoError(t, tc.DB.Create(&entry).Error)
}

func TestAuditLogHandler_List(t *testing.T) {
	router, tc := setupAuditLogTestRouter(t)
	defer tc.Cleanup()

	now := time.Now()
	seedAuditEntry(t, tc, models.ActionCreate, models.EntityClient, now.Add(-48*time.Hour))
	seedAuditEntry(t, tc, models.ActionDelete, models.EntityExpense, now.Add(-24*time.Hour))
	seedAuditEntry(t, tc, models.ActionCreate, models.EntityExpense, now)

	t.Run("newest first", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/audit-logs", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var entries []models.AuditLog
		testutil.ParseJSONResponse(t, rr, &entries)
		require.Len(t, entries, 3)
		assert.True(t, entries[0].CreatedAt.After(entries[2].CreatedAt))
	})

	t.Run("filter by action", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/audit-logs?action=eliminar", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var entries []models.AuditLog
		testutil.ParseJSONResponse(t, rr, &entries)
		require.Len(t, entries, 1)
		assert.Equal(t, models.ActionDelete, entries[0].Action)
	})

	t.Run("filter by entity type", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/audit-logs?entity_type=gasto", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var entries []models.AuditLog
		testutil.ParseJSONResponse(t, rr, &entries)
		assert.Len(t, entries, 2)
	})

	t.Run("limit", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/audit-logs?limit=2", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)

		var entries []models.AuditLog
		testutil.ParseJSONResponse(t, rr, &entries)
		assert.Len(t, entries, 2)
	})

	t.Run("invalid date rejected", func(t *testing.T) {
		req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/audit-logs?start_date=ayer", nil, tc.Token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuditLogHandler_EndDateInclusive(t *testing.T) {
	router, tc := setupAuditLogTestRouter(t)
	defer tc.Cleanup()

	day := time.Date(2026, 8, 10, 15, 30, 0, 0, time.UTC)
	seedAuditEntry(t, tc, models.ActionCreate, models.EntityClient, day)
	seedAuditEntry(t, tc, models.ActionCreate, models.EntityClient, day.AddDate(0, 0, 3))

	req := testutil.AuthenticatedRequest(t, "GET", "/api/v1/audit-logs?start_date=2026-08-10&end_date=2026-08-10", nil, tc.Token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	// An entry made during the end day itself is included.
	var entries []models.AuditLog
	testutil.ParseJSONResponse(t, rr, &entries)
	assert.Len(t, entries, 1)
}
