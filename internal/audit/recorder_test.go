package audit_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/jdramirez/servipro/internal/audit"
	"github.com/jdramirez/servipro/internal/database/models"
	"github.com/jdramirez/servipro/internal/identity"
	"github.com/jdramirez/servipro/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

func newTestRecorder(t *testing.T, db *gorm.DB, buf *bytes.Buffer) *audit.Recorder {
	t.Helper()
	mapper := identity.NewMapper(db, nil, nil, []string{"miguel", "raul"}, testLogger(buf))
	return audit.NewRecorder(db, mapper, nil, testLogger(buf))
}

func TestRecorder_WritesEntry(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	miguel := testutil.CreateTestUser(t, db, "miguel")

	var buf bytes.Buffer
	recorder := newTestRecorder(t, db, &buf)

	recorder.Record(context.Background(), audit.Entry{
		ActorAuthID: "miguel",
		Action:      models.ActionCreate,
		EntityType:  models.EntityClient,
		EntityID:    "abc",
		Description: "Cliente creado: 'Prueba'",
		NewValue:    map[string]string{"nombre": "Prueba"},
		IPAddress:   "203.0.113.7",
	})

	var entry models.AuditLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, miguel.ID, entry.UserID)
	assert.Equal(t, models.ActionCreate, entry.Action)
	assert.Contains(t, entry.NewValue, "Prueba")
	assert.Equal(t, "203.0.113.7", entry.IPAddress)
	assert.Empty(t, entry.OldValue)
}

func TestRecorder_DropsEntryForUnknownActor(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	var buf bytes.Buffer
	recorder := newTestRecorder(t, db, &buf)

	recorder.Record(context.Background(), audit.Entry{
		ActorAuthID: "desconocido",
		Action:      models.ActionCreate,
		EntityType:  models.EntityClient,
		Description: "no debería persistirse",
	})

	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	assert.Contains(t, buf.String(), "audit entry dropped")
}

func TestRecorder_NoStoreLogsInstead(t *testing.T) {
	var buf bytes.Buffer
	mapper := identity.NewMapper(nil, nil, nil, nil, testLogger(&buf))
	recorder := audit.NewRecorder(nil, mapper, nil, testLogger(&buf))

	recorder.Record(context.Background(), audit.Entry{
		ActorAuthID: "miguel",
		Action:      models.ActionDelete,
		EntityType:  models.EntityExpense,
		Description: "Gasto eliminado",
	})

	assert.Contains(t, buf.String(), "Gasto eliminado")
}

func TestRecorder_StorageFailureDoesNotPropagate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)
	testutil.CreateTestUser(t, db, "miguel")

	var buf bytes.Buffer
	recorder := newTestRecorder(t, db, &buf)

	// Breaking the audit table must not turn Record into a failure.
	require.NoError(t, db.Migrator().DropTable(&models.AuditLog{}))

	assert.NotPanics(t, func() {
		recorder.Record(context.Background(), audit.Entry{
			ActorAuthID: "miguel",
			Action:      models.ActionCreate,
			EntityType:  models.EntityClient,
			Description: "Cliente creado",
		})
	})
	assert.Contains(t, buf.String(), "failed to persist audit entry")
}
