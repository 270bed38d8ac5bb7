package ownership_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jdramirez/servipro/internal/database/models"
	"github.com/jdramirez/servipro/internal/ownership"
	"github.com/jdramirez/servipro/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticPartners struct {
	ids []uuid.UUID
}

func (s staticPartners) ResolvePartnerGroupIDs(ctx context.Context) []uuid.UUID {
	return s.ids
}

func TestVisibilityOf(t *testing.T) {
	tests := []struct {
		entityType string
		want       ownership.Visibility
	}{
		{models.EntityClient, ownership.Global},
		{models.EntityQuote, ownership.Global},
		{models.EntityEmployee, ownership.PartnerShared},
		{models.EntityService, ownership.PartnerShared},
		{models.EntityExpense, ownership.PartnerShared},
		{models.EntityCashClosing, ownership.PartnerShared},
		{models.EntitySettings, ownership.PartnerShared},
		{"tipo_desconocido", ownership.OwnerOnly},
		{"", ownership.OwnerOnly},
	}

	for _, tt := range tests {
		t.Run(tt.entityType, func(t *testing.T) {
			assert.Equal(t, tt.want, ownership.VisibilityOf(tt.entityType))
		})
	}
}

func TestResolver_Scope(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	miguel := testutil.CreateTestUser(t, db, "miguel")
	raul := testutil.CreateTestUser(t, db, "raul")
	outsider := testutil.CreateTestUser(t, db, "contador")
	ctx := context.Background()

	for _, owner := range []uuid.UUID{miguel.ID, raul.ID, outsider.ID} {
		expense := models.Expense{UserID: owner, Description: "gasto", Category: "varios", Method: models.MethodCash}
		require.NoError(t, db.Create(&expense).Error)

		client := models.Client{UserID: owner, Name: "cliente"}
		require.NoError(t, db.Create(&client).Error)
	}

	t.Run("partner shared scope covers the group", func(t *testing.T) {
		resolver := ownership.NewResolver(staticPartners{ids: []uuid.UUID{miguel.ID, raul.ID}})

		var expenses []models.Expense
		require.NoError(t, db.Scopes(resolver.Scope(ctx, models.EntityExpense, miguel.ID)).Find(&expenses).Error)
		assert.Len(t, expenses, 2)
	})

	t.Run("empty partner group matches nothing", func(t *testing.T) {
		resolver := ownership.NewResolver(staticPartners{})

		var expenses []models.Expense
		require.NoError(t, db.Scopes(resolver.Scope(ctx, models.EntityExpense, miguel.ID)).Find(&expenses).Error)
		assert.Empty(t, expenses)
	})

	t.Run("global scope sees everything", func(t *testing.T) {
		resolver := ownership.NewResolver(staticPartners{})

		var clients []models.Client
		require.NoError(t, db.Scopes(resolver.Scope(ctx, models.EntityClient, miguel.ID)).Find(&clients).Error)
		assert.Len(t, clients, 3)
	})

	t.Run("unknown entity restricted to caller", func(t *testing.T) {
		resolver := ownership.NewResolver(staticPartners{ids: []uuid.UUID{miguel.ID, raul.ID}})

		var expenses []models.Expense
		require.NoError(t, db.Model(&models.Expense{}).
			Scopes(resolver.Scope(ctx, "tipo_desconocido", outsider.ID)).
			Find(&expenses).Error)
		require.Len(t, expenses, 1)
		assert.Equal(t, outsider.ID, expenses[0].UserID)
	})
}
