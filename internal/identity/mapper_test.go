package identity_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/jdramirez/servipro/internal/identity"
	"github.com/jdramirez/servipro/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestMapper_ResolveStorageUserID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	miguel := testutil.CreateTestUser(t, db, "miguel")
	testutil.CreateTestUser(t, db, "raul")

	aliases := map[string]string{"auth0|m-123": "miguel"}
	mapper := identity.NewMapper(db, nil, aliases, []string{"miguel", "raul"}, testLogger())
	ctx := context.Background()

	t.Run("alias maps to storage id", func(t *testing.T) {
		id, err := mapper.ResolveStorageUserID(ctx, "auth0|m-123")
		require.NoError(t, err)
		assert.Equal(t, miguel.ID, id)
	})

	t.Run("bare username resolves", func(t *testing.T) {
		id, err := mapper.ResolveStorageUserID(ctx, "miguel")
		require.NoError(t, err)
		assert.Equal(t, miguel.ID, id)
	})

	t.Run("username lookup is case insensitive", func(t *testing.T) {
		id, err := mapper.ResolveStorageUserID(ctx, "  MIGUEL ")
		require.NoError(t, err)
		assert.Equal(t, miguel.ID, id)
	})

	t.Run("unknown username is a hard error", func(t *testing.T) {
		_, err := mapper.ResolveStorageUserID(ctx, "nadie")
		assert.ErrorIs(t, err, identity.ErrUserNotFound)
	})

	t.Run("unmapped uuid passes through", func(t *testing.T) {
		raw := uuid.New()
		id, err := mapper.ResolveStorageUserID(ctx, raw.String())
		require.NoError(t, err)
		assert.Equal(t, raw, id)
	})
}

func TestMapper_ResolveStorageUserID_NoStore(t *testing.T) {
	mapper := identity.NewMapper(nil, nil, nil, nil, testLogger())
	ctx := context.Background()

	t.Run("uuid auth id passes through", func(t *testing.T) {
		raw := uuid.New()
		id, err := mapper.ResolveStorageUserID(ctx, raw.String())
		require.NoError(t, err)
		assert.Equal(t, raw, id)
	})

	t.Run("non-uuid auth id maps deterministically", func(t *testing.T) {
		first, err := mapper.ResolveStorageUserID(ctx, "miguel")
		require.NoError(t, err)
		second, err := mapper.ResolveStorageUserID(ctx, "miguel")
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.NotEqual(t, uuid.Nil, first)

		other, err := mapper.ResolveStorageUserID(ctx, "raul")
		require.NoError(t, err)
		assert.NotEqual(t, first, other)
	})
}

func TestMapper_ResolvePartnerGroupIDs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	miguel := testutil.CreateTestUser(t, db, "miguel")
	raul := testutil.CreateTestUser(t, db, "raul")
	testutil.CreateTestUser(t, db, "contador")

	ctx := context.Background()

	t.Run("resolves only configured partners", func(t *testing.T) {
		mapper := identity.NewMapper(db, nil, nil, []string{"miguel", "raul"}, testLogger())
		ids := mapper.ResolvePartnerGroupIDs(ctx)
		assert.ElementsMatch(t, []uuid.UUID{miguel.ID, raul.ID}, ids)
	})

	t.Run("unresolvable partner is skipped", func(t *testing.T) {
		mapper := identity.NewMapper(db, nil, nil, []string{"miguel", "fantasma"}, testLogger())
		ids := mapper.ResolvePartnerGroupIDs(ctx)
		assert.Equal(t, []uuid.UUID{miguel.ID}, ids)
	})

	t.Run("empty without store", func(t *testing.T) {
		mapper := identity.NewMapper(nil, nil, nil, []string{"miguel"}, testLogger())
		assert.Empty(t, mapper.ResolvePartnerGroupIDs(ctx))
	})

	t.Run("empty without configured partners", func(t *testing.T) {
		mapper := identity.NewMapper(db, nil, nil, nil, testLogger())
		assert.Empty(t, mapper.ResolvePartnerGroupIDs(ctx))
	})
}
