package repository

import (
	"context"
	"testing"
	"time"

	"repairshop/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewStoreRepository(pool, zerolog.Nop())
	ctx := context.Background()

	t.Run("Migration seeds the default row", func(t *testing.T) {
		s, err := repo.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, s)
		assert.Equal(t, model.StoreModeAuto, s.Mode)
		assert.True(t, s.IsOpen)
		assert.True(t, s.ShopEnabled)
		assert.Nil(t, s.ClosedMessage)
	})

	t.Run("Save under lock", func(t *testing.T) {
		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		locked, err := repo.Lock(ctx, tx)
		require.NoError(t, err)
		require.NotNil(t, locked)

		msg := "Closed for inventory"
		at := time.Date(2030, 3, 4, 8, 0, 0, 0, time.UTC)
		locked.Mode = model.StoreModeManual
		locked.IsOpen = false
		locked.ClosedMessage = &msg
		locked.ShopEnabled = false
		locked.UpdatedAt = at
		require.NoError(t, repo.Save(ctx, tx, locked))
		require.NoError(t, tx.Commit(ctx))

		got, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.StoreModeManual, got.Mode)
		assert.False(t, got.IsOpen)
		require.NotNil(t, got.ClosedMessage)
		assert.Equal(t, msg, *got.ClosedMessage)
		assert.False(t, got.ShopEnabled)
		assert.True(t, at.Equal(got.UpdatedAt))
	})

	t.Run("Missing row", func(t *testing.T) {
		_, err := pool.Exec(ctx, `DELETE FROM store_settings`)
		require.NoError(t, err)

		s, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, s)
	})

	t.Run("Mode constraint", func(t *testing.T) {
		tx, err := repo.BeginTx(ctx)
		require.NoError(t, err)
		defer func() { _ = tx.Rollback(ctx) }()

		s := model.DefaultStoreSettings()
		s.Mode = "holiday"
		s.UpdatedAt = time.Now()
		assert.Error(t, repo.Save(ctx, tx, &s))
	})
}
