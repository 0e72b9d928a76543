package repository

import (
	"context"
	"errors"
	"fmt"

	"repairshop/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const (
	storeSettingsID      = 1
	storeSettingsColumns = `mode, is_open, closed_message, shop_enabled, updated_at`
)

// storeRepository implements StoreRepository on the single store_settings row.
type storeRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewStoreRepository creates a new PostgreSQL-backed store settings repository.
func NewStoreRepository(pool *pgxpool.Pool, logger zerolog.Logger) StoreRepository {
	return &storeRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "store").Logger(),
	}
}

func (r *storeRepository) Get(ctx context.Context) (*model.StoreSettings, error) {
	return r.get(ctx, r.pool, `SELECT `+storeSettingsColumns+` FROM store_settings WHERE id = $1`)
}

func (r *storeRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *storeRepository) Lock(ctx context.Context, tx pgx.Tx) (*model.StoreSettings, error) {
	return r.get(ctx, tx, `SELECT `+storeSettingsColumns+` FROM store_settings WHERE id = $1 FOR UPDATE`)
}

func (r *storeRepository) Save(ctx context.Context, tx pgx.Tx, s *model.StoreSettings) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO store_settings (id, mode, is_open, closed_message, shop_enabled, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			mode           = EXCLUDED.mode,
			is_open        = EXCLUDED.is_open,
			closed_message = EXCLUDED.closed_message,
			shop_enabled   = EXCLUDED.shop_enabled,
			updated_at     = EXCLUDED.updated_at
	`, storeSettingsID, s.Mode, s.IsOpen, s.ClosedMessage, s.ShopEnabled, s.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to save store settings")
		return fmt.Errorf("failed to save store settings: %w", err)
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *storeRepository) get(ctx context.Context, q querier, sql string) (*model.StoreSettings, error) {
	rows, err := q.Query(ctx, sql, storeSettingsID)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query store settings")
		return nil, fmt.Errorf("failed to query store settings: %w", err)
	}

	s, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.StoreSettings])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Msg("failed to scan store settings")
		return nil, fmt.Errorf("failed to scan store settings: %w", err)
	}
	return s, nil
}
