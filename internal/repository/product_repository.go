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

const productColumns = `id, name, price_cents, category, created_at`

// productRepository implements ProductRepository on PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// List sends the page query and its total count in one batch so both see
// the same filter arguments.
func (r *productRepository) List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error) {
	args := pgx.NamedArgs{
		"category": filter.Category,
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	}
	where := `WHERE @category = '' OR lower(category) = lower(@category)`

	batch := &pgx.Batch{}
	batch.Queue(`SELECT COUNT(*) FROM products `+where, args)
	batch.Queue(`SELECT `+productColumns+` FROM products `+where+`
		ORDER BY category, name, id
		LIMIT @limit OFFSET @offset`, args)

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	var total int
	if err := results.QueryRow().Scan(&total); err != nil {
		r.logger.Error().Err(err).Str("category", filter.Category).Msg("failed to count products")
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	rows, err := results.Query()
	if err != nil {
		r.logger.Error().Err(err).Str("category", filter.Category).Msg("failed to query products")
		return nil, 0, fmt.Errorf("failed to query products: %w", err)
	}
	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Product])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan product rows")
		return nil, 0, fmt.Errorf("failed to scan products: %w", err)
	}

	return products, total, nil
}

// Categories returns every category that has at least one product.
func (r *productRepository) Categories(ctx context.Context) ([]model.ProductCategory, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT category, COUNT(*) AS product_count
		FROM products
		GROUP BY category
		ORDER BY category
	`)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query product categories")
		return nil, fmt.Errorf("failed to query product categories: %w", err)
	}

	categories, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.ProductCategory])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan product categories")
		return nil, fmt.Errorf("failed to scan product categories: %w", err)
	}
	return categories, nil
}

// GetByID returns nil, nil when the product does not exist.
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	if err != nil {
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	p, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[model.Product])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to scan product")
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}
	return p, nil
}

// GetByIDs returns the products that exist among ids, ordered by name.
// Checkout snapshots names and prices from this result.
func (r *productRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1) ORDER BY name`, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}

	products, err := pgx.CollectRows(rows, pgx.RowToStructByName[model.Product])
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to scan product rows")
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}
	return products, nil
}
