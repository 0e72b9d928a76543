package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"repairshop/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

const orderColumns = `
	id, order_number, user_id,
	customer_name, customer_email, customer_phone,
	fulfillment_type, location_slug, shipping_address,
	subtotal_amount, shipping_cost, total_amount, currency,
	checkout_session_id, payment_intent_id, status,
	paid_at, fulfilled_at, shipped_at, cancellation_requested_at,
	created_at, updated_at
`

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
// A taken order number yields ErrDuplicateOrderNumber.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, order_number, user_id,
			customer_name, customer_email, customer_phone,
			fulfillment_type, location_slug, shipping_address,
			subtotal_amount, shipping_cost, total_amount, currency,
			status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	address, err := marshalAddress(order.ShippingAddress)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, query,
		order.ID, order.OrderNumber, order.UserID,
		order.Customer.Name, order.Customer.Email, nullIfEmpty(order.Customer.Phone),
		order.FulfillmentType, order.LocationSlug, address,
		order.SubtotalAmount, order.ShippingCost, order.TotalAmount, order.Currency,
		order.Status, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			r.logger.Debug().Str("order_number", order.OrderNumber).Msg("order number collision")
			return ErrDuplicateOrderNumber
		}
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Msg("order created successfully")

	return nil
}

// CreateOrderItems inserts multiple order items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, product_name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, nullIfEmpty(item.ProductID), item.ProductName, item.Quantity, item.UnitPrice)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		_, err := results.Exec()
		if err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
// It returns nil values when the order does not exist.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetByNumber retrieves an order by its order number along with its items.
func (r *orderRepository) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, []model.OrderItem, error) {
	return r.getOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber)
}

func (r *orderRepository) getOne(ctx context.Context, query string, arg any) (*model.Order, []model.OrderItem, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Interface("key", arg).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Interface("key", arg).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	items, err := r.items(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

func (r *orderRepository) items(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error) {
	itemsQuery := `
		SELECT id, order_id, COALESCE(product_id, ''), product_name, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_name, id
	`

	rows, err := r.pool.Query(ctx, itemsQuery, orderID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", orderID.String()).
			Msg("failed to query order items")
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.ProductName, &item.Quantity, &item.UnitPrice)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// FindIDByPaymentIntent resolves the order carrying a gateway payment intent.
func (r *orderRepository) FindIDByPaymentIntent(ctx context.Context, paymentIntentID string) (uuid.UUID, bool, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM orders WHERE payment_intent_id = $1 ORDER BY created_at DESC LIMIT 1
	`, paymentIntentID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		r.logger.Error().Err(err).Str("payment_intent", paymentIntentID).Msg("failed to resolve payment intent")
		return uuid.Nil, false, fmt.Errorf("failed to resolve payment intent: %w", err)
	}
	return id, true, nil
}

// SetCheckoutSession stores the gateway checkout session on an order.
func (r *orderRepository) SetCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE orders SET checkout_session_id = $2, updated_at = NOW() WHERE id = $1
	`, id, sessionID)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to store checkout session")
		return fmt.Errorf("failed to store checkout session: %w", err)
	}
	return nil
}

// LockByID loads an order with a row lock held until tx ends.
func (r *orderRepository) LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	order, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to lock order")
		return nil, fmt.Errorf("failed to lock order: %w", err)
	}
	return order, nil
}

// SaveStatus writes status, payment reference and lifecycle timestamps.
func (r *orderRepository) SaveStatus(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	_, err := tx.Exec(ctx, `
		UPDATE orders
		SET status = $2,
		    payment_intent_id = $3,
		    paid_at = $4,
		    fulfilled_at = $5,
		    shipped_at = $6,
		    cancellation_requested_at = $7,
		    updated_at = $8
		WHERE id = $1
	`,
		order.ID, order.Status, order.PaymentIntentID,
		order.PaidAt, order.FulfilledAt, order.ShippedAt, order.CancellationRequestedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to save order status")
		return fmt.Errorf("failed to save order status: %w", err)
	}
	return nil
}

// AppendStatusLog records an applied transition.
func (r *orderRepository) AppendStatusLog(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, from, to model.OrderStatus, trigger string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, from_status, to_status, triggered_by)
		VALUES ($1, $2, $3, $4)
	`, orderID, from, to, trigger)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("failed to append status log")
		return fmt.Errorf("failed to append status log: %w", err)
	}
	return nil
}

// MarkEventProcessed records a gateway event id. It returns false when the
// id was already recorded.
func (r *orderRepository) MarkEventProcessed(ctx context.Context, tx pgx.Tx, eventID, eventType string, orderID uuid.UUID) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO processed_gateway_events (event_id, event_type, order_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType, orderID)
	if err != nil {
		r.logger.Error().Err(err).Str("event_id", eventID).Msg("failed to record gateway event")
		return false, fmt.Errorf("failed to record gateway event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	var phone *string
	var address []byte
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID,
		&o.Customer.Name, &o.Customer.Email, &phone,
		&o.FulfillmentType, &o.LocationSlug, &address,
		&o.SubtotalAmount, &o.ShippingCost, &o.TotalAmount, &o.Currency,
		&o.CheckoutSessionID, &o.PaymentIntentID, &o.Status,
		&o.PaidAt, &o.FulfilledAt, &o.ShippedAt, &o.CancellationRequestedAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if phone != nil {
		o.Customer.Phone = *phone
	}
	if len(address) > 0 {
		var a model.Address
		if err := json.Unmarshal(address, &a); err != nil {
			return nil, fmt.Errorf("failed to decode shipping address: %w", err)
		}
		o.ShippingAddress = &a
	}
	return &o, nil
}

func marshalAddress(a *model.Address) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to encode shipping address: %w", err)
	}
	return b, nil
}
