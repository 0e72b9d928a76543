package repository

import (
	"context"
	"errors"
	"time"

	"repairshop/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrDuplicateOrderNumber is returned by CreateOrder when the generated
// order number is already taken.
var ErrDuplicateOrderNumber = errors.New("order number already exists")

// ProductRepository reads the shop catalogue.
type ProductRepository interface {
	// List returns one page of products matching filter and the total
	// number of matches.
	List(ctx context.Context, filter model.ProductFilter) ([]model.Product, int, error)

	// Categories returns each category with its product count.
	Categories(ctx context.Context) ([]model.ProductCategory, error)

	// GetByID returns nil, nil when the product does not exist.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs returns the subset of ids that exist.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)
}

// BookingRepository defines the interface for repair booking persistence.
// Capacity is only enforced by CreateWithCapacity; the count methods are
// for display and must not be used to guard writes.
type BookingRepository interface {
	// CountBySlot returns occupying bookings per slot for a location and date.
	CountBySlot(ctx context.Context, locationSlug string, date time.Time) (map[string]int, error)

	// CountByDate returns occupying bookings per date (YYYY-MM-DD) in [from, to).
	CountByDate(ctx context.Context, locationSlug string, from, to time.Time) (map[string]int, error)

	// CreateWithCapacity inserts the booking unless the slot already holds
	// capacity occupying bookings, in which case it returns model.ErrSlotFull.
	// Concurrent calls for the same slot are serialised.
	CreateWithCapacity(ctx context.Context, booking *model.Booking, locationName string, capacity int) error

	// GetByID retrieves a booking. It returns nil when none exists.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)

	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// LockByID loads a booking with a row lock held until tx ends.
	LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Booking, error)

	// UpdateStatus writes a booking's status within tx.
	UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.BookingStatus, at time.Time) error
}

// StoreRepository persists the single row of shop switches.
type StoreRepository interface {
	// Get returns the saved settings, or nil when none were ever saved.
	Get(ctx context.Context) (*model.StoreSettings, error)

	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// Lock loads the settings with a row lock held until tx ends. It
	// returns nil when no row exists.
	Lock(ctx context.Context, tx pgx.Tx) (*model.StoreSettings, error)

	// Save upserts the settings within tx.
	Save(ctx context.Context, tx pgx.Tx, settings *model.StoreSettings) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts multiple order items within the provided transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// GetByNumber retrieves an order by its order number along with its items.
	GetByNumber(ctx context.Context, orderNumber string) (*model.Order, []model.OrderItem, error)

	// FindIDByPaymentIntent resolves the order carrying a gateway payment intent.
	FindIDByPaymentIntent(ctx context.Context, paymentIntentID string) (uuid.UUID, bool, error)

	// SetCheckoutSession stores the gateway checkout session on an order.
	SetCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error

	// LockByID loads an order with a row lock held until tx ends.
	LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error)

	// SaveStatus writes status, payment reference and lifecycle timestamps.
	SaveStatus(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// AppendStatusLog records an applied transition.
	AppendStatusLog(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, from, to model.OrderStatus, trigger string) error

	// MarkEventProcessed records a gateway event id. It returns false when
	// the id was already recorded.
	MarkEventProcessed(ctx context.Context, tx pgx.Tx, eventID, eventType string, orderID uuid.UUID) (bool, error)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
