package service

import (
	"context"
	"testing"
	"time"

	"repairshop/internal/catalog"
	"repairshop/internal/model"
	"repairshop/internal/payment"
	"repairshop/internal/schedule"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	// Return a MockTx interface value, not a pointer
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	args := m.Called(ctx, tx, items)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Order), args.Get(1).([]model.OrderItem), args.Error(2)
}

func (m *MockOrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*model.Order, []model.OrderItem, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Order), args.Get(1).([]model.OrderItem), args.Error(2)
}

func (m *MockOrderRepository) FindIDByPaymentIntent(ctx context.Context, paymentIntentID string) (uuid.UUID, bool, error) {
	args := m.Called(ctx, paymentIntentID)
	return args.Get(0).(uuid.UUID), args.Bool(1), args.Error(2)
}

func (m *MockOrderRepository) SetCheckoutSession(ctx context.Context, id uuid.UUID, sessionID string) error {
	args := m.Called(ctx, id, sessionID)
	return args.Error(0)
}

func (m *MockOrderRepository) LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Order, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Order), args.Error(1)
}

func (m *MockOrderRepository) SaveStatus(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	args := m.Called(ctx, tx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) AppendStatusLog(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, from, to model.OrderStatus, trigger string) error {
	args := m.Called(ctx, tx, orderID, from, to, trigger)
	return args.Error(0)
}

func (m *MockOrderRepository) MarkEventProcessed(ctx context.Context, tx pgx.Tx, eventID, eventType string, orderID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tx, eventID, eventType, orderID)
	return args.Bool(0), args.Error(1)
}

// MockBookingRepository is a mock implementation of BookingRepository.
type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) CountBySlot(ctx context.Context, locationSlug string, date time.Time) (map[string]int, error) {
	args := m.Called(ctx, locationSlug, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockBookingRepository) CountByDate(ctx context.Context, locationSlug string, from, to time.Time) (map[string]int, error) {
	args := m.Called(ctx, locationSlug, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]int), args.Error(1)
}

func (m *MockBookingRepository) CreateWithCapacity(ctx context.Context, booking *model.Booking, locationName string, capacity int) error {
	args := m.Called(ctx, booking, locationName, capacity)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookingRepository) LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Booking, error) {
	args := m.Called(ctx, tx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *MockBookingRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.BookingStatus, at time.Time) error {
	args := m.Called(ctx, tx, id, status, at)
	return args.Error(0)
}

// MockGateway is a mock implementation of payment.Gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.CheckoutSession), args.Error(1)
}

func (m *MockGateway) ParseEvent(payload []byte, signatureHeader string) (*payment.Event, error) {
	args := m.Called(payload, signatureHeader)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Event), args.Error(1)
}

func (m *MockGateway) Refund(ctx context.Context, paymentIntentID, idempotencyKey string) error {
	args := m.Called(ctx, paymentIntentID, idempotencyKey)
	return args.Error(0)
}

// MockNotifier is a mock implementation of Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) OrderConfirmation(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	args := m.Called(ctx, order, items)
	return args.Error(0)
}

func (m *MockNotifier) BookingConfirmation(ctx context.Context, booking *model.Booking, locationName string) error {
	args := m.Called(ctx, booking, locationName)
	return args.Error(0)
}

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx interface - these are not used in our tests
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

const testLocation = "berlin-mitte"

// fixedNow is a Friday; 2030-03-04 is the following Monday.
var fixedNow = time.Date(2030, 3, 1, 10, 0, 0, 0, time.UTC)

// testCatalog has one location open Mondays 09:00-12:00, Wednesdays
// 09:00-11:00 plus 13:00-15:00 and Thursdays 09:00-11:00.
func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	tod := schedule.MustParseTimeOfDay
	cat, err := catalog.New(time.UTC, catalog.Location{
		Slug: testLocation,
		Name: "Repair Workshop Berlin Mitte",
		Hours: schedule.WeeklyHours{
			time.Monday: {{Open: tod("09:00"), Close: tod("12:00")}},
			time.Wednesday: {
				{Open: tod("09:00"), Close: tod("11:00")},
				{Open: tod("13:00"), Close: tod("15:00")},
			},
			time.Thursday: {{Open: tod("09:00"), Close: tod("11:00")}},
		},
	})
	require.NoError(t, err)
	return cat
}

func date(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func strPtr(s string) *string { return &s }
