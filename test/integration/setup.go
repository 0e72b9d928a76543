package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"repairshop/internal/auth"
	"repairshop/internal/catalog"
	"repairshop/internal/database"
	"repairshop/internal/handler"
	"repairshop/internal/model"
	"repairshop/internal/notify"
	"repairshop/internal/payment"
	"repairshop/internal/repository"
	"repairshop/internal/router"
	"repairshop/internal/schedule"
	"repairshop/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// TestLocation is open every day from 09:00 to 11:00.
	TestLocation = "test-workshop"
	// TestSecret signs bearer tokens in tests.
	TestSecret = "integration-secret"
	// ValidSignature is the only signature header FakeGateway accepts.
	ValidSignature = "t=1,v1=valid"
	// SlotCapacity is the per-slot booking capacity used by the test server.
	SlotCapacity = 2
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the embedded
// migrations applied.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		t.Fatalf("failed to parse connection string: %v", err)
	}
	poolConfig.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	if err := database.Migrate(ctx, pool, zerolog.Nop()); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// CleanupDB removes bookings, orders and saved store settings. Seeded
// products are kept.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{
		"processed_gateway_events",
		"order_status_log",
		"order_items",
		"orders",
		"repair_bookings",
		"store_settings",
	}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// FakeGateway is an in-memory payment gateway. Events are plain JSON
// encodings of payment.Event and are accepted only with ValidSignature.
type FakeGateway struct {
	mu       sync.Mutex
	sessions int
	refunds  []string
}

func (g *FakeGateway) CreateCheckoutSession(ctx context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions++
	id := fmt.Sprintf("cs_test_%d", g.sessions)
	return &payment.CheckoutSession{ID: id, URL: "https://checkout.test/" + id}, nil
}

func (g *FakeGateway) ParseEvent(payload []byte, signatureHeader string) (*payment.Event, error) {
	if signatureHeader != ValidSignature {
		return nil, model.ErrSignatureInvalid
	}
	var ev payment.Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	return &ev, nil
}

func (g *FakeGateway) Refund(ctx context.Context, paymentIntentID, idempotencyKey string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, paymentIntentID)
	return nil
}

// Refunds returns the payment intents refunded so far.
func (g *FakeGateway) Refunds() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.refunds...)
}

// RecordingSender collects delivered notifications.
type RecordingSender struct {
	mu   sync.Mutex
	sent []notify.Message
}

func (s *RecordingSender) Send(ctx context.Context, msg notify.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return nil
}

// Count returns the number of messages of the given kind.
func (s *RecordingSender) Count(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.sent {
		if m.Kind == kind {
			n++
		}
	}
	return n
}

// TestServer bundles the HTTP handler with its test doubles.
type TestServer struct {
	Handler http.Handler
	Gateway *FakeGateway
	Sender  *RecordingSender
	Tokens  *auth.Tokens
}

// SetupTestServer wires the full API against testDB.
func SetupTestServer(t *testing.T, testDB *TestDB) *TestServer {
	t.Helper()

	logger := zerolog.Nop()

	open := []schedule.Period{{Open: schedule.MustParseTimeOfDay("09:00"), Close: schedule.MustParseTimeOfDay("11:00")}}
	hours := schedule.WeeklyHours{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		hours[d] = open
	}
	cat, err := catalog.New(time.UTC, catalog.Location{Slug: TestLocation, Name: "Test Workshop", Hours: hours})
	if err != nil {
		t.Fatalf("failed to build catalog: %v", err)
	}

	gateway := &FakeGateway{}
	sender := &RecordingSender{}
	notifier := notify.New(sender, logger)
	tokens := auth.NewTokens(TestSecret)

	productRepo := repository.NewProductRepository(testDB.Pool, logger)
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	bookingRepo := repository.NewBookingRepository(testDB.Pool, logger)
	storeRepo := repository.NewStoreRepository(testDB.Pool, logger)

	productService := service.NewProductService(productRepo, logger)
	availabilityService := service.NewAvailabilityService(cat, bookingRepo, SlotCapacity, logger)
	bookingService := service.NewBookingService(cat, bookingRepo, notifier, SlotCapacity, logger)
	orderService := service.NewOrderService(orderRepo, productRepo, cat, gateway, service.ShopSettings{
		Currency:              "eur",
		ShippingFlatRate:      1990,
		ShippingFreeThreshold: 20000,
		SuccessURL:            "https://shop.test/success",
		CancelURL:             "https://shop.test/cancel",
		RefundTimeout:         5 * time.Second,
	}, logger)
	paymentService := service.NewPaymentService(orderRepo, gateway, notifier, logger)
	storeService := service.NewStoreService(cat, storeRepo, true, logger)

	h := router.New(router.Handlers{
		Product:      handler.NewProductHandler(productService, logger),
		Availability: handler.NewAvailabilityHandler(availabilityService, logger),
		Booking:      handler.NewBookingHandler(bookingService, logger),
		Order:        handler.NewOrderHandler(orderService, logger),
		Webhook:      handler.NewWebhookHandler(paymentService, logger),
		Store:        handler.NewStoreHandler(storeService, logger),
	}, tokens, logger)

	return &TestServer{Handler: h, Gateway: gateway, Sender: sender, Tokens: tokens}
}

// Token issues a bearer token for identity.
func (s *TestServer) Token(t *testing.T, identity auth.Identity) string {
	t.Helper()
	token, err := s.Tokens.Issue(identity, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}
