package service

import (
	"context"

	"repairshop/internal/auth"
	"repairshop/internal/model"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("repairshop/internal/service")

// ProductService reads the shop catalogue.
type ProductService interface {
	// List returns a page of products, optionally within one category.
	List(ctx context.Context, filter model.ProductFilter) (*model.ProductPage, error)

	// Categories lists every category with its product count.
	Categories(ctx context.Context) ([]model.ProductCategory, error)

	// GetByID returns a single product or ErrProductNotFound.
	GetByID(ctx context.Context, id string) (*model.Product, error)
}

// StoreService reports and changes whether the shop is open.
type StoreService interface {
	// Status reports whether the shop and each location are open now.
	Status(ctx context.Context) (*model.StoreStatus, error)

	// Settings returns the admin view of the store switches.
	Settings(ctx context.Context) (*model.StoreSettingsResponse, error)

	// UpdateSettings changes the store switches.
	UpdateSettings(ctx context.Context, req *model.StoreSettingsRequest) (*model.StoreSettingsResponse, error)
}

// AvailabilityService answers read-only slot queries.
type AvailabilityService interface {
	// AvailableSlots lists the slots of a location on date (YYYY-MM-DD)
	// that still have free capacity.
	AvailableSlots(ctx context.Context, locationSlug, date string) (*model.AvailabilityResponse, error)

	// FullyBookedDates lists the dates of month (YYYY-MM) without free capacity.
	FullyBookedDates(ctx context.Context, locationSlug, month string) (*model.FullyBookedResponse, error)
}

// BookingService defines operations for repair bookings.
type BookingService interface {
	// Create books a slot, failing with CAPACITY_EXCEEDED when it is full.
	Create(ctx context.Context, req *model.BookingRequest) (*model.BookingResponse, error)

	// UpdateStatus moves a booking to status.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*model.Booking, error)
}

// OrderService defines operations for shop orders.
type OrderService interface {
	// Checkout creates a pending order and opens a payment session for it.
	Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error)

	// GetStatus retrieves an order and its items by order number.
	GetStatus(ctx context.Context, orderNumber string) (*model.OrderResponse, error)

	// RequestCancellation flags an order owned by identity for cancellation.
	RequestCancellation(ctx context.Context, orderNumber string, identity auth.Identity) (*model.OrderResponse, error)

	// Transition applies an admin action to an order.
	Transition(ctx context.Context, id uuid.UUID, action string) (*model.OrderTransitionResponse, error)

	// ShippingQuote computes the shipping cost for a subtotal.
	ShippingQuote(subtotal int64) (*model.ShippingQuote, error)
}

// PaymentService reconciles gateway notifications with orders.
type PaymentService interface {
	// HandleGatewayEvent verifies and applies a gateway event. Unknown event
	// types and unknown orders are accepted.
	HandleGatewayEvent(ctx context.Context, payload []byte, signature string) error
}

// Notifier sends transactional messages. Callers treat failures as non-fatal.
type Notifier interface {
	OrderConfirmation(ctx context.Context, order *model.Order, items []model.OrderItem) error
	BookingConfirmation(ctx context.Context, booking *model.Booking, locationName string) error
}
