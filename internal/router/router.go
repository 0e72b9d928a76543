package router

import (
	"net/http"

	"repairshop/internal/auth"
	"repairshop/internal/handler"
	"repairshop/internal/middleware"

	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the API.
type Handlers struct {
	Product      *handler.ProductHandler
	Availability *handler.AvailabilityHandler
	Booking      *handler.BookingHandler
	Order        *handler.OrderHandler
	Webhook      *handler.WebhookHandler
	Store        *handler.StoreHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(h Handlers, tokens middleware.TokenParser, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", handler.Health)

	mux.HandleFunc("GET /api/products", h.Product.List)
	mux.HandleFunc("GET /api/products/categories", h.Product.Categories)
	mux.HandleFunc("GET /api/products/{id}", h.Product.GetByID)

	mux.HandleFunc("GET /api/store-status", h.Store.Status)

	mux.HandleFunc("GET /api/locations/{slug}/availability", h.Availability.Slots)
	mux.HandleFunc("GET /api/locations/{slug}/fully-booked", h.Availability.FullyBooked)
	mux.HandleFunc("POST /api/bookings", h.Booking.Create)

	mux.HandleFunc("POST /api/checkout", h.Order.Checkout)
	mux.HandleFunc("GET /api/shipping", h.Order.Shipping)
	mux.HandleFunc("GET /api/orders/status", h.Order.Status)
	mux.HandleFunc("POST /api/orders/{orderNumber}/cancellation-request", h.Order.RequestCancellation)

	// Gateway signature replaces bearer auth here.
	mux.HandleFunc("POST /api/webhooks/stripe", h.Webhook.Stripe)

	admin := middleware.RequireRole(auth.RoleAdmin)
	mux.Handle("POST /api/admin/orders/{id}/transitions", admin(http.HandlerFunc(h.Order.Transition)))
	mux.Handle("POST /api/admin/bookings/{id}/status", admin(http.HandlerFunc(h.Booking.UpdateStatus)))
	mux.Handle("GET /api/admin/store-settings", admin(http.HandlerFunc(h.Store.Settings)))
	mux.Handle("PUT /api/admin/store-settings", admin(http.HandlerFunc(h.Store.UpdateSettings)))

	// Apply middleware in order: Recovery -> Logging -> CORS -> Authenticate
	var handler http.Handler = mux
	handler = middleware.Authenticate(tokens, logger)(handler)
	handler = middleware.CORS(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Recovery(logger)(handler)

	return handler
}
