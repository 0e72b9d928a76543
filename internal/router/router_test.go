package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"repairshop/internal/auth"
	"repairshop/internal/handler"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(tokens *auth.Tokens) http.Handler {
	logger := zerolog.Nop()
	return New(Handlers{
		Product:      handler.NewProductHandler(nil, logger),
		Availability: handler.NewAvailabilityHandler(nil, logger),
		Booking:      handler.NewBookingHandler(nil, logger),
		Order:        handler.NewOrderHandler(nil, logger),
		Webhook:      handler.NewWebhookHandler(nil, logger),
		Store:        handler.NewStoreHandler(nil, logger),
	}, tokens, logger)
}

func TestRouter(t *testing.T) {
	tokens := auth.NewTokens("router-test-secret")

	customerToken, err := tokens.Issue(auth.Identity{ID: "user-1", Email: "jane@example.com"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name           string
		method         string
		path           string
		token          string
		expectedStatus int
	}{
		{name: "Health", method: http.MethodGet, path: "/health", expectedStatus: http.StatusOK},
		{name: "Preflight", method: http.MethodOptions, path: "/api/checkout", expectedStatus: http.StatusNoContent},
		{name: "Wrong method", method: http.MethodDelete, path: "/api/checkout", expectedStatus: http.StatusMethodNotAllowed},
		{name: "Unknown route", method: http.MethodGet, path: "/api/unknown", expectedStatus: http.StatusNotFound},
		{name: "Admin route without token", method: http.MethodPost, path: "/api/admin/orders/123/transitions", expectedStatus: http.StatusUnauthorized},
		{name: "Admin route as customer", method: http.MethodPost, path: "/api/admin/bookings/123/status", token: customerToken, expectedStatus: http.StatusForbidden},
		{name: "Store settings without token", method: http.MethodPut, path: "/api/admin/store-settings", expectedStatus: http.StatusUnauthorized},
		{name: "Store settings as customer", method: http.MethodGet, path: "/api/admin/store-settings", token: customerToken, expectedStatus: http.StatusForbidden},
		{name: "Store status is read-only", method: http.MethodPost, path: "/api/store-status", expectedStatus: http.StatusMethodNotAllowed},
		{name: "Garbage token", method: http.MethodGet, path: "/health", token: "not-a-jwt", expectedStatus: http.StatusUnauthorized},
	}

	r := newTestRouter(tokens)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			w := httptest.NewRecorder()

			r.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
		})
	}
}

func TestRouter_AdminReachesHandler(t *testing.T) {
	tokens := auth.NewTokens("router-test-secret")
	adminToken, err := tokens.Issue(auth.Identity{ID: "admin-1", Email: "ops@example.com", Role: auth.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/admin/orders/not-a-uuid/transitions", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	w := httptest.NewRecorder()

	newTestRouter(tokens).ServeHTTP(w, req)

	// The handler rejects the malformed id before touching the service.
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
