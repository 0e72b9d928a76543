package handler

import (
	"net/http"
	"strconv"

	"repairshop/internal/auth"
	"repairshop/internal/model"
	"repairshop/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service service.OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service service.OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Checkout handles POST /api/checkout requests.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	resp, err := h.service.Checkout(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Status handles GET /api/orders/status?orderNumber= requests.
func (h *OrderHandler) Status(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.GetStatus(r.Context(), r.URL.Query().Get("orderNumber"))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// RequestCancellation handles POST /api/orders/{orderNumber}/cancellation-request.
func (h *OrderHandler) RequestCancellation(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, model.ErrCodeUnauthorised, "Authentication required", h.logger)
		return
	}

	resp, err := h.service.RequestCancellation(r.Context(), r.PathValue("orderNumber"), identity)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Transition handles POST /api/admin/orders/{id}/transitions requests.
func (h *OrderHandler) Transition(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalid, "invalid order ID format", h.logger)
		return
	}

	var req model.OrderTransitionRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	resp, err := h.service.Transition(r.Context(), id, req.Action)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Shipping handles GET /api/shipping?subtotal= requests.
func (h *OrderHandler) Shipping(w http.ResponseWriter, r *http.Request) {
	subtotal, err := strconv.ParseInt(r.URL.Query().Get("subtotal"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalid, "invalid subtotal parameter", h.logger)
		return
	}

	quote, err := h.service.ShippingQuote(subtotal)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}
