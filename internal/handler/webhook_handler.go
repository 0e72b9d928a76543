package handler

import (
	"io"
	"net/http"

	"repairshop/internal/model"
	"repairshop/internal/service"

	"github.com/rs/zerolog"
)

// maxWebhookBody bounds the gateway payload read into memory.
const maxWebhookBody = 1 << 20

// WebhookHandler receives payment gateway notifications.
type WebhookHandler struct {
	service service.PaymentService
	logger  zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(service service.PaymentService, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		service: service,
		logger:  logger.With().Str("handler", "webhook").Logger(),
	}
}

// Stripe handles POST /api/webhooks/stripe requests. The raw body is
// needed for signature verification.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalid, "unreadable request body", h.logger)
		return
	}

	if err := h.service.HandleGatewayEvent(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
