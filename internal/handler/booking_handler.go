package handler

import (
	"net/http"

	"repairshop/internal/model"
	"repairshop/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BookingHandler handles repair booking requests.
type BookingHandler struct {
	service service.BookingService
	logger  zerolog.Logger
}

// NewBookingHandler creates a new booking handler.
func NewBookingHandler(service service.BookingService, logger zerolog.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		logger:  logger.With().Str("handler", "booking").Logger(),
	}
}

// Create handles POST /api/bookings requests.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.BookingRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	resp, err := h.service.Create(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// UpdateStatus handles POST /api/admin/bookings/{id}/status requests.
func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalid, "invalid booking ID format", h.logger)
		return
	}

	var req model.BookingStatusRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	booking, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, booking)
}
