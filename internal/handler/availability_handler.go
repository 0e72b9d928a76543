package handler

import (
	"net/http"

	"repairshop/internal/service"

	"github.com/rs/zerolog"
)

// AvailabilityHandler handles slot availability requests.
type AvailabilityHandler struct {
	service service.AvailabilityService
	logger  zerolog.Logger
}

// NewAvailabilityHandler creates a new availability handler.
func NewAvailabilityHandler(service service.AvailabilityService, logger zerolog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		logger:  logger.With().Str("handler", "availability").Logger(),
	}
}

// Slots handles GET /api/locations/{slug}/availability?date=YYYY-MM-DD.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.AvailableSlots(r.Context(), r.PathValue("slug"), r.URL.Query().Get("date"))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// FullyBooked handles GET /api/locations/{slug}/fully-booked?month=YYYY-MM.
func (h *AvailabilityHandler) FullyBooked(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.FullyBookedDates(r.Context(), r.PathValue("slug"), r.URL.Query().Get("month"))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
