package handler

import (
	"net/http"

	"repairshop/internal/model"
	"repairshop/internal/service"

	"github.com/rs/zerolog"
)

// StoreHandler serves the shop's open/closed state.
type StoreHandler struct {
	service service.StoreService
	logger  zerolog.Logger
}

// NewStoreHandler creates a new store status handler.
func NewStoreHandler(service service.StoreService, logger zerolog.Logger) *StoreHandler {
	return &StoreHandler{
		service: service,
		logger:  logger.With().Str("handler", "store").Logger(),
	}
}

// Status handles GET /api/store-status requests.
func (h *StoreHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, status)
}

// Settings handles GET /api/admin/store-settings requests.
func (h *StoreHandler) Settings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.service.Settings(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}

// UpdateSettings handles PUT /api/admin/store-settings requests.
func (h *StoreHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req model.StoreSettingsRequest
	if !decodeJSON(w, r, &req, h.logger) {
		return
	}

	settings, err := h.service.UpdateSettings(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, settings)
}
