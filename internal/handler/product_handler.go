package handler

import (
	"net/http"
	"strconv"

	"repairshop/internal/model"
	"repairshop/internal/service"

	"github.com/rs/zerolog"
)

// ProductHandler serves the shop catalogue.
type ProductHandler struct {
	service service.ProductService
	logger  zerolog.Logger
}

// NewProductHandler creates a new product handler.
func NewProductHandler(service service.ProductService, logger zerolog.Logger) *ProductHandler {
	return &ProductHandler{
		service: service,
		logger:  logger.With().Str("handler", "product").Logger(),
	}
}

// List handles GET /api/products?category=&limit=&offset=.
// Missing paging parameters fall back to the service defaults.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.intParam(w, r, "limit")
	if !ok {
		return
	}
	offset, ok := h.intParam(w, r, "offset")
	if !ok {
		return
	}

	page, err := h.service.List(r.Context(), model.ProductFilter{
		Category: r.URL.Query().Get("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// Categories handles GET /api/products/categories.
func (h *ProductHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

// GetByID handles GET /api/products/{id}.
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, product)
}

func (h *ProductHandler) intParam(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalid, "invalid "+name+" parameter", h.logger)
		return 0, false
	}
	return v, true
}
