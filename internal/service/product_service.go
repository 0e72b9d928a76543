package service

import (
	"context"
	"fmt"
	"strings"

	"repairshop/internal/model"
	"repairshop/internal/repository"

	"github.com/rs/zerolog"
)

const (
	defaultProductPageSize = 20
	maxProductPageSize     = 100
	maxCategoryLength      = 100
)

// productService implements ProductService.
type productService struct {
	productRepo repository.ProductRepository
	logger      zerolog.Logger
}

// NewProductService creates a new product service.
func NewProductService(productRepo repository.ProductRepository, logger zerolog.Logger) ProductService {
	return &productService{
		productRepo: productRepo,
		logger:      logger.With().Str("service", "product").Logger(),
	}
}

// List returns a page of the catalogue. Out-of-range paging values are
// clamped rather than rejected.
func (s *productService) List(ctx context.Context, filter model.ProductFilter) (*model.ProductPage, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	if len(filter.Category) > maxCategoryLength {
		return nil, model.Invalid("category is too long")
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultProductPageSize
	case filter.Limit > maxProductPageSize:
		filter.Limit = maxProductPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	products, total, err := s.productRepo.List(ctx, filter)
	if err != nil {
		s.logger.Error().Err(err).
			Str("category", filter.Category).
			Int("limit", filter.Limit).
			Int("offset", filter.Offset).
			Msg("failed to list products")
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []model.Product{}
	}

	s.logger.Debug().
		Str("category", filter.Category).
		Int("count", len(products)).
		Int("total", total).
		Msg("listed products")

	return &model.ProductPage{
		Products: products,
		Category: filter.Category,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}

// Categories lists the shop categories with their product counts.
func (s *productService) Categories(ctx context.Context) ([]model.ProductCategory, error) {
	categories, err := s.productRepo.Categories(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list product categories")
		return nil, fmt.Errorf("failed to list product categories: %w", err)
	}
	if categories == nil {
		categories = []model.ProductCategory{}
	}
	return categories, nil
}

// GetByID returns a single product or ErrProductNotFound.
func (s *productService) GetByID(ctx context.Context, id string) (*model.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, model.Invalid("product id is required")
	}

	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("product_id", id).Msg("failed to get product")
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, model.ErrProductNotFound
	}
	return product, nil
}
