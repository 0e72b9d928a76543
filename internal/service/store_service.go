package service

import (
	"context"
	"fmt"
	"time"

	"repairshop/internal/catalog"
	"repairshop/internal/model"
	"repairshop/internal/repository"
	"repairshop/internal/schedule"

	"github.com/rs/zerolog"
)

const maxClosedMessageLength = 500

// storeService implements StoreService.
type storeService struct {
	catalog            *catalog.Catalog
	storeRepo          repository.StoreRepository
	paymentsConfigured bool
	now                func() time.Time
	logger             zerolog.Logger
}

// NewStoreService creates a new store status service. paymentsConfigured
// gates the effective shop switch.
func NewStoreService(
	cat *catalog.Catalog,
	storeRepo repository.StoreRepository,
	paymentsConfigured bool,
	logger zerolog.Logger,
) StoreService {
	return &storeService{
		catalog:            cat,
		storeRepo:          storeRepo,
		paymentsConfigured: paymentsConfigured,
		now:                time.Now,
		logger:             logger.With().Str("service", "store").Logger(),
	}
}

// Status reports whether the shop is open now. In auto mode each location
// is judged by its own opening hours in the catalog timezone and the shop
// is open while any location is; manual mode overrides every location.
func (s *storeService) Status(ctx context.Context) (*model.StoreStatus, error) {
	settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now().In(s.catalog.Timezone())
	status := &model.StoreStatus{
		ShopEnabled: s.paymentsConfigured && settings.ShopEnabled,
		Locations:   []model.LocationStatus{},
	}
	for _, loc := range s.catalog.Locations() {
		open := settings.IsOpen
		if settings.Mode == model.StoreModeAuto {
			open = schedule.OpenAt(loc.Hours, now)
		}
		status.Open = status.Open || open
		status.Locations = append(status.Locations, model.LocationStatus{Slug: loc.Slug, Name: loc.Name, Open: open})
	}
	if settings.Mode == model.StoreModeManual {
		status.Open = settings.IsOpen
		if !settings.IsOpen {
			status.ClosedMessage = settings.ClosedMessage
		}
	}

	return status, nil
}

// Settings returns the admin view of the switches.
func (s *storeService) Settings(ctx context.Context) (*model.StoreSettingsResponse, error) {
	settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return s.response(settings), nil
}

// UpdateSettings applies req under a row lock. Leaving manual mode clears
// the closed message, as does opening the shop manually.
func (s *storeService) UpdateSettings(ctx context.Context, req *model.StoreSettingsRequest) (*model.StoreSettingsResponse, error) {
	if req == nil {
		return nil, model.Invalid("settings request is required")
	}
	if req.Mode != nil {
		switch model.StoreMode(*req.Mode) {
		case model.StoreModeAuto, model.StoreModeManual:
		default:
			return nil, model.Invalid("mode must be auto or manual")
		}
	}
	if req.ClosedMessage != nil && len(*req.ClosedMessage) > maxClosedMessageLength {
		return nil, model.Invalid("closedMessage is too long")
	}

	tx, err := s.storeRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to update store settings: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	current, err := s.storeRepo.Lock(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to update store settings: %w", err)
	}
	settings := model.DefaultStoreSettings()
	if current != nil {
		settings = *current
	}

	if err = applySettings(&settings, req); err != nil {
		return nil, err
	}
	settings.UpdatedAt = s.now().UTC()

	if err = s.storeRepo.Save(ctx, tx, &settings); err != nil {
		return nil, fmt.Errorf("failed to update store settings: %w", err)
	}
	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to update store settings: %w", err)
	}

	s.logger.Info().
		Ctx(ctx).
		Str("mode", string(settings.Mode)).
		Bool("open", settings.IsOpen).
		Bool("shop_enabled", settings.ShopEnabled).
		Msg("store settings updated")

	return s.response(&settings), nil
}

func applySettings(settings *model.StoreSettings, req *model.StoreSettingsRequest) error {
	if req.Mode != nil {
		settings.Mode = model.StoreMode(*req.Mode)
	}
	if req.ShopEnabled != nil {
		settings.ShopEnabled = *req.ShopEnabled
	}

	if settings.Mode == model.StoreModeAuto {
		if req.Open != nil {
			return model.Invalid("open can only be set in manual mode")
		}
		settings.ClosedMessage = nil
		return nil
	}

	if req.Open != nil {
		settings.IsOpen = *req.Open
	}
	if settings.IsOpen {
		settings.ClosedMessage = nil
		return nil
	}
	if req.ClosedMessage != nil {
		settings.ClosedMessage = optional(*req.ClosedMessage)
	}
	return nil
}

func (s *storeService) load(ctx context.Context) (*model.StoreSettings, error) {
	settings, err := s.storeRepo.Get(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to load store settings")
		return nil, fmt.Errorf("failed to load store settings: %w", err)
	}
	if settings == nil {
		d := model.DefaultStoreSettings()
		return &d, nil
	}
	return settings, nil
}

func (s *storeService) response(settings *model.StoreSettings) *model.StoreSettingsResponse {
	return &model.StoreSettingsResponse{
		Mode:               settings.Mode,
		Open:               settings.IsOpen,
		ClosedMessage:      settings.ClosedMessage,
		ShopEnabled:        s.paymentsConfigured && settings.ShopEnabled,
		ShopEnabledByAdmin: settings.ShopEnabled,
		PaymentsConfigured: s.paymentsConfigured,
		UpdatedAt:          settings.UpdatedAt,
	}
}
