package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"repairshop/internal/catalog"
	"repairshop/internal/model"
	"repairshop/internal/repository"
	"repairshop/internal/schedule"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// bookingService implements BookingService.
type bookingService struct {
	catalog     *catalog.Catalog
	bookingRepo repository.BookingRepository
	notifier    Notifier
	capacity    int
	now         func() time.Time
	logger      zerolog.Logger
}

// NewBookingService creates a new booking service.
func NewBookingService(
	cat *catalog.Catalog,
	bookingRepo repository.BookingRepository,
	notifier Notifier,
	capacity int,
	logger zerolog.Logger,
) BookingService {
	return &bookingService{
		catalog:     cat,
		bookingRepo: bookingRepo,
		notifier:    notifier,
		capacity:    capacity,
		now:         time.Now,
		logger:      logger.With().Str("service", "booking").Logger(),
	}
}

// Create books a slot. The capacity check happens inside the repository
// insert; availability counts are never trusted here.
func (s *bookingService) Create(ctx context.Context, req *model.BookingRequest) (*model.BookingResponse, error) {
	if err := validateBookingRequest(req); err != nil {
		return nil, err
	}

	loc, ok := s.catalog.Lookup(req.LocationSlug)
	if !ok {
		return nil, model.ErrLocationNotFound
	}

	day, err := parseBookableDate(s.catalog, req.Date, s.now())
	if err != nil {
		return nil, err
	}

	// Slots are stored and counted in canonical HH:MM form.
	tod, err := schedule.ParseTimeOfDay(req.Slot)
	if err != nil {
		s.logger.Warn().Err(err).Str("location", loc.Slug).Msg("malformed slot")
		return nil, model.ErrInvalidSlot
	}
	slot := tod.String()

	if !schedule.Contains(loc.Hours, day, slot) {
		s.logger.Warn().
			Str("location", loc.Slug).
			Str("date", req.Date).
			Str("slot", slot).
			Msg("slot not offered")
		return nil, model.ErrInvalidSlot
	}

	ctx, span := tracer.Start(ctx, "booking.create", trace.WithAttributes(
		attribute.String("booking.location", loc.Slug),
		attribute.String("booking.date", req.Date),
		attribute.String("booking.slot", slot),
	))
	defer span.End()

	booking := &model.Booking{
		ID:           uuid.New(),
		LocationSlug: loc.Slug,
		Date:         day,
		Slot:         slot,
		Customer:     trimCustomer(req.Customer),
		ServiceType:  strings.TrimSpace(req.ServiceType),
		MachineModel: optional(req.MachineModel),
		Notes:        optional(req.Notes),
		Status:       model.BookingStatusConfirmed,
	}

	if err := s.bookingRepo.CreateWithCapacity(ctx, booking, loc.Name, s.capacity); err != nil {
		span.SetStatus(codes.Error, err.Error())
		if model.HasCode(err, model.ErrCodeCapacityExceeded) {
			s.logger.Info().
				Str("location", loc.Slug).
				Str("date", req.Date).
				Str("slot", slot).
				Msg("slot fully booked")
			return nil, err
		}
		s.logger.Error().Err(err).Str("location", loc.Slug).Msg("failed to create booking")
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	if err := s.notifier.BookingConfirmation(ctx, booking, loc.Name); err != nil {
		s.logger.Warn().Err(err).
			Str("booking_id", booking.ID.String()).
			Msg("booking confirmation not sent")
	}

	s.logger.Info().
		Ctx(ctx).
		Str("booking_id", booking.ID.String()).
		Str("location", loc.Slug).
		Str("date", req.Date).
		Str("slot", slot).
		Msg("booking created")

	return &model.BookingResponse{
		ID:     booking.ID,
		Date:   booking.DateString(),
		Slot:   booking.Slot,
		Status: booking.Status,
	}, nil
}

// UpdateStatus moves a booking to status under a row lock.
func (s *bookingService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*model.Booking, error) {
	target := model.BookingStatus(status)
	switch target {
	case model.BookingStatusPending, model.BookingStatusConfirmed, model.BookingStatusCancelled:
	default:
		return nil, model.ErrUnknownStatus
	}

	tx, err := s.bookingRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	booking, err := s.bookingRepo.LockByID(ctx, tx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", id.String()).Msg("failed to lock booking")
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	if booking == nil {
		err = model.ErrBookingNotFound
		return nil, err
	}

	if err = checkBookingTransition(booking.Status, target); err != nil {
		return nil, err
	}

	if booking.Status != target {
		now := s.now().UTC()
		if err = s.bookingRepo.UpdateStatus(ctx, tx, id, target, now); err != nil {
			s.logger.Error().Err(err).Str("booking_id", id.String()).Msg("failed to update booking status")
			return nil, fmt.Errorf("failed to update booking: %w", err)
		}
		s.logger.Info().
			Str("booking_id", id.String()).
			Str("from", string(booking.Status)).
			Str("to", string(target)).
			Msg("booking status changed")
		booking.Status = target
		booking.UpdatedAt = now
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("booking_id", id.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	return booking, nil
}

// checkBookingTransition allows pending to confirmed or cancelled and
// confirmed to cancelled. Cancelled bookings are final.
func checkBookingTransition(from, to model.BookingStatus) error {
	if from == to {
		return nil
	}
	switch {
	case from == model.BookingStatusPending && to != model.BookingStatusPending:
		return nil
	case from == model.BookingStatusConfirmed && to == model.BookingStatusCancelled:
		return nil
	}
	return model.Conflict(fmt.Sprintf("cannot change a %s booking to %s", from, to))
}

func validateBookingRequest(req *model.BookingRequest) error {
	if req == nil {
		return model.Invalid("booking request is required")
	}
	switch {
	case strings.TrimSpace(req.LocationSlug) == "":
		return model.Invalid("locationSlug is required")
	case strings.TrimSpace(req.Date) == "":
		return model.Invalid("date is required")
	case strings.TrimSpace(req.Slot) == "":
		return model.Invalid("slot is required")
	case strings.TrimSpace(req.ServiceType) == "":
		return model.Invalid("serviceType is required")
	}
	return validateCustomer(req.Customer)
}

func validateCustomer(c model.Customer) error {
	if strings.TrimSpace(c.Name) == "" {
		return model.Invalid("customer name is required")
	}
	email := strings.TrimSpace(c.Email)
	if email == "" {
		return model.Invalid("customer email is required")
	}
	if at := strings.Index(email, "@"); at < 1 || at == len(email)-1 {
		return model.Invalid("customer email is not valid")
	}
	return nil
}

func trimCustomer(c model.Customer) model.Customer {
	return model.Customer{
		Name:  strings.TrimSpace(c.Name),
		Email: strings.TrimSpace(c.Email),
		Phone: strings.TrimSpace(c.Phone),
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
