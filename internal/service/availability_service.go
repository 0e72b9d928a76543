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

// availabilityService implements AvailabilityService.
type availabilityService struct {
	catalog     *catalog.Catalog
	bookingRepo repository.BookingRepository
	capacity    int
	now         func() time.Time
	logger      zerolog.Logger
}

// NewAvailabilityService creates a new availability service.
func NewAvailabilityService(
	cat *catalog.Catalog,
	bookingRepo repository.BookingRepository,
	capacity int,
	logger zerolog.Logger,
) AvailabilityService {
	return &availabilityService{
		catalog:     cat,
		bookingRepo: bookingRepo,
		capacity:    capacity,
		now:         time.Now,
		logger:      logger.With().Str("service", "availability").Logger(),
	}
}

// AvailableSlots lists the slots on date that still have free capacity.
func (s *availabilityService) AvailableSlots(ctx context.Context, locationSlug, date string) (*model.AvailabilityResponse, error) {
	loc, ok := s.catalog.Lookup(locationSlug)
	if !ok {
		return nil, model.ErrLocationNotFound
	}

	day, err := parseBookableDate(s.catalog, date, s.now())
	if err != nil {
		return nil, err
	}

	resp := &model.AvailabilityResponse{
		Date:         date,
		LocationName: loc.Name,
		Slots:        []string{},
	}

	slots := schedule.SlotsForDate(loc.Hours, day)
	if len(slots) == 0 {
		return resp, nil
	}

	counts, err := s.bookingRepo.CountBySlot(ctx, loc.Slug, day)
	if err != nil {
		s.logger.Error().Err(err).
			Str("location", loc.Slug).
			Str("date", date).
			Msg("failed to count bookings")
		return nil, fmt.Errorf("failed to load availability: %w", err)
	}

	for _, slot := range slots {
		if counts[slot] < s.capacity {
			resp.Slots = append(resp.Slots, slot)
		}
	}

	s.logger.Debug().
		Str("location", loc.Slug).
		Str("date", date).
		Int("offered", len(slots)).
		Int("available", len(resp.Slots)).
		Msg("computed availability")

	return resp, nil
}

// FullyBookedDates lists the dates of month whose bookings fill every slot.
func (s *availabilityService) FullyBookedDates(ctx context.Context, locationSlug, month string) (*model.FullyBookedResponse, error) {
	loc, ok := s.catalog.Lookup(locationSlug)
	if !ok {
		return nil, model.ErrLocationNotFound
	}

	from, err := time.Parse(model.MonthLayout, month)
	if err != nil {
		return nil, model.ErrInvalidMonth
	}
	to := from.AddDate(0, 1, 0)

	counts, err := s.bookingRepo.CountByDate(ctx, loc.Slug, from, to)
	if err != nil {
		s.logger.Error().Err(err).
			Str("location", loc.Slug).
			Str("month", month).
			Msg("failed to count bookings")
		return nil, fmt.Errorf("failed to load fully booked dates: %w", err)
	}

	resp := &model.FullyBookedResponse{Month: month, Dates: []string{}}
	for day := from; day.Before(to); day = day.AddDate(0, 0, 1) {
		key := day.Format(model.DateLayout)
		booked := counts[key]
		if booked == 0 {
			continue
		}
		total := len(schedule.SlotsForDate(loc.Hours, day)) * s.capacity
		if total > 0 && booked >= total {
			resp.Dates = append(resp.Dates, key)
		}
	}

	return resp, nil
}

// parseBookableDate parses a YYYY-MM-DD date and rejects days before today
// in the catalog timezone.
func parseBookableDate(cat *catalog.Catalog, date string, now time.Time) (time.Time, error) {
	day, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return time.Time{}, model.ErrInvalidDate
	}
	if day.Before(cat.Today(now)) {
		return time.Time{}, model.ErrDateInPast
	}
	return day, nil
}
