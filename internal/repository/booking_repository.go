package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repairshop/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// bookingRepository implements the BookingRepository interface using PostgreSQL.
type bookingRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewBookingRepository creates a new PostgreSQL-backed booking repository.
func NewBookingRepository(pool *pgxpool.Pool, logger zerolog.Logger) BookingRepository {
	return &bookingRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "booking").Logger(),
	}
}

const bookingColumns = `
	b.id, l.slug, b.booking_date, b.time_slot,
	b.customer_name, b.customer_email, b.customer_phone,
	b.service_type, b.machine_model, b.notes, b.status,
	b.created_at, b.updated_at
`

// CountBySlot returns occupying bookings per slot for a location and date.
// An unknown location yields an empty map.
func (r *bookingRepository) CountBySlot(ctx context.Context, locationSlug string, date time.Time) (map[string]int, error) {
	query := `
		SELECT b.time_slot, COUNT(*)
		FROM repair_bookings b
		JOIN locations l ON l.id = b.location_id
		WHERE l.slug = $1
		  AND b.booking_date = $2
		  AND b.status IN ('pending', 'confirmed')
		GROUP BY b.time_slot
	`

	rows, err := r.pool.Query(ctx, query, locationSlug, date)
	if err != nil {
		r.logger.Error().Err(err).Str("location", locationSlug).Msg("failed to count bookings by slot")
		return nil, fmt.Errorf("failed to count bookings by slot: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var slot string
		var n int
		if err := rows.Scan(&slot, &n); err != nil {
			return nil, fmt.Errorf("failed to scan slot count: %w", err)
		}
		counts[slot] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating slot counts: %w", err)
	}

	return counts, nil
}

// CountByDate returns occupying bookings per date in [from, to).
func (r *bookingRepository) CountByDate(ctx context.Context, locationSlug string, from, to time.Time) (map[string]int, error) {
	query := `
		SELECT b.booking_date, COUNT(*)
		FROM repair_bookings b
		JOIN locations l ON l.id = b.location_id
		WHERE l.slug = $1
		  AND b.booking_date >= $2
		  AND b.booking_date < $3
		  AND b.status IN ('pending', 'confirmed')
		GROUP BY b.booking_date
	`

	rows, err := r.pool.Query(ctx, query, locationSlug, from, to)
	if err != nil {
		r.logger.Error().Err(err).Str("location", locationSlug).Msg("failed to count bookings by date")
		return nil, fmt.Errorf("failed to count bookings by date: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var day time.Time
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("failed to scan date count: %w", err)
		}
		counts[day.Format(model.DateLayout)] = n
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating date counts: %w", err)
	}

	return counts, nil
}

// CreateWithCapacity inserts the booking under a transaction-scoped advisory
// lock keyed on (location, date, slot). The count is re-read after the lock
// is granted, so it observes every booking committed by earlier holders.
func (r *bookingRepository) CreateWithCapacity(ctx context.Context, b *model.Booking, locationName string, capacity int) (err error) {
	locationID, err := r.ensureLocation(ctx, b.LocationSlug, locationName)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				r.logger.Error().Err(rbErr).Msg("failed to rollback booking transaction")
			}
		}
	}()

	lockKey := fmt.Sprintf("booking:%s:%s:%s", b.LocationSlug, b.DateString(), b.Slot)
	if _, err = tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, lockKey); err != nil {
		r.logger.Error().Err(err).Str("lock_key", lockKey).Msg("failed to acquire slot lock")
		return fmt.Errorf("failed to acquire slot lock: %w", err)
	}

	var occupied int
	err = tx.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM repair_bookings
		WHERE location_id = $1
		  AND booking_date = $2
		  AND time_slot = $3
		  AND status IN ('pending', 'confirmed')
	`, locationID, b.Date, b.Slot).Scan(&occupied)
	if err != nil {
		return fmt.Errorf("failed to count slot bookings: %w", err)
	}

	if occupied >= capacity {
		r.logger.Info().
			Str("location", b.LocationSlug).
			Str("date", b.DateString()).
			Str("slot", b.Slot).
			Int("occupied", occupied).
			Msg("slot at capacity")
		err = model.ErrSlotFull
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO repair_bookings (
			id, location_id, booking_date, time_slot,
			customer_name, customer_email, customer_phone,
			service_type, machine_model, notes, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`,
		b.ID, locationID, b.Date, b.Slot,
		b.Customer.Name, b.Customer.Email, nullIfEmpty(b.Customer.Phone),
		b.ServiceType, b.MachineModel, b.Notes, b.Status,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("booking_id", b.ID.String()).Msg("failed to insert booking")
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("booking_id", b.ID.String()).Msg("failed to commit booking")
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	r.logger.Debug().
		Str("booking_id", b.ID.String()).
		Str("location", b.LocationSlug).
		Str("slot", b.Slot).
		Msg("booking created successfully")

	return nil
}

// ensureLocation upserts the location row in its own statement so the row
// lock is not held for the booking transaction.
func (r *bookingRepository) ensureLocation(ctx context.Context, slug, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO locations (slug, name)
		VALUES ($1, $2)
		ON CONFLICT (slug) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`, slug, name).Scan(&id)
	if err != nil {
		r.logger.Error().Err(err).Str("location", slug).Msg("failed to upsert location")
		return uuid.Nil, fmt.Errorf("failed to upsert location: %w", err)
	}
	return id, nil
}

// GetByID retrieves a booking. It returns nil when none exists.
func (r *bookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM repair_bookings b
		JOIN locations l ON l.id = b.location_id
		WHERE b.id = $1
	`
	b, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("booking_id", id.String()).Msg("failed to query booking")
		return nil, fmt.Errorf("failed to query booking: %w", err)
	}
	return b, nil
}

// BeginTx starts a new database transaction.
func (r *bookingRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// LockByID loads a booking with a row lock held until tx ends.
func (r *bookingRepository) LockByID(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*model.Booking, error) {
	query := `SELECT ` + bookingColumns + `
		FROM repair_bookings b
		JOIN locations l ON l.id = b.location_id
		WHERE b.id = $1
		FOR UPDATE OF b
	`
	b, err := scanBooking(tx.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("booking_id", id.String()).Msg("failed to lock booking")
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return b, nil
}

// UpdateStatus writes a booking's status within tx.
func (r *bookingRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status model.BookingStatus, at time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE repair_bookings SET status = $2, updated_at = $3 WHERE id = $1
	`, id, status, at)
	if err != nil {
		r.logger.Error().Err(err).Str("booking_id", id.String()).Msg("failed to update booking status")
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	return nil
}

func scanBooking(row pgx.Row) (*model.Booking, error) {
	var b model.Booking
	var phone *string
	err := row.Scan(
		&b.ID, &b.LocationSlug, &b.Date, &b.Slot,
		&b.Customer.Name, &b.Customer.Email, &phone,
		&b.ServiceType, &b.MachineModel, &b.Notes, &b.Status,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if phone != nil {
		b.Customer.Phone = *phone
	}
	return &b, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
