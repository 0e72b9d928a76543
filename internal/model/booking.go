package model

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a repair booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Occupies reports whether a booking in this status counts against slot capacity.
func (s BookingStatus) Occupies() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

// Booking represents a repair appointment. Location, date and slot are
// immutable once created; only Status changes.
type Booking struct {
	ID           uuid.UUID     `json:"id" db:"id"`
	LocationSlug string        `json:"locationSlug" db:"location_slug"`
	Date         time.Time     `json:"-" db:"booking_date"`
	Slot         string        `json:"slot" db:"time_slot"`
	Customer     Customer      `json:"customer"`
	ServiceType  string        `json:"serviceType" db:"service_type"`
	MachineModel *string       `json:"machineModel,omitempty" db:"machine_model"`
	Notes        *string       `json:"notes,omitempty" db:"notes"`
	Status       BookingStatus `json:"status" db:"status"`
	CreatedAt    time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time     `json:"updatedAt" db:"updated_at"`
}

// DateString returns the booking date as YYYY-MM-DD.
func (b *Booking) DateString() string {
	return b.Date.Format(DateLayout)
}

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// MonthLayout is the wire format of calendar months.
const MonthLayout = "2006-01"

// BookingRequest represents the request payload for creating a booking.
type BookingRequest struct {
	LocationSlug string   `json:"locationSlug"`
	Date         string   `json:"date"`
	Slot         string   `json:"slot"`
	Customer     Customer `json:"customer"`
	ServiceType  string   `json:"serviceType"`
	MachineModel string   `json:"machineModel,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

// BookingResponse is returned after a successful booking.
type BookingResponse struct {
	ID     uuid.UUID     `json:"bookingId"`
	Date   string        `json:"date"`
	Slot   string        `json:"slot"`
	Status BookingStatus `json:"status"`
}

// BookingStatusRequest is the admin request body for a booking status change.
type BookingStatusRequest struct {
	Status string `json:"status"`
}

// AvailabilityResponse lists the bookable slots for a location and date.
type AvailabilityResponse struct {
	Date         string   `json:"date"`
	LocationName string   `json:"locationName"`
	Slots        []string `json:"slots"`
}

// FullyBookedResponse lists the dates in a month without free capacity.
type FullyBookedResponse struct {
	Month string   `json:"month"`
	Dates []string `json:"dates"`
}
