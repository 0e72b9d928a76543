package model

import "errors"

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON      = "INVALID_JSON"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeInvalid          = "INVALID"
	ErrCodeCapacityExceeded = "CAPACITY_EXCEEDED"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeUpstreamFailure  = "UPSTREAM_FAILURE"
	ErrCodeSignatureInvalid = "SIGNATURE_INVALID"
	ErrCodeUnauthorised     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Invalid creates an INVALID domain error with the given message.
func Invalid(message string) *DomainError {
	return NewDomainError(ErrCodeInvalid, message)
}

// Conflict creates a CONFLICT domain error with the given message.
func Conflict(message string) *DomainError {
	return NewDomainError(ErrCodeConflict, message)
}

// CodeOf returns the domain error code carried by err, or ErrCodeInternalError
// when err is not (and does not wrap) a DomainError.
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// Common domain errors
var (
	ErrLocationNotFound = NewDomainError(ErrCodeNotFound, "Location not found")
	ErrOrderNotFound    = NewDomainError(ErrCodeNotFound, "Order not found")
	ErrBookingNotFound  = NewDomainError(ErrCodeNotFound, "Booking not found")
	ErrProductNotFound  = NewDomainError(ErrCodeNotFound, "One or more products not found")

	ErrInvalidDate     = NewDomainError(ErrCodeInvalid, "Date must be formatted as YYYY-MM-DD")
	ErrInvalidMonth    = NewDomainError(ErrCodeInvalid, "Month must be formatted as YYYY-MM")
	ErrDateInPast      = NewDomainError(ErrCodeInvalid, "Date must not be before today")
	ErrInvalidSlot     = NewDomainError(ErrCodeInvalid, "Requested time slot is not offered on that date")
	ErrInvalidQuantity = NewDomainError(ErrCodeInvalid, "Quantity must be between 1 and 999")
	ErrUnknownAction   = NewDomainError(ErrCodeInvalid, "Unknown order action")
	ErrUnknownStatus   = NewDomainError(ErrCodeInvalid, "Unknown status")

	ErrSlotFull = NewDomainError(ErrCodeCapacityExceeded, "Time slot is fully booked")

	ErrOrderRefunded = NewDomainError(ErrCodeConflict, "Refunded orders cannot be changed")
	ErrOrderNotOwned = NewDomainError(ErrCodeForbidden, "Order belongs to another customer")

	ErrRefundFailed   = NewDomainError(ErrCodeUpstreamFailure, "Payment provider refund failed")
	ErrCheckoutFailed = NewDomainError(ErrCodeUpstreamFailure, "Payment provider checkout failed")

	ErrSignatureInvalid = NewDomainError(ErrCodeSignatureInvalid, "Webhook signature verification failed")
)
