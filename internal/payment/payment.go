// Package payment adapts the external payment gateway.
package payment

import (
	"context"

	"github.com/google/uuid"
)

// Gateway event types the shop reacts to. Any other type is accepted and ignored.
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventChargeRefunded    = "charge.refunded"
)

// MetadataOrderID is the checkout metadata key carrying the internal order id.
const MetadataOrderID = "order_id"

// Gateway is the payment provider contract.
type Gateway interface {
	// CreateCheckoutSession opens a hosted payment page for an order.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)

	// ParseEvent verifies the signature over payload and decodes the event.
	// A failed verification returns model.ErrSignatureInvalid.
	ParseEvent(payload []byte, signatureHeader string) (*Event, error)

	// Refund refunds the full amount captured by a payment intent.
	Refund(ctx context.Context, paymentIntentID, idempotencyKey string) error
}

// LineItem is one purchasable line in a checkout session.
type LineItem struct {
	Name       string
	Quantity   int64
	UnitAmount int64
}

// CheckoutRequest describes the checkout session to create.
type CheckoutRequest struct {
	OrderID       uuid.UUID
	OrderNumber   string
	CustomerEmail string
	Currency      string
	Items         []LineItem
	ShippingCost  int64
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the gateway's handle for a hosted checkout.
type CheckoutSession struct {
	ID  string
	URL string
}

// Event is a verified gateway notification reduced to the fields the shop uses.
type Event struct {
	ID              string
	Type            string
	OrderID         string
	PaymentIntentID string
}
