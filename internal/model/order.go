package model

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending               OrderStatus = "pending"
	OrderStatusPaid                  OrderStatus = "paid"
	OrderStatusInProcess             OrderStatus = "in_process"
	OrderStatusFulfilled             OrderStatus = "fulfilled"
	OrderStatusShipped               OrderStatus = "shipped"
	OrderStatusCancellationRequested OrderStatus = "cancellation_requested"
	OrderStatusCancelled             OrderStatus = "cancelled"
	OrderStatusRefunded              OrderStatus = "refunded"
)

// FulfillmentType describes how an order reaches the customer.
type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "pickup"
	FulfillmentShipping FulfillmentType = "shipping"
)

// Customer holds contact details captured with an order or booking.
type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Address is a shipping destination.
type Address struct {
	Street string `json:"street"`
	City   string `json:"city"`
	Zip    string `json:"zip"`
}

// Order represents a customer purchase order.
// Monetary amounts are integer minor units of Currency.
type Order struct {
	ID                      uuid.UUID       `json:"id" db:"id"`
	OrderNumber             string          `json:"orderNumber" db:"order_number"`
	UserID                  *string         `json:"userId,omitempty" db:"user_id"`
	Customer                Customer        `json:"customer"`
	FulfillmentType         FulfillmentType `json:"fulfillmentType" db:"fulfillment_type"`
	LocationSlug            *string         `json:"locationSlug,omitempty" db:"location_slug"`
	ShippingAddress         *Address        `json:"shippingAddress,omitempty" db:"shipping_address"`
	SubtotalAmount          int64           `json:"subtotalAmount" db:"subtotal_amount"`
	ShippingCost            int64           `json:"shippingCost" db:"shipping_cost"`
	TotalAmount             int64           `json:"totalAmount" db:"total_amount"`
	Currency                string          `json:"currency" db:"currency"`
	CheckoutSessionID       *string         `json:"-" db:"checkout_session_id"`
	PaymentIntentID         *string         `json:"-" db:"payment_intent_id"`
	Status                  OrderStatus     `json:"status" db:"status"`
	PaidAt                  *time.Time      `json:"paidAt,omitempty" db:"paid_at"`
	FulfilledAt             *time.Time      `json:"fulfilledAt,omitempty" db:"fulfilled_at"`
	ShippedAt               *time.Time      `json:"shippedAt,omitempty" db:"shipped_at"`
	CancellationRequestedAt *time.Time      `json:"cancellationRequestedAt,omitempty" db:"cancellation_requested_at"`
	CreatedAt               time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt               time.Time       `json:"updatedAt" db:"updated_at"`
}

// HasPaymentReference reports whether the order has a gateway payment intent.
func (o *Order) HasPaymentReference() bool {
	return o.PaymentIntentID != nil && *o.PaymentIntentID != ""
}

// OrderItem represents a line item in an order. Name and price are
// snapshots taken at checkout time.
type OrderItem struct {
	ID          uuid.UUID `json:"-" db:"id"`
	OrderID     uuid.UUID `json:"-" db:"order_id"`
	ProductID   string    `json:"productId,omitempty" db:"product_id"`
	ProductName string    `json:"productName" db:"product_name"`
	Quantity    int       `json:"quantity" db:"quantity"`
	UnitPrice   int64     `json:"unitPrice" db:"unit_price"`
}

// CheckoutRequest represents the request payload for starting a checkout.
type CheckoutRequest struct {
	Customer        Customer           `json:"customer"`
	FulfillmentType FulfillmentType    `json:"fulfillmentType"`
	LocationSlug    string             `json:"locationSlug,omitempty"`
	ShippingAddress *Address           `json:"shippingAddress,omitempty"`
	Items           []OrderItemRequest `json:"items"`
}

// OrderItemRequest represents a single item in a checkout request.
type OrderItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// CheckoutResponse is returned once the order exists and a payment session is open.
type CheckoutResponse struct {
	OrderID     uuid.UUID `json:"orderId"`
	OrderNumber string    `json:"orderNumber"`
	CheckoutURL string    `json:"checkoutUrl"`
	TotalAmount int64     `json:"totalAmount"`
	Currency    string    `json:"currency"`
}

// OrderResponse represents the response payload for an order.
type OrderResponse struct {
	Order Order       `json:"order"`
	Items []OrderItem `json:"items"`
}

// OrderTransitionRequest is the admin request body for an order transition.
type OrderTransitionRequest struct {
	Action string `json:"action"`
}

// OrderTransitionResponse reports the result of an admin transition.
type OrderTransitionResponse struct {
	OrderID  uuid.UUID   `json:"orderId"`
	From     OrderStatus `json:"from"`
	Status   OrderStatus `json:"status"`
	Changed  bool        `json:"changed"`
	Refunded bool        `json:"refunded"`
}

// ShippingQuote describes the shipping cost for a subtotal.
type ShippingQuote struct {
	Cost            int64 `json:"cost"`
	IsFree          bool  `json:"isFree"`
	FreeThreshold   int64 `json:"freeThreshold"`
	AmountUntilFree int64 `json:"amountUntilFree"`
}
