// Package notify renders transactional messages and hands them to a sender.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"repairshop/internal/model"

	"github.com/rs/zerolog"
)

// Message kinds double as the routing key suffix on the broker.
const (
	KindOrderConfirmation   = "order_confirmation"
	KindBookingConfirmation = "booking_confirmation"
)

// Message is a rendered e-mail ready for delivery.
type Message struct {
	Kind    string `json:"kind"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Sender delivers rendered messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier builds confirmation messages from domain data.
type Notifier struct {
	sender Sender
	logger zerolog.Logger
}

// New creates a notifier that delivers through sender.
func New(sender Sender, logger zerolog.Logger) *Notifier {
	return &Notifier{
		sender: sender,
		logger: logger.With().Str("component", "notifier").Logger(),
	}
}

var funcs = template.FuncMap{
	"money": formatMoney,
	"mul":   func(a int, b int64) int64 { return int64(a) * b },
}

var orderConfirmation = template.Must(template.New("order").Funcs(funcs).Parse(
	`Hello {{.Order.Customer.Name}},

thank you for your order {{.Order.OrderNumber}}. We have received your payment.

{{range .Items}}{{.Quantity}} x {{.ProductName}}  {{money (mul .Quantity .UnitPrice) $.Order.Currency}}
{{end}}
Subtotal: {{money .Order.SubtotalAmount .Order.Currency}}
Shipping: {{if eq .Order.ShippingCost 0}}free{{else}}{{money .Order.ShippingCost .Order.Currency}}{{end}}
Total:    {{money .Order.TotalAmount .Order.Currency}}
{{if eq (print .Order.FulfillmentType) "pickup"}}
Your order will be ready for pickup{{with .Order.LocationSlug}} at {{.}}{{end}}. We will let you know when it is ready.
{{else}}{{with .Order.ShippingAddress}}
Shipping to:
{{.Street}}
{{.Zip}} {{.City}}
{{end}}{{end}}`))

var bookingConfirmation = template.Must(template.New("booking").Funcs(funcs).Parse(
	`Hello {{.Booking.Customer.Name}},

your repair appointment is confirmed.

Location: {{.LocationName}}
Date:     {{.Booking.DateString}}
Time:     {{.Booking.Slot}}
Service:  {{.Booking.ServiceType}}
{{with .Booking.MachineModel}}Machine:  {{.}}
{{end}}{{with .Booking.Notes}}Notes:    {{.}}
{{end}}
Reference: {{.Booking.ID}}
`))

// RenderOrderConfirmation renders the payment confirmation for an order.
func RenderOrderConfirmation(order *model.Order, items []model.OrderItem) (Message, error) {
	var buf bytes.Buffer
	err := orderConfirmation.Execute(&buf, struct {
		Order *model.Order
		Items []model.OrderItem
	}{order, items})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render order confirmation: %w", err)
	}
	return Message{
		Kind:    KindOrderConfirmation,
		To:      order.Customer.Email,
		Subject: fmt.Sprintf("Order confirmation %s", order.OrderNumber),
		Body:    buf.String(),
	}, nil
}

// RenderBookingConfirmation renders the confirmation for a repair booking.
func RenderBookingConfirmation(b *model.Booking, locationName string) (Message, error) {
	var buf bytes.Buffer
	err := bookingConfirmation.Execute(&buf, struct {
		Booking      *model.Booking
		LocationName string
	}{b, locationName})
	if err != nil {
		return Message{}, fmt.Errorf("failed to render booking confirmation: %w", err)
	}
	return Message{
		Kind:    KindBookingConfirmation,
		To:      b.Customer.Email,
		Subject: fmt.Sprintf("Repair appointment on %s at %s", b.DateString(), b.Slot),
		Body:    buf.String(),
	}, nil
}

// OrderConfirmation renders and sends the payment confirmation.
func (n *Notifier) OrderConfirmation(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	msg, err := RenderOrderConfirmation(order, items)
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send order confirmation: %w", err)
	}
	n.logger.Info().Str("order_number", order.OrderNumber).Msg("order confirmation sent")
	return nil
}

// BookingConfirmation renders and sends a booking confirmation.
func (n *Notifier) BookingConfirmation(ctx context.Context, b *model.Booking, locationName string) error {
	msg, err := RenderBookingConfirmation(b, locationName)
	if err != nil {
		return err
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send booking confirmation: %w", err)
	}
	n.logger.Info().Str("booking_id", b.ID.String()).Msg("booking confirmation sent")
	return nil
}

func formatMoney(cents int64, currency string) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, cents/100, cents%100, strings.ToUpper(currency))
}
