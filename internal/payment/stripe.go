package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"repairshop/internal/model"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// stripeGateway implements Gateway on the Stripe API.
type stripeGateway struct {
	api           *client.API
	webhookSecret string
	logger        zerolog.Logger
}

// NewStripeGateway creates a Stripe-backed gateway.
func NewStripeGateway(secretKey, webhookSecret string, logger zerolog.Logger) Gateway {
	return &stripeGateway{
		api:           client.New(secretKey, nil),
		webhookSecret: webhookSecret,
		logger:        logger.With().Str("component", "stripe-gateway").Logger(),
	}
}

// CreateCheckoutSession opens a Stripe Checkout session. The order id is
// written to both session and payment intent metadata.
func (g *stripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	metadata := map[string]string{
		MetadataOrderID: req.OrderID.String(),
		"order_number":  req.OrderNumber,
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		CustomerEmail:     stripe.String(req.CustomerEmail),
		ClientReferenceID: stripe.String(req.OrderID.String()),
		Metadata:          metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}

	for _, item := range req.Items {
		params.LineItems = append(params.LineItems, lineItem(req.Currency, item.Name, item.UnitAmount, item.Quantity))
	}
	if req.ShippingCost > 0 {
		params.LineItems = append(params.LineItems, lineItem(req.Currency, "Shipping", req.ShippingCost, 1))
	}

	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + req.OrderID.String())

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		g.logger.Error().Err(err).Str("order_id", req.OrderID.String()).Msg("failed to create checkout session")
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func lineItem(currency, name string, unitAmount, quantity int64) *stripe.CheckoutSessionLineItemParams {
	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency: stripe.String(currency),
			ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
				Name: stripe.String(name),
			},
			UnitAmount: stripe.Int64(unitAmount),
		},
		Quantity: stripe.Int64(quantity),
	}
}

// ParseEvent verifies the Stripe-Signature header and decodes the event.
func (g *stripeGateway) ParseEvent(payload []byte, signatureHeader string) (*Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		g.logger.Warn().Err(err).Msg("webhook signature verification failed")
		return nil, model.ErrSignatureInvalid
	}

	out := &Event{ID: ev.ID, Type: string(ev.Type)}

	// A signed event whose object cannot be decoded will not decode on
	// redelivery either. It is returned without correlation fields so the
	// caller acknowledges it instead of making the gateway retry forever.
	switch out.Type {
	case EventCheckoutCompleted, EventCheckoutExpired:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(ev.Data.Raw, &sess); err != nil {
			g.logUndecodable(out, err)
			return out, nil
		}
		out.OrderID = sess.Metadata[MetadataOrderID]
		if sess.PaymentIntent != nil {
			out.PaymentIntentID = sess.PaymentIntent.ID
		}

	case EventChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(ev.Data.Raw, &charge); err != nil {
			g.logUndecodable(out, err)
			return out, nil
		}
		if charge.PaymentIntent != nil {
			out.PaymentIntentID = charge.PaymentIntent.ID
		}
	}

	return out, nil
}

func (g *stripeGateway) logUndecodable(ev *Event, err error) {
	g.logger.Warn().
		Err(err).
		Str("event_id", ev.ID).
		Str("event_type", ev.Type).
		Msg("acknowledging gateway event with undecodable object")
}

// Refund issues a full refund for a payment intent.
func (g *stripeGateway) Refund(ctx context.Context, paymentIntentID, idempotencyKey string) error {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx
	params.SetIdempotencyKey(idempotencyKey)

	r, err := g.api.Refunds.New(params)
	if err != nil {
		g.logger.Error().Err(err).Str("payment_intent", paymentIntentID).Msg("refund failed")
		return fmt.Errorf("failed to refund payment intent %s: %w", paymentIntentID, err)
	}

	g.logger.Info().
		Str("payment_intent", paymentIntentID).
		Str("refund_id", r.ID).
		Str("status", string(r.Status)).
		Msg("refund issued")

	return nil
}
