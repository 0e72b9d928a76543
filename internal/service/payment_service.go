package service

import (
	"context"
	"fmt"
	"time"

	"repairshop/internal/model"
	"repairshop/internal/orderstate"
	"repairshop/internal/payment"
	"repairshop/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// paymentService implements PaymentService.
type paymentService struct {
	orderRepo   repository.OrderRepository
	gateway     payment.Gateway
	notifier    Notifier
	transitions *transitioner
	logger      zerolog.Logger
}

// NewPaymentService creates a new payment reconciliation service.
func NewPaymentService(
	orderRepo repository.OrderRepository,
	gateway payment.Gateway,
	notifier Notifier,
	logger zerolog.Logger,
) PaymentService {
	logger = logger.With().Str("service", "payment").Logger()
	return &paymentService{
		orderRepo:   orderRepo,
		gateway:     gateway,
		notifier:    notifier,
		transitions: &transitioner{orderRepo: orderRepo, now: time.Now, logger: logger},
		logger:      logger,
	}
}

// HandleGatewayEvent verifies a gateway notification and applies it to the
// order it references. It returns an error only for signature failures and
// storage failures; the latter make the gateway redeliver.
func (s *paymentService) HandleGatewayEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseEvent(payload, signature)
	if err != nil {
		s.logger.Warn().Err(err).Msg("rejected gateway event")
		return err
	}

	ctx, span := tracer.Start(ctx, "payment.gateway_event")
	defer span.End()
	span.SetAttributes(
		attribute.String("gateway.event_id", event.ID),
		attribute.String("gateway.event_type", event.Type),
	)

	log := s.logger.With().Str("event_id", event.ID).Str("event_type", event.Type).Logger()

	switch event.Type {
	case payment.EventCheckoutCompleted:
		err = s.checkoutCompleted(ctx, event, log)
	case payment.EventCheckoutExpired:
		err = s.byOrderID(ctx, event, orderstate.CheckoutExpired, log)
	case payment.EventChargeRefunded:
		err = s.chargeRefunded(ctx, event, log)
	default:
		log.Debug().Msg("ignoring gateway event type")
		return nil
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (s *paymentService) checkoutCompleted(ctx context.Context, event *payment.Event, log zerolog.Logger) error {
	id, ok := parseOrderID(event, log)
	if !ok {
		return nil
	}

	res, err := s.transitions.apply(ctx, id, transition{
		event:     orderstate.CheckoutCompleted,
		trigger:   triggerGateway,
		eventID:   event.ID,
		eventType: event.Type,
		mutate: func(o *model.Order) {
			if event.PaymentIntentID != "" {
				pi := event.PaymentIntentID
				o.PaymentIntentID = &pi
			}
		},
	})
	if err != nil {
		return s.settle(err, id, log)
	}

	if res.duplicate || !res.outcome.HasEffect(orderstate.SendConfirmation) {
		log.Debug().Str("order_id", id.String()).Msg("checkout completion already applied")
		return nil
	}

	// Payment state is committed; the confirmation is best effort.
	_, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("order_id", id.String()).Msg("order confirmation not sent: items unavailable")
		return nil
	}
	if err := s.notifier.OrderConfirmation(ctx, res.order, items); err != nil {
		log.Warn().Err(err).Str("order_id", id.String()).Msg("order confirmation not sent")
	}
	return nil
}

func (s *paymentService) byOrderID(ctx context.Context, event *payment.Event, ev orderstate.Event, log zerolog.Logger) error {
	id, ok := parseOrderID(event, log)
	if !ok {
		return nil
	}
	_, err := s.transitions.apply(ctx, id, transition{
		event:     ev,
		trigger:   triggerGateway,
		eventID:   event.ID,
		eventType: event.Type,
	})
	if err != nil {
		return s.settle(err, id, log)
	}
	return nil
}

// chargeRefunded correlates by payment intent; refund events carry no
// checkout metadata.
func (s *paymentService) chargeRefunded(ctx context.Context, event *payment.Event, log zerolog.Logger) error {
	if event.PaymentIntentID == "" {
		log.Warn().Msg("refund event without payment intent")
		return nil
	}

	id, found, err := s.orderRepo.FindIDByPaymentIntent(ctx, event.PaymentIntentID)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve payment intent")
		return fmt.Errorf("failed to resolve payment intent: %w", err)
	}
	if !found {
		log.Warn().Str("payment_intent", event.PaymentIntentID).Msg("no order for payment intent")
		return nil
	}

	_, err = s.transitions.apply(ctx, id, transition{
		event:     orderstate.ChargeRefunded,
		trigger:   triggerGateway,
		eventID:   event.ID,
		eventType: event.Type,
	})
	if err != nil {
		return s.settle(err, id, log)
	}
	return nil
}

// settle accepts domain rejections of a gateway event and returns
// everything else so the gateway retries.
func (s *paymentService) settle(err error, id uuid.UUID, log zerolog.Logger) error {
	switch model.CodeOf(err) {
	case model.ErrCodeNotFound:
		log.Warn().Str("order_id", id.String()).Msg("gateway event for unknown order")
		return nil
	case model.ErrCodeConflict, model.ErrCodeInvalid:
		log.Warn().Err(err).Str("order_id", id.String()).Msg("gateway event not applicable")
		return nil
	}
	return err
}

func parseOrderID(event *payment.Event, log zerolog.Logger) (uuid.UUID, bool) {
	if event.OrderID == "" {
		log.Warn().Msg("gateway event without order id")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(event.OrderID)
	if err != nil {
		log.Warn().Str("order_id", event.OrderID).Msg("gateway event with malformed order id")
		return uuid.Nil, false
	}
	return id, true
}
