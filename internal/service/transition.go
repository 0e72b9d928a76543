package service

import (
	"context"
	"fmt"
	"time"

	"repairshop/internal/model"
	"repairshop/internal/orderstate"
	"repairshop/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Transition triggers recorded in the status log.
const (
	triggerGateway  = "gateway"
	triggerAdmin    = "admin"
	triggerCustomer = "customer"
	triggerCheckout = "checkout"
)

// transition describes one state machine step for an order.
type transition struct {
	event   orderstate.Event
	trigger string

	// eventID deduplicates gateway deliveries when set.
	eventID   string
	eventType string

	// check may reject the outcome computed under the lock before anything is written.
	check func(orderstate.Outcome) error

	// mutate runs on the locked order before a changed outcome is persisted.
	mutate func(*model.Order)
}

type transitionResult struct {
	order     *model.Order
	outcome   orderstate.Outcome
	duplicate bool
}

// transitioner is the only writer of order status.
type transitioner struct {
	orderRepo repository.OrderRepository
	now       func() time.Time
	logger    zerolog.Logger
}

// apply loads the order under a row lock, runs the state machine and
// persists a changed outcome together with its status log entry.
func (t *transitioner) apply(ctx context.Context, id uuid.UUID, tr transition) (res *transitionResult, err error) {
	tx, err := t.orderRepo.BeginTx(ctx)
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to transition order: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				t.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	order, err := t.orderRepo.LockByID(ctx, tx, id)
	if err != nil {
		t.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to lock order")
		return nil, fmt.Errorf("failed to transition order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	res = &transitionResult{order: order}

	if tr.eventID != "" {
		fresh, markErr := t.orderRepo.MarkEventProcessed(ctx, tx, tr.eventID, tr.eventType, id)
		if markErr != nil {
			err = markErr
			t.logger.Error().Err(err).Str("event_id", tr.eventID).Msg("failed to record gateway event")
			return nil, fmt.Errorf("failed to transition order: %w", err)
		}
		if !fresh {
			res.duplicate = true
			res.outcome = orderstate.Outcome{From: order.Status, To: order.Status}
			if err = tx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("failed to transition order: %w", err)
			}
			return res, nil
		}
	}

	out, err := orderstate.Apply(orderstate.Input{
		Status:              order.Status,
		HasPaymentReference: order.HasPaymentReference(),
	}, tr.event)
	if err != nil {
		return nil, err
	}
	if tr.check != nil {
		if err = tr.check(out); err != nil {
			return nil, err
		}
	}
	res.outcome = out

	if out.Changed {
		if tr.mutate != nil {
			tr.mutate(order)
		}
		orderstate.Stamp(order, out, t.now().UTC())

		if err = t.orderRepo.SaveStatus(ctx, tx, order); err != nil {
			t.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to save order status")
			return nil, fmt.Errorf("failed to transition order: %w", err)
		}
		if err = t.orderRepo.AppendStatusLog(ctx, tx, id, out.From, out.To, tr.trigger); err != nil {
			t.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to append status log")
			return nil, fmt.Errorf("failed to transition order: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		t.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to transition order: %w", err)
	}

	if out.Changed {
		t.logger.Info().
			Str("order_id", id.String()).
			Str("event", string(tr.event)).
			Str("from", string(out.From)).
			Str("to", string(out.To)).
			Str("trigger", tr.trigger).
			Msg("order status changed")
	}

	return res, nil
}
