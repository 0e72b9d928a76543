// Package orderstate holds the order lifecycle transition table.
//
// Apply is the single place where order status changes are decided. It is
// pure: callers load the order under a row lock, call Apply, persist the
// returned status and timestamps, and run the returned effects once.
package orderstate

import (
	"fmt"
	"time"

	"repairshop/internal/model"
)

// Event triggers an order transition.
type Event string

const (
	// Gateway events.
	CheckoutCompleted Event = "checkout_completed"
	CheckoutExpired   Event = "checkout_expired"
	ChargeRefunded    Event = "charge_refunded"

	// Admin actions.
	Refund        Event = "refund"
	MarkInProcess Event = "mark_in_process"
	MarkFulfilled Event = "mark_fulfilled"
	MarkShipped   Event = "mark_shipped"
	MarkCancelled Event = "mark_cancelled"

	// Customer actions.
	RequestCancellation Event = "request_cancellation"
)

// AdminActions are the events an administrator may request by name.
var AdminActions = map[string]Event{
	string(Refund):        Refund,
	string(MarkInProcess): MarkInProcess,
	string(MarkFulfilled): MarkFulfilled,
	string(MarkShipped):   MarkShipped,
	string(MarkCancelled): MarkCancelled,
}

// Effect is a side effect the caller must perform after persisting a transition.
type Effect string

const (
	SendConfirmation Effect = "send_confirmation"
	IssueRefund      Effect = "issue_refund"
)

// Outcome is the result of applying an event.
type Outcome struct {
	From    model.OrderStatus
	To      model.OrderStatus
	Changed bool
	Effects []Effect
}

// HasEffect reports whether e is among the outcome's effects.
func (o Outcome) HasEffect(e Effect) bool {
	for _, x := range o.Effects {
		if x == e {
			return true
		}
	}
	return false
}

// Input carries the order facts the guards depend on.
type Input struct {
	Status              model.OrderStatus
	HasPaymentReference bool
}

var shippable = set(model.OrderStatusPaid, model.OrderStatusInProcess, model.OrderStatusFulfilled)

var refundable = set(
	model.OrderStatusPaid,
	model.OrderStatusInProcess,
	model.OrderStatusFulfilled,
	model.OrderStatusShipped,
	model.OrderStatusCancellationRequested,
)

var cancellable = set(model.OrderStatusPaid, model.OrderStatusInProcess)

// Known reports whether s is a valid order status.
func Known(s model.OrderStatus) bool {
	switch s {
	case model.OrderStatusPending, model.OrderStatusPaid, model.OrderStatusInProcess,
		model.OrderStatusFulfilled, model.OrderStatusShipped, model.OrderStatusCancellationRequested,
		model.OrderStatusCancelled, model.OrderStatusRefunded:
		return true
	}
	return false
}

// Apply decides the transition for ev from in.Status. A nil error with
// Changed=false is an idempotent no-op; illegal transitions return a
// CONFLICT domain error.
func Apply(in Input, ev Event) (Outcome, error) {
	from := in.Status
	if !Known(from) {
		return Outcome{}, model.Invalid(fmt.Sprintf("unknown order status %q", from))
	}

	if from == model.OrderStatusRefunded {
		if ev == ChargeRefunded {
			return noop(from), nil
		}
		return Outcome{}, model.ErrOrderRefunded
	}

	switch ev {
	case CheckoutCompleted:
		switch from {
		case model.OrderStatusPending:
			return move(from, model.OrderStatusPaid, SendConfirmation), nil
		case model.OrderStatusCancelled:
			return Outcome{}, illegal(from, ev)
		default:
			return noop(from), nil
		}

	case CheckoutExpired:
		if from == model.OrderStatusPending {
			return move(from, model.OrderStatusCancelled), nil
		}
		return noop(from), nil

	case ChargeRefunded:
		return move(from, model.OrderStatusRefunded), nil

	case Refund:
		if !refundable[from] {
			return Outcome{}, illegal(from, ev)
		}
		if !in.HasPaymentReference {
			return move(from, model.OrderStatusCancelled), nil
		}
		return move(from, model.OrderStatusRefunded, IssueRefund), nil

	case MarkInProcess:
		if from != model.OrderStatusPaid {
			return Outcome{}, illegal(from, ev)
		}
		return move(from, model.OrderStatusInProcess), nil

	case MarkFulfilled:
		if from != model.OrderStatusInProcess {
			return Outcome{}, illegal(from, ev)
		}
		return move(from, model.OrderStatusFulfilled), nil

	case MarkShipped:
		if !shippable[from] {
			return Outcome{}, illegal(from, ev)
		}
		return move(from, model.OrderStatusShipped), nil

	case MarkCancelled:
		if from == model.OrderStatusCancelled {
			return noop(from), nil
		}
		return move(from, model.OrderStatusCancelled), nil

	case RequestCancellation:
		if from == model.OrderStatusCancellationRequested {
			return noop(from), nil
		}
		if !cancellable[from] {
			return Outcome{}, illegal(from, ev)
		}
		return move(from, model.OrderStatusCancellationRequested), nil
	}

	return Outcome{}, model.ErrUnknownAction
}

// Stamp updates the order's status and lifecycle timestamps for a changed
// outcome. It does nothing for a no-op.
func Stamp(o *model.Order, out Outcome, at time.Time) {
	if !out.Changed {
		return
	}
	o.Status = out.To
	o.UpdatedAt = at
	switch out.To {
	case model.OrderStatusPaid:
		o.PaidAt = &at
	case model.OrderStatusFulfilled:
		o.FulfilledAt = &at
	case model.OrderStatusShipped:
		o.ShippedAt = &at
	case model.OrderStatusCancellationRequested:
		o.CancellationRequestedAt = &at
	case model.OrderStatusCancelled:
		o.CancellationRequestedAt = nil
	}
}

func move(from, to model.OrderStatus, effects ...Effect) Outcome {
	return Outcome{From: from, To: to, Changed: from != to, Effects: effects}
}

func noop(s model.OrderStatus) Outcome {
	return Outcome{From: s, To: s}
}

func illegal(from model.OrderStatus, ev Event) error {
	return model.Conflict(fmt.Sprintf("cannot apply %s to an order that is %s", ev, from))
}

func set(statuses ...model.OrderStatus) map[model.OrderStatus]bool {
	m := make(map[model.OrderStatus]bool, len(statuses))
	for _, s := range statuses {
		m[s] = true
	}
	return m
}
