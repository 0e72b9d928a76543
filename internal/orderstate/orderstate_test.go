package orderstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repairshop/internal/model"
)

var allStatuses = []model.OrderStatus{
	model.OrderStatusPending,
	model.OrderStatusPaid,
	model.OrderStatusInProcess,
	model.OrderStatusFulfilled,
	model.OrderStatusShipped,
	model.OrderStatusCancellationRequested,
	model.OrderStatusCancelled,
	model.OrderStatusRefunded,
}

var allEvents = []Event{
	CheckoutCompleted, CheckoutExpired, ChargeRefunded,
	Refund, MarkInProcess, MarkFulfilled, MarkShipped, MarkCancelled,
	RequestCancellation,
}

func TestApply_TransitionTable(t *testing.T) {
	tests := []struct {
		name        string
		from        model.OrderStatus
		event       Event
		hasPayment  bool
		wantTo      model.OrderStatus
		wantChanged bool
		wantEffects []Effect
		wantCode    string
	}{
		{name: "checkout completed pays pending order", from: model.OrderStatusPending, event: CheckoutCompleted,
			wantTo: model.OrderStatusPaid, wantChanged: true, wantEffects: []Effect{SendConfirmation}},
		{name: "checkout completed on paid is a no-op", from: model.OrderStatusPaid, event: CheckoutCompleted,
			wantTo: model.OrderStatusPaid},
		{name: "checkout completed on shipped is a no-op", from: model.OrderStatusShipped, event: CheckoutCompleted,
			wantTo: model.OrderStatusShipped},
		{name: "checkout completed on cancelled conflicts", from: model.OrderStatusCancelled, event: CheckoutCompleted,
			wantCode: model.ErrCodeConflict},
		{name: "checkout expired cancels pending order", from: model.OrderStatusPending, event: CheckoutExpired,
			wantTo: model.OrderStatusCancelled, wantChanged: true},
		{name: "stale checkout expired is ignored", from: model.OrderStatusPaid, event: CheckoutExpired,
			wantTo: model.OrderStatusPaid},
		{name: "charge refunded from shipped", from: model.OrderStatusShipped, event: ChargeRefunded,
			wantTo: model.OrderStatusRefunded, wantChanged: true},
		{name: "charge refunded from pending", from: model.OrderStatusPending, event: ChargeRefunded,
			wantTo: model.OrderStatusRefunded, wantChanged: true},
		{name: "duplicate charge refunded is a no-op", from: model.OrderStatusRefunded, event: ChargeRefunded,
			wantTo: model.OrderStatusRefunded},
		{name: "admin refund with payment reference", from: model.OrderStatusPaid, event: Refund, hasPayment: true,
			wantTo: model.OrderStatusRefunded, wantChanged: true, wantEffects: []Effect{IssueRefund}},
		{name: "admin refund from cancellation requested", from: model.OrderStatusCancellationRequested, event: Refund, hasPayment: true,
			wantTo: model.OrderStatusRefunded, wantChanged: true, wantEffects: []Effect{IssueRefund}},
		{name: "admin refund without payment reference degrades to cancelled", from: model.OrderStatusFulfilled, event: Refund,
			wantTo: model.OrderStatusCancelled, wantChanged: true},
		{name: "admin refund of pending order conflicts", from: model.OrderStatusPending, event: Refund, hasPayment: true,
			wantCode: model.ErrCodeConflict},
		{name: "admin refund of cancelled order conflicts", from: model.OrderStatusCancelled, event: Refund, hasPayment: true,
			wantCode: model.ErrCodeConflict},
		{name: "mark in process from paid", from: model.OrderStatusPaid, event: MarkInProcess,
			wantTo: model.OrderStatusInProcess, wantChanged: true},
		{name: "mark in process from pending conflicts", from: model.OrderStatusPending, event: MarkInProcess,
			wantCode: model.ErrCodeConflict},
		{name: "mark fulfilled from in process", from: model.OrderStatusInProcess, event: MarkFulfilled,
			wantTo: model.OrderStatusFulfilled, wantChanged: true},
		{name: "mark fulfilled from paid conflicts", from: model.OrderStatusPaid, event: MarkFulfilled,
			wantCode: model.ErrCodeConflict},
		{name: "mark shipped from fulfilled", from: model.OrderStatusFulfilled, event: MarkShipped,
			wantTo: model.OrderStatusShipped, wantChanged: true},
		{name: "mark shipped from paid", from: model.OrderStatusPaid, event: MarkShipped,
			wantTo: model.OrderStatusShipped, wantChanged: true},
		{name: "mark shipped from pending conflicts", from: model.OrderStatusPending, event: MarkShipped,
			wantCode: model.ErrCodeConflict},
		{name: "mark cancelled from shipped", from: model.OrderStatusShipped, event: MarkCancelled,
			wantTo: model.OrderStatusCancelled, wantChanged: true},
		{name: "mark cancelled twice is a no-op", from: model.OrderStatusCancelled, event: MarkCancelled,
			wantTo: model.OrderStatusCancelled},
		{name: "customer requests cancellation of paid order", from: model.OrderStatusPaid, event: RequestCancellation,
			wantTo: model.OrderStatusCancellationRequested, wantChanged: true},
		{name: "customer cannot cancel shipped order", from: model.OrderStatusShipped, event: RequestCancellation,
			wantCode: model.ErrCodeConflict},
		{name: "unknown event is invalid", from: model.OrderStatusPaid, event: Event("teleport"),
			wantCode: model.ErrCodeInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Apply(Input{Status: tt.from, HasPaymentReference: tt.hasPayment}, tt.event)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, model.CodeOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.from, out.From)
			assert.Equal(t, tt.wantTo, out.To)
			assert.Equal(t, tt.wantChanged, out.Changed)
			assert.Equal(t, tt.wantEffects, out.Effects)
		})
	}
}

func TestApply_RefundedIsTerminal(t *testing.T) {
	for _, ev := range allEvents {
		t.Run(string(ev), func(t *testing.T) {
			out, err := Apply(Input{Status: model.OrderStatusRefunded, HasPaymentReference: true}, ev)
			if ev == ChargeRefunded {
				require.NoError(t, err)
				assert.False(t, out.Changed)
				assert.Empty(t, out.Effects)
				return
			}
			require.Error(t, err)
			assert.Equal(t, model.ErrCodeConflict, model.CodeOf(err))
		})
	}
}

func TestApply_GatewayEventsAreIdempotent(t *testing.T) {
	for _, ev := range []Event{CheckoutCompleted, CheckoutExpired, ChargeRefunded} {
		for _, from := range allStatuses {
			first, err := Apply(Input{Status: from}, ev)
			if err != nil {
				continue
			}
			second, err := Apply(Input{Status: first.To}, ev)
			require.NoError(t, err, "%s from %s", ev, from)
			assert.False(t, second.Changed, "%s reapplied from %s", ev, first.To)
			assert.Empty(t, second.Effects, "%s reapplied from %s", ev, first.To)
			assert.Equal(t, first.To, second.To)
		}
	}
}

func TestApply_UnknownStatusRejected(t *testing.T) {
	_, err := Apply(Input{Status: "lost"}, MarkCancelled)
	require.Error(t, err)
	assert.Equal(t, model.ErrCodeInvalid, model.CodeOf(err))
}

func TestStamp(t *testing.T) {
	at := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

	t.Run("paid sets paidAt", func(t *testing.T) {
		o := &model.Order{Status: model.OrderStatusPending}
		out, err := Apply(Input{Status: o.Status}, CheckoutCompleted)
		require.NoError(t, err)

		Stamp(o, out, at)

		assert.Equal(t, model.OrderStatusPaid, o.Status)
		require.NotNil(t, o.PaidAt)
		assert.Equal(t, at, *o.PaidAt)
	})

	t.Run("cancel clears cancellation request", func(t *testing.T) {
		requested := at.Add(-time.Hour)
		o := &model.Order{Status: model.OrderStatusCancellationRequested, CancellationRequestedAt: &requested}
		out, err := Apply(Input{Status: o.Status}, MarkCancelled)
		require.NoError(t, err)

		Stamp(o, out, at)

		assert.Equal(t, model.OrderStatusCancelled, o.Status)
		assert.Nil(t, o.CancellationRequestedAt)
	})

	t.Run("no-op leaves order untouched", func(t *testing.T) {
		paidAt := at.Add(-time.Hour)
		o := &model.Order{Status: model.OrderStatusPaid, PaidAt: &paidAt}
		out, err := Apply(Input{Status: o.Status}, CheckoutCompleted)
		require.NoError(t, err)

		Stamp(o, out, at)

		assert.Equal(t, paidAt, *o.PaidAt)
		assert.True(t, o.UpdatedAt.IsZero())
	})
}
