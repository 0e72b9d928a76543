package handler

import (
	"context"
	"encoding/json"
	"testing"

	"repairshop/internal/auth"
	"repairshop/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CheckoutResponse), args.Error(1)
}

func (m *MockOrderService) GetStatus(ctx context.Context, orderNumber string) (*model.OrderResponse, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) RequestCancellation(ctx context.Context, orderNumber string, identity auth.Identity) (*model.OrderResponse, error) {
	args := m.Called(ctx, orderNumber, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) Transition(ctx context.Context, id uuid.UUID, action string) (*model.OrderTransitionResponse, error) {
	args := m.Called(ctx, id, action)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderTransitionResponse), args.Error(1)
}

func (m *MockOrderService) ShippingQuote(subtotal int64) (*model.ShippingQuote, error) {
	args := m.Called(subtotal)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ShippingQuote), args.Error(1)
}

// MockBookingService is a mock implementation of BookingService.
type MockBookingService struct {
	mock.Mock
}

func (m *MockBookingService) Create(ctx context.Context, req *model.BookingRequest) (*model.BookingResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BookingResponse), args.Error(1)
}

func (m *MockBookingService) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (*model.Booking, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

// MockAvailabilityService is a mock implementation of AvailabilityService.
type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) AvailableSlots(ctx context.Context, locationSlug, date string) (*model.AvailabilityResponse, error) {
	args := m.Called(ctx, locationSlug, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AvailabilityResponse), args.Error(1)
}

func (m *MockAvailabilityService) FullyBookedDates(ctx context.Context, locationSlug, month string) (*model.FullyBookedResponse, error) {
	args := m.Called(ctx, locationSlug, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.FullyBookedResponse), args.Error(1)
}

// MockPaymentService is a mock implementation of PaymentService.
type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) HandleGatewayEvent(ctx context.Context, payload []byte, signature string) error {
	args := m.Called(ctx, payload, signature)
	return args.Error(0)
}

func decodeError(t *testing.T, body []byte) model.ErrorResponse {
	t.Helper()
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}
