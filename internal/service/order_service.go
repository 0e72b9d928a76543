package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"repairshop/internal/auth"
	"repairshop/internal/catalog"
	"repairshop/internal/model"
	"repairshop/internal/orderstate"
	"repairshop/internal/payment"
	"repairshop/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	orderNumberPrefix   = "KT-"
	orderNumberLength   = 6
	orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	orderNumberAttempts = 10

	// maxItemQuantity bounds a single line so quantity times price stays far
	// from int64 overflow and fits the INTEGER quantity column.
	maxItemQuantity = 999
)

// ShopSettings holds pricing and gateway settings for checkout.
type ShopSettings struct {
	Currency              string
	ShippingFlatRate      int64
	ShippingFreeThreshold int64
	SuccessURL            string
	CancelURL             string
	RefundTimeout         time.Duration
}

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	catalog     *catalog.Catalog
	gateway     payment.Gateway
	settings    ShopSettings
	transitions *transitioner
	newNumber   func() (string, error)
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	cat *catalog.Catalog,
	gateway payment.Gateway,
	settings ShopSettings,
	logger zerolog.Logger,
) OrderService {
	logger = logger.With().Str("service", "order").Logger()
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		catalog:     cat,
		gateway:     gateway,
		settings:    settings,
		transitions: &transitioner{orderRepo: orderRepo, now: time.Now, logger: logger},
		newNumber:   randomOrderNumber,
		logger:      logger,
	}
}

// Checkout creates a pending order from product snapshots and opens a
// gateway checkout session carrying the order id as metadata.
func (s *orderService) Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if err := s.validateCheckoutRequest(req); err != nil {
		return nil, err
	}

	// Snapshot names and prices
	productIDs := make([]string, 0, len(req.Items))
	seen := make(map[string]bool, len(req.Items))
	for _, item := range req.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			productIDs = append(productIDs, item.ProductID)
		}
	}

	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to retrieve products")
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	if len(byID) != len(productIDs) {
		s.logger.Warn().
			Int("requested", len(productIDs)).
			Int("found", len(byID)).
			Msg("product validation failed")
		return nil, model.ErrProductNotFound
	}

	now := time.Now().UTC()
	order := &model.Order{
		ID:              uuid.New(),
		Customer:        trimCustomer(req.Customer),
		FulfillmentType: req.FulfillmentType,
		Currency:        s.settings.Currency,
		Status:          model.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if identity, ok := auth.FromContext(ctx); ok {
		order.UserID = &identity.ID
	}

	items := make([]model.OrderItem, len(req.Items))
	for i, item := range req.Items {
		p := byID[item.ProductID]
		items[i] = model.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    item.Quantity,
			UnitPrice:   p.PriceCents,
		}
		order.SubtotalAmount += int64(item.Quantity) * p.PriceCents
	}
	if order.SubtotalAmount <= 0 {
		s.logger.Warn().
			Int64("subtotal", order.SubtotalAmount).
			Msg("checkout subtotal is not positive")
		return nil, model.Invalid("order subtotal must be greater than zero")
	}

	if req.FulfillmentType == model.FulfillmentPickup {
		slug := strings.TrimSpace(req.LocationSlug)
		order.LocationSlug = &slug
	} else {
		addr := *req.ShippingAddress
		order.ShippingAddress = &addr
		order.ShippingCost = s.quote(order.SubtotalAmount).Cost
	}
	order.TotalAmount = order.SubtotalAmount + order.ShippingCost

	if err := s.insertOrder(ctx, order, items); err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, s.checkoutRequest(order, items))
	if err != nil {
		s.logger.Error().Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create checkout session")
		if _, cancelErr := s.transitions.apply(ctx, order.ID, transition{
			event:   orderstate.CheckoutExpired,
			trigger: triggerCheckout,
		}); cancelErr != nil {
			s.logger.Error().Err(cancelErr).
				Str("order_id", order.ID.String()).
				Msg("failed to cancel order after checkout failure")
		}
		return nil, fmt.Errorf("%w: %v", model.ErrCheckoutFailed, err)
	}

	if err := s.orderRepo.SetCheckoutSession(ctx, order.ID, session.ID); err != nil {
		// Gateway events correlate by order id metadata, so the order stays usable.
		s.logger.Warn().Err(err).
			Str("order_id", order.ID.String()).
			Str("session_id", session.ID).
			Msg("failed to store checkout session")
	}

	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_number", order.OrderNumber).
		Int("item_count", len(items)).
		Int64("total", order.TotalAmount).
		Msg("order created")

	return &model.CheckoutResponse{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CheckoutURL: session.URL,
		TotalAmount: order.TotalAmount,
		Currency:    order.Currency,
	}, nil
}

// insertOrder writes the order and its items in one transaction, drawing a
// new order number whenever the previous one is taken.
func (s *orderService) insertOrder(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	for attempt := 0; attempt <= orderNumberAttempts; attempt++ {
		number, err := s.newNumber()
		if err != nil {
			return fmt.Errorf("failed to generate order number: %w", err)
		}
		if attempt == orderNumberAttempts {
			number = fallbackOrderNumber(time.Now())
		}
		order.OrderNumber = number

		err = s.insertOnce(ctx, order, items)
		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			s.logger.Debug().Str("order_number", number).Int("attempt", attempt).Msg("order number taken")
			continue
		}
		return err
	}
	return fmt.Errorf("failed to create order: %w", repository.ErrDuplicateOrderNumber)
}

func (s *orderService) insertOnce(ctx context.Context, order *model.Order, items []model.OrderItem) (err error) {
	tx, err := s.orderRepo.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to create order: %w", err)
	}

	// Ensure transaction is rolled back on error
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	if err = s.orderRepo.CreateOrder(ctx, tx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateOrderNumber) {
			return err
		}
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	if err = s.orderRepo.CreateOrderItems(ctx, tx, items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(items)).
			Msg("failed to create order items")
		return fmt.Errorf("failed to create order items: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit transaction")
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (s *orderService) checkoutRequest(order *model.Order, items []model.OrderItem) payment.CheckoutRequest {
	lines := make([]payment.LineItem, len(items))
	for i, item := range items {
		lines[i] = payment.LineItem{
			Name:       item.ProductName,
			Quantity:   int64(item.Quantity),
			UnitAmount: item.UnitPrice,
		}
	}
	return payment.CheckoutRequest{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		CustomerEmail: order.Customer.Email,
		Currency:      order.Currency,
		Items:         lines,
		ShippingCost:  order.ShippingCost,
		SuccessURL:    s.settings.SuccessURL,
		CancelURL:     s.settings.CancelURL,
	}
}

// GetStatus retrieves an order by its customer-facing number.
func (s *orderService) GetStatus(ctx context.Context, orderNumber string) (*model.OrderResponse, error) {
	number := normaliseOrderNumber(orderNumber)
	if number == "" {
		return nil, model.Invalid("orderNumber is required")
	}

	order, items, err := s.orderRepo.GetByNumber(ctx, number)
	if err != nil {
		s.logger.Error().Err(err).Str("order_number", number).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		s.logger.Debug().Str("order_number", number).Msg("order not found")
		return nil, model.ErrOrderNotFound
	}

	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// RequestCancellation flags a paid order for cancellation on behalf of its owner.
func (s *orderService) RequestCancellation(ctx context.Context, orderNumber string, identity auth.Identity) (*model.OrderResponse, error) {
	current, err := s.GetStatus(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if !ownsOrder(identity, &current.Order) {
		s.logger.Warn().
			Str("order_number", current.Order.OrderNumber).
			Str("user_id", identity.ID).
			Msg("cancellation requested by non-owner")
		return nil, model.ErrOrderNotOwned
	}

	res, err := s.transitions.apply(ctx, current.Order.ID, transition{
		event:   orderstate.RequestCancellation,
		trigger: triggerCustomer,
	})
	if err != nil {
		return nil, err
	}

	return &model.OrderResponse{Order: *res.order, Items: current.Items}, nil
}

// Transition applies an admin action. A refund of a paid order is issued at
// the gateway before any local change; a gateway failure leaves the order
// untouched.
func (s *orderService) Transition(ctx context.Context, id uuid.UUID, action string) (*model.OrderTransitionResponse, error) {
	event, ok := orderstate.AdminActions[action]
	if !ok {
		return nil, model.ErrUnknownAction
	}

	if event == orderstate.Refund {
		return s.refund(ctx, id)
	}

	res, err := s.transitions.apply(ctx, id, transition{event: event, trigger: triggerAdmin})
	if err != nil {
		return nil, err
	}
	return transitionResponse(id, res.outcome, false), nil
}

func (s *orderService) refund(ctx context.Context, id uuid.UUID) (*model.OrderTransitionResponse, error) {
	order, _, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	planned, err := orderstate.Apply(orderstate.Input{
		Status:              order.Status,
		HasPaymentReference: order.HasPaymentReference(),
	}, orderstate.Refund)
	if err != nil {
		return nil, err
	}

	if !planned.HasEffect(orderstate.IssueRefund) {
		// No captured payment: the order is cancelled instead.
		res, err := s.transitions.apply(ctx, id, transition{
			event:   orderstate.Refund,
			trigger: triggerAdmin,
			check: func(out orderstate.Outcome) error {
				if out.HasEffect(orderstate.IssueRefund) {
					return model.Conflict("order was paid meanwhile, retry the refund")
				}
				return nil
			},
		})
		if err != nil {
			return nil, err
		}
		return transitionResponse(id, res.outcome, false), nil
	}

	refundCtx, cancel := context.WithTimeout(ctx, s.settings.RefundTimeout)
	defer cancel()

	if err := s.gateway.Refund(refundCtx, *order.PaymentIntentID, "refund-"+id.String()); err != nil {
		s.logger.Error().Err(err).
			Str("order_id", id.String()).
			Msg("gateway refund failed")
		return nil, fmt.Errorf("%w: %v", model.ErrRefundFailed, err)
	}

	res, err := s.transitions.apply(ctx, id, transition{
		event:   orderstate.ChargeRefunded,
		trigger: triggerAdmin,
	})
	if err != nil {
		s.logger.Error().Err(err).
			Str("order_id", id.String()).
			Msg("refund issued but order not updated")
		return nil, err
	}

	resp := transitionResponse(id, res.outcome, true)
	resp.From = order.Status
	return resp, nil
}

// ShippingQuote computes the shipping cost for a subtotal in minor units.
func (s *orderService) ShippingQuote(subtotal int64) (*model.ShippingQuote, error) {
	if subtotal < 0 {
		return nil, model.Invalid("subtotal must not be negative")
	}
	q := s.quote(subtotal)
	return &q, nil
}

func (s *orderService) quote(subtotal int64) model.ShippingQuote {
	q := model.ShippingQuote{FreeThreshold: s.settings.ShippingFreeThreshold}
	if subtotal >= s.settings.ShippingFreeThreshold {
		q.IsFree = true
		return q
	}
	q.Cost = s.settings.ShippingFlatRate
	q.AmountUntilFree = s.settings.ShippingFreeThreshold - subtotal
	return q
}

func (s *orderService) validateCheckoutRequest(req *model.CheckoutRequest) error {
	if req == nil {
		return model.Invalid("checkout request is required")
	}

	if len(req.Items) == 0 {
		return model.Invalid("order must contain at least one item")
	}

	for i, item := range req.Items {
		if item.ProductID == "" {
			return model.Invalid(fmt.Sprintf("item %d: productId is required", i))
		}

		if item.Quantity <= 0 || item.Quantity > maxItemQuantity {
			s.logger.Warn().
				Int("item_index", i).
				Str("product_id", item.ProductID).
				Int("quantity", item.Quantity).
				Msg("invalid quantity")
			return model.ErrInvalidQuantity
		}
	}

	if err := validateCustomer(req.Customer); err != nil {
		return err
	}

	switch req.FulfillmentType {
	case model.FulfillmentPickup:
		slug := strings.TrimSpace(req.LocationSlug)
		if slug == "" {
			return model.Invalid("locationSlug is required for pickup")
		}
		if _, ok := s.catalog.Lookup(slug); !ok {
			return model.ErrLocationNotFound
		}
	case model.FulfillmentShipping:
		a := req.ShippingAddress
		if a == nil || strings.TrimSpace(a.Street) == "" || strings.TrimSpace(a.City) == "" || strings.TrimSpace(a.Zip) == "" {
			return model.Invalid("shippingAddress with street, city and zip is required for shipping")
		}
	default:
		return model.Invalid("fulfillmentType must be pickup or shipping")
	}

	return nil
}

func transitionResponse(id uuid.UUID, out orderstate.Outcome, refunded bool) *model.OrderTransitionResponse {
	return &model.OrderTransitionResponse{
		OrderID:  id,
		From:     out.From,
		Status:   out.To,
		Changed:  out.Changed,
		Refunded: refunded,
	}
}

func ownsOrder(identity auth.Identity, order *model.Order) bool {
	if order.UserID != nil && *order.UserID == identity.ID {
		return true
	}
	return identity.Email != "" && strings.EqualFold(identity.Email, order.Customer.Email)
}

func normaliseOrderNumber(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func randomOrderNumber() (string, error) {
	size := big.NewInt(int64(len(orderNumberAlphabet)))
	var b strings.Builder
	b.WriteString(orderNumberPrefix)
	for i := 0; i < orderNumberLength; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", err
		}
		b.WriteByte(orderNumberAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func fallbackOrderNumber(now time.Time) string {
	return orderNumberPrefix + strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
}
