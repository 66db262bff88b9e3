package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"order-pipeline/internal/errs"
	"order-pipeline/internal/logger"
	"order-pipeline/internal/metrics"
	"order-pipeline/internal/model"
	"order-pipeline/internal/repository"
)

// maxOrderIDAttempts bounds regeneration after an order_id collision.
const maxOrderIDAttempts = 3

type OrderService struct {
	carts     CartRepository
	orders    OrderRepository
	publisher EventPublisher
	log       *logger.Logger
	metrics   *metrics.Collectors
	now       func() time.Time
	newID     func() string
}

func NewOrderService(carts CartRepository, orders OrderRepository, publisher EventPublisher, log *logger.Logger, m *metrics.Collectors) *OrderService {
	if publisher == nil {
		publisher = NopPublisher
	}
	return &OrderService{
		carts:     carts,
		orders:    orders,
		publisher: publisher,
		log:       log,
		metrics:   m,
		now:       utcNow,
		newID:     NewOrderID,
	}
}

// CreateOrder turns the user's cart into an immutable order priced from the cart's
// snapshots, then clears the checked-out lines. The order is committed before the
// clear; a failed clear is logged and leaves the order in place.
func (s *OrderService) CreateOrder(ctx context.Context, userID string) (*model.Order, error) {
	ctx = s.log.WithUserID(ctx, userID)

	cart, err := s.carts.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, errs.Wrap(errs.CodeInternal, err, "could not load cart")
	}
	if cart.IsEmpty() {
		return nil, errs.New(errs.CodeEmptyCart, "cart is empty")
	}

	order := &model.Order{
		UserID:      userID,
		Items:       slices.Clone(cart.Items),
		Total:       cart.Total(),
		Status:      model.OrderPlaced,
		CheckoutKey: cart.CheckoutKey(),
		PlacedAt:    s.now(),
	}
	if err := s.insert(ctx, order); err != nil {
		return nil, err
	}

	ctx = s.log.WithOrderID(ctx, order.OrderID)
	s.metrics.OrderPlaced(order.Total)
	s.log.Zerolog(ctx).Info().
		Float64("total", order.Total).
		Int("lines", len(order.Items)).
		Msg("order placed")

	if err := s.carts.RemoveLines(ctx, userID, cart.LineIDs(), s.now()); err != nil {
		s.metrics.CartClearFailed()
		s.log.Warn(ctx, "order placed but cart clear failed; cart left for reconciliation", err)
	}
	if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
		s.log.Warn(ctx, "publishing order_placed failed", err)
	}
	return order, nil
}

func (s *OrderService) insert(ctx context.Context, order *model.Order) error {
	for attempt := 0; attempt < maxOrderIDAttempts; attempt++ {
		order.OrderID = s.newID()
		err := s.orders.Insert(ctx, order)
		if err == nil {
			return nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return errs.Wrap(errs.CodeInternal, err, "could not persist order")
		}
		// A duplicate is either this cart already checked out or an id collision.
		if _, ferr := s.orders.FindByCheckoutKey(ctx, order.CheckoutKey); ferr == nil {
			return errs.New(errs.CodeConflict, "cart is already being checked out")
		}
	}
	return errs.New(errs.CodeInternal, "could not allocate a unique order id")
}

// GetOrders lists the user's orders, most recent first.
func (s *OrderService) GetOrders(ctx context.Context, userID string) ([]*model.Order, error) {
	orders, err := s.orders.FindByUserID(ctx, userID)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "could not list orders")
	}
	return orders, nil
}

func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*model.Order, error) {
	o, err := s.orders.FindByOrderID(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && o.UserID != userID) {
		return nil, errs.Newf(errs.CodeNotFound, "order %s not found", orderID)
	}
	if err != nil {
		return nil, errs.Wrap(errs.CodeInternal, err, "could not load order")
	}
	return o, nil
}
