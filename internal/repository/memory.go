package repository

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"order-pipeline/internal/model"
)

// In-memory stores used with STORE_DRIVER=memory and in tests. Each store holds one
// mutex so every keyed read-modify-write is atomic; values are copied in and out.

type MemoryCartRepository struct {
	mu    sync.Mutex
	carts map[string]*model.Cart
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{carts: map[string]*model.Cart{}}
}

func copyCart(c *model.Cart) *model.Cart {
	cp := *c
	cp.Items = slices.Clone(c.Items)
	return &cp
}

func (m *MemoryCartRepository) FindByUserID(_ context.Context, userID string) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyCart(c), nil
}

func (m *MemoryCartRepository) AppendLine(_ context.Context, userID string, line model.CartLine, now time.Time) (*model.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[userID]
	if !ok {
		c = &model.Cart{UserID: userID, CartID: uuid.NewString(), CreatedAt: now}
		m.carts[userID] = c
	}
	c.Items = append(c.Items, line)
	c.Version++
	c.UpdatedAt = now
	return copyCart(c), nil
}

func (m *MemoryCartRepository) RemoveLines(_ context.Context, userID string, lineIDs []string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.carts[userID]
	if !ok {
		return nil
	}
	c.Items = slices.DeleteFunc(c.Items, func(l model.CartLine) bool {
		return slices.Contains(lineIDs, l.LineID)
	})
	if len(c.Items) == 0 {
		delete(m.carts, userID)
		return nil
	}
	c.UpdatedAt = now
	return nil
}

type MemoryOrderRepository struct {
	mu     sync.Mutex
	orders []*model.Order
}

func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{}
}

func copyOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = slices.Clone(o.Items)
	return &cp
}

func (m *MemoryOrderRepository) Insert(_ context.Context, o *model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.orders {
		if existing.OrderID == o.OrderID || (o.CheckoutKey != "" && existing.CheckoutKey == o.CheckoutKey) {
			return ErrDuplicate
		}
	}
	m.orders = append(m.orders, copyOrder(o))
	return nil
}

func (m *MemoryOrderRepository) find(match func(*model.Order) bool) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range m.orders {
		if match(o) {
			return copyOrder(o), nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryOrderRepository) FindByOrderID(_ context.Context, orderID string) (*model.Order, error) {
	return m.find(func(o *model.Order) bool { return o.OrderID == orderID })
}

func (m *MemoryOrderRepository) FindByCheckoutKey(_ context.Context, key string) (*model.Order, error) {
	return m.find(func(o *model.Order) bool { return o.CheckoutKey == key })
}

func (m *MemoryOrderRepository) FindByUserID(_ context.Context, userID string) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*model.Order{}
	// Walk backwards so equal timestamps still come out newest-insert first.
	for i := len(m.orders) - 1; i >= 0; i-- {
		if m.orders[i].UserID == userID {
			out = append(out, copyOrder(m.orders[i]))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlacedAt.After(out[j].PlacedAt) })
	return out, nil
}

type MemoryTrackingRepository struct {
	mu      sync.Mutex
	records map[string]*model.Tracking
}

func NewMemoryTrackingRepository() *MemoryTrackingRepository {
	return &MemoryTrackingRepository{records: map[string]*model.Tracking{}}
}

func copyTracking(t *model.Tracking) *model.Tracking {
	cp := *t
	cp.History = slices.Clone(t.History)
	return &cp
}

func (m *MemoryTrackingRepository) Create(_ context.Context, t *model.Tracking) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.records[t.OrderID]; ok {
		return ErrDuplicate
	}
	m.records[t.OrderID] = copyTracking(t)
	return nil
}

func (m *MemoryTrackingRepository) FindByOrderID(_ context.Context, orderID string) (*model.Tracking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.records[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTracking(t), nil
}

func (m *MemoryTrackingRepository) CompareAndAdvance(_ context.Context, orderID string, from, to model.Stage, at time.Time) (*model.Tracking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.records[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	if t.CurrentStatus != from {
		return nil, ErrStale
	}
	t.CurrentStatus = to
	t.History = append(t.History, model.StatusRecord{Status: to, UpdatedAt: at})
	t.LastUpdated = at
	return copyTracking(t), nil
}
