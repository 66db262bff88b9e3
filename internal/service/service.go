package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"order-pipeline/internal/model"
)

// Store contracts. Each write keyed by user_id or order_id must be atomic in the
// implementation; the services never do read-then-write on the same key themselves.

type CartRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.Cart, error)
	AppendLine(ctx context.Context, userID string, line model.CartLine, now time.Time) (*model.Cart, error)
	RemoveLines(ctx context.Context, userID string, lineIDs []string, now time.Time) error
}

type OrderRepository interface {
	Insert(ctx context.Context, o *model.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	FindByCheckoutKey(ctx context.Context, key string) (*model.Order, error)
	FindByUserID(ctx context.Context, userID string) ([]*model.Order, error)
}

type TrackingRepository interface {
	Create(ctx context.Context, t *model.Tracking) error
	FindByOrderID(ctx context.Context, orderID string) (*model.Tracking, error)
	CompareAndAdvance(ctx context.Context, orderID string, from, to model.Stage, at time.Time) (*model.Tracking, error)
}

type ProductCatalog interface {
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
}

// EventPublisher announces committed state changes. Failures never undo the change.
type EventPublisher interface {
	PublishOrderPlaced(ctx context.Context, o *model.Order) error
	PublishDeliveryAdvanced(ctx context.Context, t *model.Tracking, previous model.Stage) error
}

type nopPublisher struct{}

func (nopPublisher) PublishOrderPlaced(context.Context, *model.Order) error { return nil }
func (nopPublisher) PublishDeliveryAdvanced(context.Context, *model.Tracking, model.Stage) error {
	return nil
}

// NopPublisher is used when no broker is configured.
var NopPublisher EventPublisher = nopPublisher{}

// OrderIDLength is the length of generated order ids.
const OrderIDLength = 10

// NewOrderID returns a fixed-length uppercase alphanumeric token.
func NewOrderID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:OrderIDLength])
}

func utcNow() time.Time {
	return time.Now().UTC()
}
