package rabbit

import (
	"time"

	"order-pipeline/internal/model"
)

const (
	ExchangeOrderPlaced      = "order_placed"
	ExchangeDeliveryAdvanced = "delivery_status_changed"

	// Queue owned by the delivery side; bound to the order_placed fanout.
	QueueDeliveryOrders = "delivery_service_orders"
)

// Envelope wraps every message published on the broker.
type Envelope[T any] struct {
	CorrelationID string `json:"correlation_id"`
	Exchange      string `json:"exchange"`
	RoutingKey    string `json:"routing_key"`
	Message       T      `json:"message"`
}

type OrderItemMessage struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type OrderPlacedMessage struct {
	OrderID  string             `json:"orderId"`
	UserID   string             `json:"userId"`
	Total    float64            `json:"total"`
	Status   string             `json:"status"`
	Items    []OrderItemMessage `json:"items"`
	PlacedAt time.Time          `json:"placedAt"`
}

type DeliveryAdvancedMessage struct {
	OrderID        string    `json:"orderId"`
	PreviousStatus string    `json:"previousStatus"`
	CurrentStatus  string    `json:"currentStatus"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func orderPlacedMessage(o *model.Order) OrderPlacedMessage {
	items := make([]OrderItemMessage, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemMessage{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
	}
	return OrderPlacedMessage{
		OrderID:  o.OrderID,
		UserID:   o.UserID,
		Total:    o.Total,
		Status:   string(o.Status),
		Items:    items,
		PlacedAt: o.PlacedAt,
	}
}

func deliveryAdvancedMessage(t *model.Tracking, previous model.Stage) DeliveryAdvancedMessage {
	return DeliveryAdvancedMessage{
		OrderID:        t.OrderID,
		PreviousStatus: previous.String(),
		CurrentStatus:  t.CurrentStatus.String(),
		UpdatedAt:      t.LastUpdated,
	}
}
