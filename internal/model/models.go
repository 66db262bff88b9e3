// models.go
package model

import (
	"strconv"
	"time"
)

// Product is the catalog view consumed by the cart.
type Product struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Available bool    `json:"available"`
}

type CartLine struct {
	LineID    string  `bson:"line_id" json:"-"`
	ProductID string  `bson:"product_id" json:"product_id"`
	Name      string  `bson:"name" json:"name"`
	Price     float64 `bson:"price" json:"price"` // snapshot at add time
	Quantity  int     `bson:"quantity" json:"quantity"`
}

func (l CartLine) Subtotal() float64 {
	return l.Price * float64(l.Quantity)
}

type Cart struct {
	UserID    string     `bson:"user_id" json:"user_id"`
	CartID    string     `bson:"cart_id" json:"-"`
	Items     []CartLine `bson:"items" json:"items"`
	Version   int64      `bson:"version" json:"-"` // bumped on every append
	CreatedAt time.Time  `bson:"created_at" json:"-"`
	UpdatedAt time.Time  `bson:"updated_at" json:"-"`
}

func (c *Cart) Total() float64 {
	if c == nil {
		return 0
	}
	return LinesTotal(c.Items)
}

func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// CheckoutKey identifies this exact cart content; one order at most per key.
func (c *Cart) CheckoutKey() string {
	return c.CartID + ":" + strconv.FormatInt(c.Version, 10)
}

func (c *Cart) LineIDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, it := range c.Items {
		ids = append(ids, it.LineID)
	}
	return ids
}

func LinesTotal(lines []CartLine) float64 {
	var total float64
	for _, l := range lines {
		total += l.Subtotal()
	}
	return total
}

type OrderStatus string

// OrderPlaced is the only status the checkout path ever writes.
const OrderPlaced OrderStatus = "PLACED"

type Order struct {
	OrderID     string      `bson:"order_id" json:"order_id"`
	UserID      string      `bson:"user_id" json:"user_id"`
	Items       []CartLine  `bson:"items" json:"items"`
	Total       float64     `bson:"total" json:"total"`
	Status      OrderStatus `bson:"status" json:"status"`
	CheckoutKey string      `bson:"checkout_key" json:"-"`
	PlacedAt    time.Time   `bson:"placed_at" json:"placed_at"`
}

type StatusRecord struct {
	Status    Stage     `bson:"status" json:"status"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

type Tracking struct {
	OrderID       string         `bson:"order_id" json:"order_id"`
	CurrentStatus Stage          `bson:"current_status" json:"current_status"`
	History       []StatusRecord `bson:"history" json:"history"`
	CreatedAt     time.Time      `bson:"created_at" json:"created_at"`
	LastUpdated   time.Time      `bson:"last_updated" json:"last_updated"`
}

// NewTracking returns a record sitting at the initial stage.
func NewTracking(orderID string, now time.Time) *Tracking {
	return &Tracking{
		OrderID:       orderID,
		CurrentStatus: InitialStage,
		History:       []StatusRecord{{Status: InitialStage, UpdatedAt: now}},
		CreatedAt:     now,
		LastUpdated:   now,
	}
}
