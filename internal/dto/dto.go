// dto.go
package dto

import (
	"time"

	"order-pipeline/internal/errs"
	"order-pipeline/internal/model"
)

type AddToCartRequest struct {
	UserID    string `json:"user_id" binding:"required"`
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type CartLineDTO struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type CartResponse struct {
	UserID string        `json:"user_id"`
	Items  []CartLineDTO `json:"items"`
	Total  float64       `json:"total"`
}

type CheckoutResponse struct {
	OrderID string            `json:"order_id"`
	Total   float64           `json:"total"`
	Status  model.OrderStatus `json:"status"`
}

type OrderResponse struct {
	OrderID  string            `json:"order_id"`
	UserID   string            `json:"user_id"`
	Items    []CartLineDTO     `json:"items"`
	Total    float64           `json:"total"`
	Status   model.OrderStatus `json:"status"`
	PlacedAt time.Time         `json:"placed_at"`
}

type StatusRecordDTO struct {
	Status    model.Stage `json:"status"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type TrackingResponse struct {
	OrderID       string            `json:"order_id"`
	CurrentStatus model.Stage       `json:"current_status"`
	History       []StatusRecordDTO `json:"history"`
	CreatedAt     time.Time         `json:"created_at"`
	LastUpdated   time.Time         `json:"last_updated"`
}

type AdvanceResponse struct {
	OrderID        string      `json:"order_id"`
	PreviousStatus model.Stage `json:"previous_status"`
	CurrentStatus  model.Stage `json:"current_status"`
	Changed        bool        `json:"changed"`
}

type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorFrom renders err with its code's HTTP status. Uncoded and internal
// errors only expose the public message.
func ErrorFrom(err error) (int, ErrorResponse) {
	if errs.CodeOf(err) == errs.CodeInternal {
		meta := errs.MetadataFor(errs.CodeInternal)
		return meta.HTTPStatus, ErrorResponse{Error: ErrorBody{Code: string(errs.CodeInternal), Message: meta.PublicMessage}}
	}
	e := errs.As(err)
	msg := e.Message()
	if msg == "" {
		msg = errs.MetadataFor(e.Code()).PublicMessage
	}
	return e.HTTPStatus(), ErrorResponse{Error: ErrorBody{Code: string(e.Code()), Message: msg}}
}

func linesToDTO(lines []model.CartLine) []CartLineDTO {
	out := make([]CartLineDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, CartLineDTO{
			ProductID: l.ProductID,
			Name:      l.Name,
			Price:     l.Price,
			Quantity:  l.Quantity,
		})
	}
	return out
}

// CartFromModel renders a possibly absent cart; nil becomes an empty cart.
func CartFromModel(userID string, c *model.Cart) CartResponse {
	if c == nil {
		return CartResponse{UserID: userID, Items: []CartLineDTO{}, Total: 0}
	}
	return CartResponse{UserID: userID, Items: linesToDTO(c.Items), Total: c.Total()}
}

func OrderFromModel(o *model.Order) OrderResponse {
	return OrderResponse{
		OrderID:  o.OrderID,
		UserID:   o.UserID,
		Items:    linesToDTO(o.Items),
		Total:    o.Total,
		Status:   o.Status,
		PlacedAt: o.PlacedAt,
	}
}

func OrdersFromModel(orders []*model.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderFromModel(o))
	}
	return out
}

func TrackingFromModel(t *model.Tracking) TrackingResponse {
	history := make([]StatusRecordDTO, 0, len(t.History))
	for _, h := range t.History {
		history = append(history, StatusRecordDTO{Status: h.Status, UpdatedAt: h.UpdatedAt})
	}
	return TrackingResponse{
		OrderID:       t.OrderID,
		CurrentStatus: t.CurrentStatus,
		History:       history,
		CreatedAt:     t.CreatedAt,
		LastUpdated:   t.LastUpdated,
	}
}
