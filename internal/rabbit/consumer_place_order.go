package rabbit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"order-pipeline/internal/errs"
	"order-pipeline/internal/logger"
	"order-pipeline/internal/model"
)

var ErrMalformedMessage = errors.New("malformed order_placed message")

// Tracker is the delivery operation the consumer drives.
type Tracker interface {
	StartTracking(ctx context.Context, orderID string) (*model.Tracking, error)
}

// PlaceOrderConsumer starts tracking for every order announced on order_placed,
// through the same operation the HTTP API uses.
type PlaceOrderConsumer struct {
	tracker Tracker
	log     *logger.Logger
}

func NewPlaceOrderConsumer(t Tracker, log *logger.Logger) *PlaceOrderConsumer {
	return &PlaceOrderConsumer{tracker: t, log: log}
}

func (c *PlaceOrderConsumer) Handle(ctx context.Context, body []byte) error {
	var event Envelope[OrderPlacedMessage]
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if event.Message.OrderID == "" {
		return fmt.Errorf("%w: missing orderId", ErrMalformedMessage)
	}

	ctx = c.log.WithOrderID(ctx, event.Message.OrderID)
	_, err := c.tracker.StartTracking(ctx, event.Message.OrderID)
	if errors.Is(err, errs.ErrConflict) {
		c.log.Info(ctx, "order already tracked; skipping")
		return nil
	}
	return err
}

// Acknowledger is the subset of amqp091.Delivery used to settle a message.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// Deliver handles one broker delivery and settles it: malformed payloads are
// dropped, other failures requeued once.
func (c *PlaceOrderConsumer) Deliver(ctx context.Context, d amqp091.Delivery) {
	c.settle(ctx, d, d.Body, d.Redelivered)
}

func (c *PlaceOrderConsumer) settle(ctx context.Context, ack Acknowledger, body []byte, redelivered bool) {
	err := c.Handle(ctx, body)
	switch {
	case err == nil:
		_ = ack.Ack(false)
	case errors.Is(err, ErrMalformedMessage):
		c.log.Warn(ctx, "dropping malformed order_placed message", err)
		_ = ack.Nack(false, false)
	default:
		c.log.Error(ctx, "starting tracking from order_placed failed", err)
		_ = ack.Nack(false, !redelivered)
	}
}
