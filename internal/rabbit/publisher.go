package rabbit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"order-pipeline/internal/model"
)

// channel is the subset of *amqp091.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

type Publisher struct {
	mu sync.Mutex
	ch channel
}

func NewPublisher(ch channel) *Publisher {
	return &Publisher{ch: ch}
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, o *model.Order) error {
	return publish(ctx, p, ExchangeOrderPlaced, orderPlacedMessage(o))
}

func (p *Publisher) PublishDeliveryAdvanced(ctx context.Context, t *model.Tracking, previous model.Stage) error {
	return publish(ctx, p, ExchangeDeliveryAdvanced, deliveryAdvancedMessage(t, previous))
}

func publish[T any](ctx context.Context, p *Publisher, exchange string, msg T) error {
	id := uuid.NewString()
	body, err := json.Marshal(Envelope[T]{CorrelationID: id, Exchange: exchange, Message: msg})
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(ctx, exchange, "", false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    id,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}
