// setup.go
package rabbit

import (
	"context"
	"fmt"

	"github.com/rabbitmq/amqp091-go"

	"order-pipeline/internal/logger"
)

// Broker owns the AMQP connection and the channel used for publishing.
type Broker struct {
	conn *amqp091.Connection
	ch   *amqp091.Channel
}

func Dial(url string) (*Broker, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("opening rabbitmq channel: %w", err)
	}
	for _, name := range []string{ExchangeOrderPlaced, ExchangeDeliveryAdvanced} {
		if err := declareFanout(ch, name); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return &Broker{conn: conn, ch: ch}, nil
}

func declareFanout(ch *amqp091.Channel, name string) error {
	if err := ch.ExchangeDeclare(name, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring exchange %s: %w", name, err)
	}
	return nil
}

func (b *Broker) Publisher() *Publisher {
	return NewPublisher(b.ch)
}

// SetupConsumers binds the delivery queue to order_placed and starts handling
// deliveries on a dedicated channel until ctx is done.
func (b *Broker) SetupConsumers(ctx context.Context, tracker Tracker, log *logger.Logger) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("opening consumer channel: %w", err)
	}

	q, err := ch.QueueDeclare(QueueDeliveryOrders, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declaring queue: %w", err)
	}
	// fanout ignores the routing key
	if err := ch.QueueBind(q.Name, "", ExchangeOrderPlaced, false, nil); err != nil {
		return fmt.Errorf("binding queue: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming queue: %w", err)
	}

	consumer := NewPlaceOrderConsumer(tracker, log)
	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-msgs:
				if !ok {
					return
				}
				consumer.Deliver(ctx, m)
			}
		}
	}()

	log.Info(ctx, "subscribed to order_placed")
	return nil
}

func (b *Broker) Close() error {
	return b.conn.Close()
}
