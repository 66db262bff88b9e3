package rabbit

import (
	"context"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
)

type MockChannel struct {
	mock.Mock
	published amqp091.Publishing
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	m.published = msg
	return m.Called(ctx, exchange, key, mandatory, immediate, msg).Error(0)
}
