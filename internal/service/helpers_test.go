package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"order-pipeline/internal/logger"
	"order-pipeline/internal/model"
	"order-pipeline/internal/repository"
)

type MockCatalog struct{ mock.Mock }

func (m *MockCatalog) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	args := m.Called(ctx, productID)
	if p := args.Get(0); p != nil {
		return p.(*model.Product), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) PublishOrderPlaced(ctx context.Context, o *model.Order) error {
	return m.Called(ctx, o).Error(0)
}

func (m *MockPublisher) PublishDeliveryAdvanced(ctx context.Context, t *model.Tracking, previous model.Stage) error {
	return m.Called(ctx, t, previous).Error(0)
}

// failingCartRepository wraps the memory store and fails line removal on demand.
type failingCartRepository struct {
	*repository.MemoryCartRepository
	removeErr error
}

func (f *failingCartRepository) RemoveLines(ctx context.Context, userID string, lineIDs []string, now time.Time) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	return f.MemoryCartRepository.RemoveLines(ctx, userID, lineIDs, now)
}

// stepClock returns strictly increasing instants.
func stepClock(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

var (
	milk  = &model.Product{ProductID: "p1", Name: "Milk", Price: 50, Available: true}
	bread = &model.Product{ProductID: "p2", Name: "Bread", Price: 35, Available: true}
	eggs  = &model.Product{ProductID: "p3", Name: "Eggs", Price: 90, Available: true}
)

func catalogWith(products ...*model.Product) *MockCatalog {
	c := new(MockCatalog)
	for _, p := range products {
		c.On("GetProduct", mock.Anything, p.ProductID).Return(p, nil)
	}
	return c
}

func nopLog() *logger.Logger { return logger.Nop() }
