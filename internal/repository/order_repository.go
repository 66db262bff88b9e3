package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"order-pipeline/internal/model"
)

type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection(ordersCollection)}
}

func (m *MongoOrderRepository) Insert(ctx context.Context, o *model.Order) error {
	_, err := m.col.InsertOne(ctx, o)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (m *MongoOrderRepository) findOne(ctx context.Context, filter bson.M) (*model.Order, error) {
	var res model.Order
	err := m.col.FindOne(ctx, filter).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (m *MongoOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	return m.findOne(ctx, bson.M{"order_id": orderID})
}

func (m *MongoOrderRepository) FindByCheckoutKey(ctx context.Context, key string) (*model.Order, error) {
	return m.findOne(ctx, bson.M{"checkout_key": key})
}

// FindByUserID returns the user's orders, most recent first.
func (m *MongoOrderRepository) FindByUserID(ctx context.Context, userID string) ([]*model.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "placed_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := m.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	return decodeAll[model.Order](ctx, cur)
}
