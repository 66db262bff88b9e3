package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"order-pipeline/internal/model"
)

type MongoTrackingRepository struct {
	col *mongo.Collection
}

func NewMongoTrackingRepository(db *mongo.Database) *MongoTrackingRepository {
	return &MongoTrackingRepository{col: db.Collection(trackingCollection)}
}

// Create inserts a new record; the unique order_id index turns a second start into ErrDuplicate.
func (m *MongoTrackingRepository) Create(ctx context.Context, t *model.Tracking) error {
	_, err := m.col.InsertOne(ctx, t)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (m *MongoTrackingRepository) FindByOrderID(ctx context.Context, orderID string) (*model.Tracking, error) {
	var res model.Tracking
	err := m.col.FindOne(ctx, bson.M{"order_id": orderID}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// CompareAndAdvance moves the record from one stage to the next only while it still
// sits at from, appending the history entry in the same document update.
func (m *MongoTrackingRepository) CompareAndAdvance(ctx context.Context, orderID string, from, to model.Stage, at time.Time) (*model.Tracking, error) {
	filter := bson.M{"order_id": orderID, "current_status": from}
	update := bson.M{
		"$set":  bson.M{"current_status": to, "last_updated": at},
		"$push": bson.M{"history": model.StatusRecord{Status: to, UpdatedAt: at}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var res model.Tracking
	err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, ferr := m.FindByOrderID(ctx, orderID); errors.Is(ferr, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrStale
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}
