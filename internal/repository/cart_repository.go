package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"order-pipeline/internal/model"
)

type MongoCartRepository struct {
	col *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{col: db.Collection(cartsCollection)}
}

func (m *MongoCartRepository) FindByUserID(ctx context.Context, userID string) (*model.Cart, error) {
	var res model.Cart
	err := m.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// AppendLine pushes a line onto the user's cart in a single upsert, creating the
// cart when absent, and returns the cart as stored after the write.
func (m *MongoCartRepository) AppendLine(ctx context.Context, userID string, line model.CartLine, now time.Time) (*model.Cart, error) {
	filter := bson.M{"user_id": userID}
	update := bson.M{
		"$push":        bson.M{"items": line},
		"$inc":         bson.M{"version": 1},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"cart_id": uuid.NewString(), "created_at": now},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var res model.Cart
	err := m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&res)
	if mongo.IsDuplicateKeyError(err) {
		// Two first-adds raced on the upsert; the loser now sees the winner's cart.
		err = m.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&res)
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// RemoveLines drops exactly the given lines and deletes the cart if nothing is left.
func (m *MongoCartRepository) RemoveLines(ctx context.Context, userID string, lineIDs []string, now time.Time) error {
	if len(lineIDs) == 0 {
		return nil
	}
	_, err := m.col.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"line_id": bson.M{"$in": lineIDs}}},
			"$set":  bson.M{"updated_at": now},
		},
	)
	if err != nil {
		return err
	}
	_, err = m.col.DeleteOne(ctx, bson.M{"user_id": userID, "items": bson.M{"$size": 0}})
	return err
}
