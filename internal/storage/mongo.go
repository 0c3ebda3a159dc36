package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type cartDocument struct {
	Key       string    `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStorage keeps one document per cart key in the "carts" collection.
type MongoStorage struct {
	collection *mongo.Collection
}

func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{
		collection: db.Collection("carts"),
	}
}

func (m *MongoStorage) Load(ctx context.Context, key string) ([]byte, error) {
	var doc cartDocument

	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return doc.Payload, nil
}

func (m *MongoStorage) Save(ctx context.Context, key string, data []byte) error {
	filter := bson.M{"_id": key}
	update := bson.M{"$set": bson.M{
		"payload":    data,
		"updated_at": time.Now().UTC(),
	}}
	opts := options.Update().SetUpsert(true)

	if _, err := m.collection.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}
	return nil
}

func (m *MongoStorage) Delete(ctx context.Context, key string) error {
	if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// CreateIndexes indexes updated_at for age-based queries over carts.
func (m *MongoStorage) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "updated_at", Value: 1}},
		},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}
