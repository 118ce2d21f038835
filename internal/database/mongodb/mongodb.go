package mongodb

import (
	"context"
	"fmt"

	repository "github.com/ds124wfegd/campusres/internal/database/postgres"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	resourcesCollection = "resources"
	bookingsCollection  = "bookings"
)

// NewRepository returns the MongoDB stores. Resource deletion and booking
// cleanup are separate writes, so AtomicCascade is false.
func NewRepository(ctx context.Context, db *mongo.Database) (*repository.Repository, error) {
	if err := EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}
	return &repository.Repository{
		Resources: NewResourceRepository(db),
		Bookings:  NewBookingRepository(db),
	}, nil
}

// EnsureIndexes creates the partial unique index that keeps one active booking per slot.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	bookings := db.Collection(bookingsCollection)

	models := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "resource_id", Value: 1}, {Key: "date", Value: 1}, {Key: "time_slot", Value: 1}},
			Options: options.Index().
				SetName("uq_bookings_active_slot").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	}
	if _, err := bookings.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}

	_, err := db.Collection(resourcesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "type", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create resource indexes: %w", err)
	}
	return nil
}
