package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	repository "github.com/ds124wfegd/campusres/internal/database/postgres"
	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// bookingDocument stores the booking with an active flag mirroring Status.Holds,
// which the partial unique index filters on.
type bookingDocument struct {
	entity.Booking `bson:",inline"`
	Active         bool `bson:"active"`
}

type bookingRepository struct {
	coll *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) repository.BookingRepository {
	return &bookingRepository{coll: db.Collection(bookingsCollection)}
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	doc := bookingDocument{Booking: *booking, Active: booking.Status.Holds()}
	_, err := r.coll.InsertOne(ctx, doc)
	if mongo.IsDuplicateKeyError(err) {
		return entity.ErrSlotConflict
	}
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*entity.Booking, error) {
	var doc bookingDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &doc.Booking, nil
}

func (r *bookingRepository) GetAll(ctx context.Context, filter entity.BookingFilter) ([]*entity.Booking, error) {
	query := bson.M{}
	if filter.ResourceID != "" {
		query["resource_id"] = filter.ResourceID
	}
	if filter.Date != "" {
		query["date"] = filter.Date
	}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	cursor, err := r.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bookingDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	bookings := make([]*entity.Booking, 0, len(docs))
	for i := range docs {
		bookings = append(bookings, &docs[i].Booking)
	}
	return bookings, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id string, from, to entity.BookingStatus) (*entity.Booking, error) {
	update := bson.M{"$set": bson.M{
		"status":     to,
		"active":     to.Holds(),
		"updated_at": time.Now().UTC(),
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc bookingDocument
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": from}, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, entity.ErrConcurrentUpdate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	return &doc.Booking, nil
}

func (r *bookingRepository) DeleteByResource(ctx context.Context, resourceID string) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{"resource_id": resourceID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete bookings of resource: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *bookingRepository) DeleteOrphans(ctx context.Context, resourceIDs []string, before time.Time) (int64, error) {
	if resourceIDs == nil {
		resourceIDs = []string{}
	}
	result, err := r.coll.DeleteMany(ctx, bson.M{
		"resource_id": bson.M{"$nin": resourceIDs},
		"created_at":  bson.M{"$lt": before},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned bookings: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *bookingRepository) Stats(ctx context.Context) (entity.BookingStats, error) {
	var stats entity.BookingStats

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate booking stats: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var row struct {
			Status entity.BookingStatus `bson:"_id"`
			Count  int                  `bson:"count"`
		}
		if err := cursor.Decode(&row); err != nil {
			return stats, fmt.Errorf("failed to decode booking stats: %w", err)
		}
		stats.Total += row.Count
		switch row.Status {
		case entity.BookingStatusPending:
			stats.Pending = row.Count
		case entity.BookingStatusApproved:
			stats.Approved = row.Count
		case entity.BookingStatusRejected:
			stats.Rejected = row.Count
		}
	}
	return stats, cursor.Err()
}
