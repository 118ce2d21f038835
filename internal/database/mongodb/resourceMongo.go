package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	repository "github.com/ds124wfegd/campusres/internal/database/postgres"
	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type resourceRepository struct {
	coll *mongo.Collection
}

func NewResourceRepository(db *mongo.Database) repository.ResourceRepository {
	return &resourceRepository{coll: db.Collection(resourcesCollection)}
}

func (r *resourceRepository) Create(ctx context.Context, resource *entity.Resource) error {
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	resource.CreatedAt = now
	resource.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, resource); err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}
	return nil
}

func (r *resourceRepository) GetByID(ctx context.Context, id string) (*entity.Resource, error) {
	var resource entity.Resource
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&resource)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, entity.ErrResourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return &resource, nil
}

func (r *resourceRepository) GetAll(ctx context.Context, filter entity.ResourceFilter) ([]*entity.Resource, error) {
	query := bson.M{}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.Search != "" {
		pattern := bson.M{"$regex": regexp.QuoteMeta(filter.Search), "$options": "i"}
		query["$or"] = bson.A{bson.M{"name": pattern}, bson.M{"description": pattern}}
	}

	cursor, err := r.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer cursor.Close(ctx)

	var resources []*entity.Resource
	if err := cursor.All(ctx, &resources); err != nil {
		return nil, fmt.Errorf("failed to decode resources: %w", err)
	}
	return resources, nil
}

func (r *resourceRepository) Update(ctx context.Context, resource *entity.Resource) error {
	resource.UpdatedAt = time.Now().UTC()

	result, err := r.coll.ReplaceOne(ctx, bson.M{"_id": resource.ID}, resource)
	if err != nil {
		return fmt.Errorf("failed to update resource: %w", err)
	}
	if result.MatchedCount == 0 {
		return entity.ErrResourceNotFound
	}
	return nil
}

// Delete removes only the resource document; bookings are cleaned up by the caller.
func (r *resourceRepository) Delete(ctx context.Context, id string) error {
	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}
	if result.DeletedCount == 0 {
		return entity.ErrResourceNotFound
	}
	return nil
}

func (r *resourceRepository) ListIDs(ctx context.Context) ([]string, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to query resource ids: %w", err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode resource id: %w", err)
		}
		ids = append(ids, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resource ids: %w", err)
	}
	return ids, nil
}
