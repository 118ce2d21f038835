package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	repository "github.com/ds124wfegd/campusres/internal/database/postgres"
	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/pkg/media"
	"github.com/ds124wfegd/campusres/pkg/queue"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type resourceService struct {
	resources     repository.ResourceRepository
	bookings      repository.BookingRepository
	atomicCascade bool

	changes    *ChangePublisher
	tasks      TaskPublisher
	images     media.Store
	thumbWidth int
}

func NewResourceService(
	repo *repository.Repository,
	changes *ChangePublisher,
	tasks TaskPublisher,
	images media.Store,
	thumbWidth int,
) ResourceService {
	return &resourceService{
		resources:     repo.Resources,
		bookings:      repo.Bookings,
		atomicCascade: repo.AtomicCascade,
		changes:       changes,
		tasks:         tasks,
		images:        images,
		thumbWidth:    thumbWidth,
	}
}

func (s *resourceService) CreateResource(ctx context.Context, req *CreateResourceRequest) (*entity.Resource, error) {
	resourceType, err := entity.ParseResourceType(strings.TrimSpace(req.Type))
	if err != nil {
		return nil, err
	}

	resource := &entity.Resource{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Type:        resourceType,
		Capacity:    req.Capacity,
		Description: strings.TrimSpace(req.Description),
		Image:       strings.TrimSpace(req.Image),
		Features:    entity.CleanLabels(req.Features),
		TimeSlots:   entity.CleanLabels(req.TimeSlots),
	}
	if err := validateResource(resource); err != nil {
		return nil, err
	}

	if err := s.resources.Create(ctx, resource); err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"resource_id": resource.ID,
		"name":        resource.Name,
		"type":        resource.Type,
	}).Info("Resource created")

	s.changes.Publish(ctx, entity.NewChangeEvent(entity.ChangeCreated, entity.CollectionResources, resource.ID, resource))
	return resource, nil
}

func (s *resourceService) GetResource(ctx context.Context, id string) (*entity.Resource, error) {
	resource, err := s.resources.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return resource, nil
}

// ListResources returns the catalog. When date is set every entry carries the
// slots nobody holds on that day.
func (s *resourceService) ListResources(ctx context.Context, filter entity.ResourceFilter, date entity.Date) ([]*entity.ResourceWithAvailability, error) {
	if date != "" && !date.Valid() {
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidDate, date)
	}

	resources, err := s.resources.GetAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}

	held := make(map[entity.SlotKey]struct{})
	if date != "" {
		bookings, err := s.bookings.GetAll(ctx, entity.BookingFilter{Date: date})
		if err != nil {
			return nil, fmt.Errorf("failed to get bookings for date: %w", err)
		}
		for _, b := range bookings {
			if b.Status.Holds() {
				held[b.SlotKey()] = struct{}{}
			}
		}
	}

	result := make([]*entity.ResourceWithAvailability, 0, len(resources))
	for _, r := range resources {
		entry := &entity.ResourceWithAvailability{Resource: *r, Date: date, AvailableSlots: r.TimeSlots}
		if date != "" {
			entry.AvailableSlots = make([]string, 0, len(r.TimeSlots))
			for _, slot := range r.TimeSlots {
				if _, ok := held[entity.SlotKey{ResourceID: r.ID, Date: date, TimeSlot: slot}]; !ok {
					entry.AvailableSlots = append(entry.AvailableSlots, slot)
				}
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

// UpdateResource merges the fields present in update into the stored resource.
func (s *resourceService) UpdateResource(ctx context.Context, id string, update *entity.ResourceUpdate) (*entity.Resource, error) {
	if update == nil || update.Empty() {
		return nil, fmt.Errorf("%w: nothing to update", entity.ErrInvalidInput)
	}
	if update.Type != nil {
		if _, err := entity.ParseResourceType(string(*update.Type)); err != nil {
			return nil, err
		}
	}

	resource, err := s.resources.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}

	update.Apply(resource)
	resource.Name = strings.TrimSpace(resource.Name)
	if err := validateResource(resource); err != nil {
		return nil, err
	}

	if err := s.resources.Update(ctx, resource); err != nil {
		return nil, fmt.Errorf("failed to update resource: %w", err)
	}

	logrus.WithField("resource_id", id).Info("Resource updated")
	s.changes.Publish(ctx, entity.NewChangeEvent(entity.ChangeUpdated, entity.CollectionResources, resource.ID, resource))
	return resource, nil
}

// DeleteResource removes the resource and then its bookings. Stores that cannot
// do both in one transaction remove the bookings in a second step; if that step
// fails a cascade task is queued and the orphan sweeper is the last resort.
func (s *resourceService) DeleteResource(ctx context.Context, id string) error {
	if err := s.resources.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}

	log := logrus.WithField("resource_id", id)
	log.Info("Resource deleted")
	s.changes.Publish(ctx, entity.NewChangeEvent(entity.ChangeDeleted, entity.CollectionResources, id, nil))

	if s.atomicCascade {
		s.publishBookingsRemoved(ctx, id, -1)
		return nil
	}

	removed, err := s.bookings.DeleteByResource(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to delete bookings of resource, scheduling cascade task")
		task := queue.NewTask(queue.TaskTypeCascadeDelete, map[string]interface{}{"resource_id": id})
		if s.tasks == nil {
			log.Error("Task queue is not configured, orphaned bookings are left to the sweeper")
			return nil
		}
		if err := s.tasks.Publish(ctx, task); err != nil {
			log.WithError(err).Error("Failed to schedule cascade task, orphaned bookings are left to the sweeper")
		}
		return nil
	}

	s.publishBookingsRemoved(ctx, id, removed)
	return nil
}

func (s *resourceService) UploadImage(ctx context.Context, id string, src io.Reader) (*entity.Resource, error) {
	if s.images == nil {
		return nil, fmt.Errorf("%w: image store is not configured", entity.ErrExternalService)
	}

	resource, err := s.resources.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}

	thumb, err := media.Thumbnail(src, s.thumbWidth)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedImage) {
			return nil, fmt.Errorf("%w: %v", entity.ErrInvalidInput, err)
		}
		return nil, fmt.Errorf("failed to prepare image: %w", err)
	}

	url, err := s.images.Upload(ctx, "resource-"+resource.ID, thumb)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrExternalService, err)
	}

	resource.Image = url
	if err := s.resources.Update(ctx, resource); err != nil {
		return nil, fmt.Errorf("failed to update resource: %w", err)
	}

	logrus.WithFields(logrus.Fields{"resource_id": id, "url": url}).Info("Resource image uploaded")
	s.changes.Publish(ctx, entity.NewChangeEvent(entity.ChangeUpdated, entity.CollectionResources, resource.ID, resource))
	return resource, nil
}

func (s *resourceService) GetResourcesWithBookings(ctx context.Context) ([]*entity.ResourceWithBookings, error) {
	resources, err := s.resources.GetAll(ctx, entity.ResourceFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	bookings, err := s.bookings.GetAll(ctx, entity.BookingFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	byResource := make(map[string][]*entity.Booking)
	for _, b := range bookings {
		byResource[b.ResourceID] = append(byResource[b.ResourceID], b)
	}

	result := make([]*entity.ResourceWithBookings, 0, len(resources))
	for _, r := range resources {
		list := byResource[r.ID]
		if list == nil {
			list = []*entity.Booking{}
		}
		result = append(result, &entity.ResourceWithBookings{Resource: *r, Bookings: list})
	}
	return result, nil
}

func (s *resourceService) RemoveResourceBookings(ctx context.Context, resourceID string) (int64, error) {
	removed, err := s.bookings.DeleteByResource(ctx, resourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete bookings of resource: %w", err)
	}
	s.publishBookingsRemoved(ctx, resourceID, removed)
	return removed, nil
}

// SweepOrphanedBookings removes bookings that reference a resource which no
// longer exists. The cut-off is taken before listing resources: a booking
// older than it belongs to a resource that is already in the list.
func (s *resourceService) SweepOrphanedBookings(ctx context.Context) (int64, error) {
	snapshot := time.Now().UTC()
	ids, err := s.resources.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list resources: %w", err)
	}

	removed, err := s.bookings.DeleteOrphans(ctx, ids, snapshot)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned bookings: %w", err)
	}
	if removed > 0 {
		s.changes.Publish(ctx, entity.NewChangeEvent(entity.ChangeDeleted, entity.CollectionBookings, "",
			map[string]interface{}{"orphans": removed}))
	}
	return removed, nil
}

// publishBookingsRemoved announces a cascade. removed is -1 when the store
// does not report a count.
func (s *resourceService) publishBookingsRemoved(ctx context.Context, resourceID string, removed int64) {
	if removed == 0 {
		return
	}
	data := map[string]interface{}{"resource_id": resourceID}
	if removed > 0 {
		data["removed"] = removed
	}
	s.changes.Publish(ctx, entity.NewChangeEvent(entity.ChangeDeleted, entity.CollectionBookings, "", data))
}

func validateResource(r *entity.Resource) error {
	switch {
	case r.Name == "":
		return fmt.Errorf("%w: name is required", entity.ErrInvalidInput)
	case r.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive", entity.ErrInvalidInput)
	case len(r.TimeSlots) == 0:
		return fmt.Errorf("%w: at least one time slot is required", entity.ErrInvalidInput)
	}
	if _, err := entity.ParseResourceType(string(r.Type)); err != nil {
		return err
	}
	return nil
}
