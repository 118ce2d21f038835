package repository

import (
	"context"
	"time"

	"github.com/ds124wfegd/campusres/internal/entity"
)

type ResourceRepository interface {
	Create(ctx context.Context, resource *entity.Resource) error
	GetByID(ctx context.Context, id string) (*entity.Resource, error)
	GetAll(ctx context.Context, filter entity.ResourceFilter) ([]*entity.Resource, error)
	Update(ctx context.Context, resource *entity.Resource) error
	Delete(ctx context.Context, id string) error
	ListIDs(ctx context.Context) ([]string, error)
}

type BookingRepository interface {
	// Create inserts the booking unless a non-rejected booking already holds
	// its slot, in which case it returns entity.ErrSlotConflict.
	Create(ctx context.Context, booking *entity.Booking) error
	GetByID(ctx context.Context, id string) (*entity.Booking, error)
	GetAll(ctx context.Context, filter entity.BookingFilter) ([]*entity.Booking, error)

	// UpdateStatus moves the booking from one status to another only if it
	// still has the expected status.
	UpdateStatus(ctx context.Context, id string, from, to entity.BookingStatus) (*entity.Booking, error)

	DeleteByResource(ctx context.Context, resourceID string) (int64, error)
	// DeleteOrphans removes bookings created before the given time whose
	// resource is not among resourceIDs.
	DeleteOrphans(ctx context.Context, resourceIDs []string, before time.Time) (int64, error)
	Stats(ctx context.Context) (entity.BookingStats, error)
}

// Repository groups the stores of one backend.
type Repository struct {
	Resources ResourceRepository
	Bookings  BookingRepository

	// AtomicCascade is set when Resources.Delete removes the resource's
	// bookings in the same transaction.
	AtomicCascade bool
}
