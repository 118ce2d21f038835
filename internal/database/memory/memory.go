// Package memory keeps resources and bookings in process memory. It is used
// for local development and by the service and transport tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	repository "github.com/ds124wfegd/campusres/internal/database/postgres"
	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/google/uuid"
)

type Store struct {
	mu        sync.RWMutex
	resources map[string]*entity.Resource
	bookings  map[string]*entity.Booking
	// active indexes the pending or approved booking holding each slot.
	active map[entity.SlotKey]string
}

func NewStore() *Store {
	return &Store{
		resources: make(map[string]*entity.Resource),
		bookings:  make(map[string]*entity.Booking),
		active:    make(map[entity.SlotKey]string),
	}
}

// NewRepository exposes the store through the repository interfaces.
func NewRepository(s *Store) *repository.Repository {
	return &repository.Repository{
		Resources: &resourceStore{s},
		Bookings:  &bookingStore{s},
	}
}

type resourceStore struct{ s *Store }

func (r *resourceStore) Create(_ context.Context, resource *entity.Resource) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	resource.CreatedAt = now
	resource.UpdatedAt = now

	r.s.resources[resource.ID] = copyResource(resource)
	return nil
}

func (r *resourceStore) GetByID(_ context.Context, id string) (*entity.Resource, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	resource, ok := r.s.resources[id]
	if !ok {
		return nil, entity.ErrResourceNotFound
	}
	return copyResource(resource), nil
}

func (r *resourceStore) GetAll(_ context.Context, filter entity.ResourceFilter) ([]*entity.Resource, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var resources []*entity.Resource
	for _, resource := range r.s.resources {
		if filter.Matches(resource) {
			resources = append(resources, copyResource(resource))
		}
	}
	sort.Slice(resources, func(i, j int) bool {
		return strings.ToLower(resources[i].Name) < strings.ToLower(resources[j].Name)
	})
	return resources, nil
}

func (r *resourceStore) Update(_ context.Context, resource *entity.Resource) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.resources[resource.ID]
	if !ok {
		return entity.ErrResourceNotFound
	}
	resource.CreatedAt = existing.CreatedAt
	resource.UpdatedAt = time.Now().UTC()
	r.s.resources[resource.ID] = copyResource(resource)
	return nil
}

func (r *resourceStore) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.resources[id]; !ok {
		return entity.ErrResourceNotFound
	}
	delete(r.s.resources, id)
	return nil
}

func (r *resourceStore) ListIDs(_ context.Context) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]string, 0, len(r.s.resources))
	for id := range r.s.resources {
		ids = append(ids, id)
	}
	return ids, nil
}

type bookingStore struct{ s *Store }

func (b *bookingStore) Create(_ context.Context, booking *entity.Booking) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	key := booking.SlotKey()
	if booking.Status.Holds() {
		if _, taken := b.s.active[key]; taken {
			return entity.ErrSlotConflict
		}
	}

	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	stored := *booking
	b.s.bookings[booking.ID] = &stored
	if booking.Status.Holds() {
		b.s.active[key] = booking.ID
	}
	return nil
}

func (b *bookingStore) GetByID(_ context.Context, id string) (*entity.Booking, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()

	booking, ok := b.s.bookings[id]
	if !ok {
		return nil, entity.ErrBookingNotFound
	}
	out := *booking
	return &out, nil
}

func (b *bookingStore) GetAll(_ context.Context, filter entity.BookingFilter) ([]*entity.Booking, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()

	var bookings []*entity.Booking
	for _, booking := range b.s.bookings {
		if filter.Matches(booking) {
			out := *booking
			bookings = append(bookings, &out)
		}
	}
	sort.Slice(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})
	return bookings, nil
}

func (b *bookingStore) UpdateStatus(_ context.Context, id string, from, to entity.BookingStatus) (*entity.Booking, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	booking, ok := b.s.bookings[id]
	if !ok {
		return nil, entity.ErrBookingNotFound
	}
	if booking.Status != from {
		return nil, entity.ErrConcurrentUpdate
	}

	key := booking.SlotKey()
	if to.Holds() && !from.Holds() {
		if _, taken := b.s.active[key]; taken {
			return nil, entity.ErrSlotConflict
		}
		b.s.active[key] = id
	}
	if !to.Holds() && b.s.active[key] == id {
		delete(b.s.active, key)
	}

	booking.Status = to
	booking.UpdatedAt = time.Now().UTC()
	out := *booking
	return &out, nil
}

func (b *bookingStore) DeleteByResource(_ context.Context, resourceID string) (int64, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	return b.s.deleteBookingsLocked(func(booking *entity.Booking) bool {
		return booking.ResourceID == resourceID
	}), nil
}

func (b *bookingStore) DeleteOrphans(_ context.Context, resourceIDs []string, before time.Time) (int64, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	known := make(map[string]struct{}, len(resourceIDs))
	for _, id := range resourceIDs {
		known[id] = struct{}{}
	}
	return b.s.deleteBookingsLocked(func(booking *entity.Booking) bool {
		_, ok := known[booking.ResourceID]
		return !ok && booking.CreatedAt.Before(before)
	}), nil
}

func (b *bookingStore) Stats(_ context.Context) (entity.BookingStats, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()

	bookings := make([]*entity.Booking, 0, len(b.s.bookings))
	for _, booking := range b.s.bookings {
		bookings = append(bookings, booking)
	}
	return entity.CountBookings(bookings), nil
}

func (s *Store) deleteBookingsLocked(match func(*entity.Booking) bool) int64 {
	var n int64
	for id, booking := range s.bookings {
		if !match(booking) {
			continue
		}
		key := booking.SlotKey()
		if s.active[key] == id {
			delete(s.active, key)
		}
		delete(s.bookings, id)
		n++
	}
	return n
}

func copyResource(r *entity.Resource) *entity.Resource {
	out := *r
	out.Features = append([]string(nil), r.Features...)
	out.TimeSlots = append([]string(nil), r.TimeSlots...)
	return &out
}
