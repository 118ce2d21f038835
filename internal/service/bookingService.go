package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	repository "github.com/ds124wfegd/campusres/internal/database/postgres"
	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/pkg/pass"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	unknownResourceName = "Unknown Resource"
	unknownResourceType = "Resource"

	defaultPageLimit = 50
	maxPageLimit     = 200
)

type bookingService struct {
	resources repository.ResourceRepository
	bookings  repository.BookingRepository
	changes   *ChangePublisher
	notify    *notifications
	passes    *pass.Issuer
}

func NewBookingService(
	repo *repository.Repository,
	changes *ChangePublisher,
	tasks TaskPublisher,
	notifier Notifier,
	passes *pass.Issuer,
) BookingService {
	return &bookingService{
		resources: repo.Resources,
		bookings:  repo.Bookings,
		changes:   changes,
		notify:    newNotifications(tasks, notifier),
		passes:    passes,
	}
}

// CreateBooking books a slot of a resource for the user. The store rejects the
// insert when another non-rejected booking holds the slot, so of several
// concurrent requests for one slot exactly one succeeds.
func (s *bookingService) CreateBooking(ctx context.Context, user entity.Identity, req *CreateBookingRequest) (*entity.Booking, error) {
	if user.UID == "" {
		return nil, entity.ErrUnauthorized
	}

	date, err := entity.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return nil, err
	}
	slot := strings.TrimSpace(req.TimeSlot)
	if req.ResourceID == "" || slot == "" {
		return nil, fmt.Errorf("%w: resource and time slot are required", entity.ErrInvalidInput)
	}

	resource, err := s.resources.GetByID(ctx, req.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	if !resource.OffersSlot(slot) {
		return nil, fmt.Errorf("%w: %q", entity.ErrResourceHasNoSlot, slot)
	}

	key := entity.SlotKey{ResourceID: resource.ID, Date: date, TimeSlot: slot}
	existing, err := s.bookings.GetAll(ctx, entity.BookingFilter{ResourceID: resource.ID, Date: date})
	if err != nil {
		return nil, fmt.Errorf("failed to check existing bookings: %w", err)
	}
	for _, b := range existing {
		if b.TimeSlot == slot && b.Status.Holds() {
			logrus.WithFields(logrus.Fields{"slot": key.String(), "user_id": user.UID}).Info("Slot already held")
			return nil, entity.ErrSlotConflict
		}
	}

	booking := &entity.Booking{
		ID:         uuid.NewString(),
		ResourceID: resource.ID,
		Date:       date,
		TimeSlot:   slot,
		UserID:     user.UID,
		UserEmail:  user.Email,
		Status:     entity.BookingStatusPending,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		if errors.Is(err, entity.ErrSlotConflict) {
			logrus.WithFields(logrus.Fields{"slot": key.String(), "user_id": user.UID}).Info("Slot taken by a concurrent booking")
			return nil, err
		}
		if errors.Is(err, entity.ErrResourceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"resource_id": booking.ResourceID,
		"date":        booking.Date,
		"time_slot":   booking.TimeSlot,
		"user_id":     booking.UserID,
	}).Info("Booking created")

	s.changes.Publish(ctx, entity.NewChangeEvent(entity.ChangeCreated, entity.CollectionBookings, booking.ID, booking))
	s.notify.send(ctx, bookingCreatedMessage(booking, resource.Name))

	return booking, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id string) (*entity.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

// GetUserBookings returns the user's bookings, newest date first, with the
// name, image and type of the booked resource.
func (s *bookingService) GetUserBookings(ctx context.Context, userID string) ([]*entity.BookingView, error) {
	bookings, err := s.bookings.GetAll(ctx, entity.BookingFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("failed to get user bookings: %w", err)
	}

	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].Date != bookings[j].Date {
			return bookings[i].Date > bookings[j].Date
		}
		return bookings[i].TimeSlot < bookings[j].TimeSlot
	})

	return s.enrich(ctx, bookings)
}

func (s *bookingService) GetBookingsForDate(ctx context.Context, resourceID string, date entity.Date) ([]*entity.Booking, error) {
	if !date.Valid() {
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidDate, date)
	}
	bookings, err := s.bookings.GetAll(ctx, entity.BookingFilter{ResourceID: resourceID, Date: date})
	if err != nil {
		return nil, fmt.Errorf("failed to get bookings for date: %w", err)
	}
	return bookings, nil
}

// GetSlotBoard reports the state of every slot the resource offers on date as
// seen by userID.
func (s *bookingService) GetSlotBoard(ctx context.Context, resourceID string, date entity.Date, userID string) ([]entity.SlotAvailability, error) {
	resource, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	bookings, err := s.GetBookingsForDate(ctx, resourceID, date)
	if err != nil {
		return nil, err
	}

	holders := make(map[string]*entity.Booking, len(bookings))
	for _, b := range bookings {
		if b.Status.Holds() {
			holders[b.TimeSlot] = b
		}
	}

	board := make([]entity.SlotAvailability, 0, len(resource.TimeSlots))
	for _, slot := range resource.TimeSlots {
		entry := entity.SlotAvailability{TimeSlot: slot, State: entity.SlotAvailable}
		if b, ok := holders[slot]; ok {
			entry.State = entity.SlotBooked
			if userID != "" && b.UserID == userID {
				entry.State = entity.SlotMine
				entry.BookingID = b.ID
				entry.Status = b.Status
			}
		}
		board = append(board, entry)
	}
	return board, nil
}

func (s *bookingService) ListBookings(ctx context.Context, filter entity.BookingFilter, limit, offset int) (*BookingPage, error) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	bookings, err := s.bookings.GetAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	sort.SliceStable(bookings, func(i, j int) bool {
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})

	total := len(bookings)
	start, end := offset, offset+limit
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	views, err := s.enrich(ctx, bookings[start:end])
	if err != nil {
		return nil, err
	}
	return &BookingPage{Bookings: views, Total: total, Limit: limit, Offset: offset}, nil
}

// UpdateBookingStatus applies an administrator's decision. The write only
// succeeds if the booking still has the status that was checked.
func (s *bookingService) UpdateBookingStatus(ctx context.Context, id string, status entity.BookingStatus) (*entity.Booking, error) {
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if err := entity.CheckTransition(current.Status, status); err != nil {
		return nil, err
	}

	updated, err := s.bookings.UpdateStatus(ctx, id, current.Status, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"booking_id": id,
		"from":       current.Status,
		"to":         updated.Status,
	}).Info("Booking status updated")

	s.changes.Publish(ctx, entity.NewChangeEvent(entity.ChangeUpdated, entity.CollectionBookings, updated.ID, updated))
	s.notify.send(ctx, bookingStatusMessage(updated))

	return updated, nil
}

func (s *bookingService) GetStats(ctx context.Context) (*DashboardStats, error) {
	ids, err := s.resources.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count resources: %w", err)
	}
	stats, err := s.bookings.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	return &DashboardStats{Resources: len(ids), Bookings: stats}, nil
}

func (s *bookingService) BookingPass(ctx context.Context, id string, requester *entity.Session) ([]byte, error) {
	if requester == nil {
		return nil, entity.ErrUnauthorized
	}

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking.UserID != requester.UID && !requester.IsAdmin() {
		return nil, entity.ErrForbidden
	}
	if booking.Status != entity.BookingStatusApproved {
		return nil, entity.ErrPassUnavailable
	}
	if s.passes == nil {
		return nil, fmt.Errorf("%w: pass issuer is not configured", entity.ErrPassUnavailable)
	}

	png, err := s.passes.PNG(pass.Claims{
		BookingID:  booking.ID,
		ResourceID: booking.ResourceID,
		Date:       string(booking.Date),
		TimeSlot:   booking.TimeSlot,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render pass: %w", err)
	}
	return png, nil
}

// CheckPass is used at the door: the token must carry a valid signature and
// still describe an approved booking.
func (s *bookingService) CheckPass(ctx context.Context, token string) (*entity.Booking, error) {
	if s.passes == nil {
		return nil, fmt.Errorf("%w: pass issuer is not configured", entity.ErrPassUnavailable)
	}

	claims, err := s.passes.Verify(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidPass, err)
	}

	booking, err := s.bookings.GetByID(ctx, claims.BookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	if booking.ResourceID != claims.ResourceID || string(booking.Date) != claims.Date || booking.TimeSlot != claims.TimeSlot {
		return nil, fmt.Errorf("%w: pass does not match the booking", entity.ErrInvalidPass)
	}
	if booking.Status != entity.BookingStatusApproved {
		return nil, entity.ErrPassUnavailable
	}
	return booking, nil
}

func (s *bookingService) enrich(ctx context.Context, bookings []*entity.Booking) ([]*entity.BookingView, error) {
	cache := make(map[string]*entity.Resource)
	views := make([]*entity.BookingView, 0, len(bookings))

	for _, b := range bookings {
		resource, seen := cache[b.ResourceID]
		if !seen {
			r, err := s.resources.GetByID(ctx, b.ResourceID)
			switch {
			case err == nil:
				resource = r
			case errors.Is(err, entity.ErrResourceNotFound):
			default:
				return nil, fmt.Errorf("failed to get booked resource: %w", err)
			}
			cache[b.ResourceID] = resource
		}

		view := &entity.BookingView{
			Booking:      *b,
			ResourceName: unknownResourceName,
			ResourceType: unknownResourceType,
		}
		if resource != nil {
			view.ResourceName = resource.Name
			view.ResourceImage = resource.Image
			view.ResourceType = string(resource.Type)
		}
		views = append(views, view)
	}
	return views, nil
}
