package service

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/ds124wfegd/campusres/pkg/pass"
	"github.com/ds124wfegd/campusres/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	day       = "2025-01-01"
	morning   = "09:00-11:00"
	afternoon = "11:00-13:00"
)

func TestBookingLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lab := f.createResource(t, "Physics Lab", morning, afternoon)

	first, err := f.book(lab.ID, day, morning, alice)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusPending, first.Status)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, alice.Email, first.UserEmail)

	_, err = f.book(lab.ID, day, morning, bob)
	require.ErrorIs(t, err, entity.ErrSlotConflict)
	assert.Equal(t, "slot already booked", err.Error())

	approved, err := f.bookings.UpdateBookingStatus(ctx, first.ID, entity.BookingStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusApproved, approved.Status)

	_, err = f.book(lab.ID, day, morning, bob)
	require.ErrorIs(t, err, entity.ErrSlotConflict)

	second, err := f.book(lab.ID, day, afternoon, bob)
	require.NoError(t, err)

	board, err := f.bookings.GetSlotBoard(ctx, lab.ID, day, bob.UID)
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, entity.SlotBooked, board[0].State)
	assert.Empty(t, board[0].BookingID)
	assert.Equal(t, entity.SlotMine, board[1].State)
	assert.Equal(t, second.ID, board[1].BookingID)

	// the same slot on another day is free
	_, err = f.book(lab.ID, "2025-01-02", morning, bob)
	assert.NoError(t, err)
}

func TestRejectedBookingFreesSlot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lab := f.createResource(t, "Chem Lab", morning)

	first, err := f.book(lab.ID, day, morning, alice)
	require.NoError(t, err)

	_, err = f.bookings.UpdateBookingStatus(ctx, first.ID, entity.BookingStatusRejected)
	require.NoError(t, err)

	second, err := f.book(lab.ID, day, morning, bob)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	all, err := f.bookings.GetBookingsForDate(ctx, lab.ID, day)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestConcurrentBookingSingleWinner(t *testing.T) {
	f := newFixture(t)
	lab := f.createResource(t, "Hall A", morning)

	const bookers = 25
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < bookers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := entity.Identity{UID: "uid-" + string(rune('a'+i)), Email: "u@campus.com"}
			_, err := f.book(lab.ID, day, morning, user)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, entity.ErrSlotConflict):
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, bookers-1, conflicts)
}

func TestCreateBookingValidation(t *testing.T) {
	f := newFixture(t)
	lab := f.createResource(t, "Lab", morning)

	tests := []struct {
		name    string
		user    entity.Identity
		req     CreateBookingRequest
		wantErr error
	}{
		{
			name:    "anonymous",
			user:    entity.Identity{},
			req:     CreateBookingRequest{ResourceID: lab.ID, Date: day, TimeSlot: morning},
			wantErr: entity.ErrUnauthorized,
		},
		{
			name:    "bad date",
			user:    alice,
			req:     CreateBookingRequest{ResourceID: lab.ID, Date: "01/01/2025", TimeSlot: morning},
			wantErr: entity.ErrInvalidDate,
		},
		{
			name:    "missing slot",
			user:    alice,
			req:     CreateBookingRequest{ResourceID: lab.ID, Date: day, TimeSlot: "  "},
			wantErr: entity.ErrInvalidInput,
		},
		{
			name:    "unknown resource",
			user:    alice,
			req:     CreateBookingRequest{ResourceID: "missing", Date: day, TimeSlot: morning},
			wantErr: entity.ErrResourceNotFound,
		},
		{
			name:    "slot not offered",
			user:    alice,
			req:     CreateBookingRequest{ResourceID: lab.ID, Date: day, TimeSlot: afternoon},
			wantErr: entity.ErrResourceHasNoSlot,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.bookings.CreateBooking(context.Background(), tt.user, &req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	all, err := f.repo.Bookings.GetAll(context.Background(), entity.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestUpdateBookingStatusTransitions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lab := f.createResource(t, "Lab", morning, afternoon)

	booking, err := f.book(lab.ID, day, morning, alice)
	require.NoError(t, err)

	_, err = f.bookings.UpdateBookingStatus(ctx, booking.ID, entity.BookingStatusPending)
	var transitionErr *entity.TransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, entity.BookingStatusPending, transitionErr.From)

	_, err = f.bookings.UpdateBookingStatus(ctx, booking.ID, entity.BookingStatusApproved)
	require.NoError(t, err)

	_, err = f.bookings.UpdateBookingStatus(ctx, booking.ID, entity.BookingStatusRejected)
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)

	_, err = f.bookings.UpdateBookingStatus(ctx, "missing", entity.BookingStatusApproved)
	assert.ErrorIs(t, err, entity.ErrBookingNotFound)

	stored, err := f.bookings.GetBooking(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusApproved, stored.Status)
}

func TestUserBookingsEnrichment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lab := f.createResource(t, "Robotics Lab", morning)
	hall := f.createResource(t, "Main Hall", morning)

	_, err := f.book(lab.ID, "2025-01-01", morning, alice)
	require.NoError(t, err)
	_, err = f.book(hall.ID, "2025-02-01", morning, alice)
	require.NoError(t, err)
	_, err = f.book(lab.ID, "2025-03-01", morning, bob)
	require.NoError(t, err)

	// delete the hall record only, leaving its booking behind
	require.NoError(t, f.repo.Resources.Delete(ctx, hall.ID))

	views, err := f.bookings.GetUserBookings(ctx, alice.UID)
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, entity.Date("2025-02-01"), views[0].Date)
	assert.Equal(t, "Unknown Resource", views[0].ResourceName)
	assert.Equal(t, "Resource", views[0].ResourceType)

	assert.Equal(t, "Robotics Lab", views[1].ResourceName)
	assert.Equal(t, "Lab", views[1].ResourceType)
}

func TestListBookingsAndStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lab := f.createResource(t, "Lab", morning, afternoon)

	first, err := f.book(lab.ID, day, morning, alice)
	require.NoError(t, err)
	_, err = f.book(lab.ID, day, afternoon, bob)
	require.NoError(t, err)
	_, err = f.bookings.UpdateBookingStatus(ctx, first.ID, entity.BookingStatusRejected)
	require.NoError(t, err)

	page, err := f.bookings.ListBookings(ctx, entity.BookingFilter{Status: entity.BookingStatusPending}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, defaultPageLimit, page.Limit)
	require.Len(t, page.Bookings, 1)
	assert.Equal(t, bob.UID, page.Bookings[0].UserID)

	page, err = f.bookings.ListBookings(ctx, entity.BookingFilter{}, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Empty(t, page.Bookings)

	stats, err := f.bookings.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Resources)
	assert.Equal(t, entity.BookingStats{Total: 2, Pending: 1, Rejected: 1}, stats.Bookings)
}

func TestBookingNotifications(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	lab := f.createResource(t, "Lab", morning)

	booking, err := f.book(lab.ID, day, morning, alice)
	require.NoError(t, err)
	_, err = f.bookings.UpdateBookingStatus(ctx, booking.ID, entity.BookingStatusApproved)
	require.NoError(t, err)

	tasks := f.tasks.byType(queue.TaskTypeSendNotification)
	require.Len(t, tasks, 2)
	assert.Contains(t, tasks[0].GetString("text"), "Lab")
	assert.Contains(t, tasks[1].GetString("text"), "approved")
}

func TestBookingPass(t *testing.T) {
	ctx := context.Background()
	repoFixture := newFixture(t)
	issuer := pass.NewIssuer("pass-secret", 128)
	bookings := NewBookingService(repoFixture.repo, nil, nil, nil, issuer)
	lab := repoFixture.createResource(t, "Lab", morning)

	booking, err := bookings.CreateBooking(ctx, alice, &CreateBookingRequest{ResourceID: lab.ID, Date: day, TimeSlot: morning})
	require.NoError(t, err)

	owner := &entity.Session{Identity: alice, Role: entity.RoleStudent}
	stranger := &entity.Session{Identity: bob, Role: entity.RoleStudent}
	admin := &entity.Session{Identity: entity.Identity{UID: "uid-admin"}, Role: entity.RoleAdmin}

	_, err = bookings.BookingPass(ctx, booking.ID, owner)
	assert.ErrorIs(t, err, entity.ErrPassUnavailable)

	_, err = bookings.UpdateBookingStatus(ctx, booking.ID, entity.BookingStatusApproved)
	require.NoError(t, err)

	_, err = bookings.BookingPass(ctx, booking.ID, stranger)
	assert.ErrorIs(t, err, entity.ErrForbidden)

	for _, session := range []*entity.Session{owner, admin} {
		png, err := bookings.BookingPass(ctx, booking.ID, session)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
	}

	claims := pass.Claims{BookingID: booking.ID, ResourceID: lab.ID, Date: day, TimeSlot: morning}
	admitted, err := bookings.CheckPass(ctx, issuer.Token(claims))
	require.NoError(t, err)
	assert.Equal(t, booking.ID, admitted.ID)

	moved := claims
	moved.Date = "2025-01-02"
	_, err = bookings.CheckPass(ctx, issuer.Token(moved))
	assert.ErrorIs(t, err, entity.ErrInvalidPass)

	_, err = bookings.CheckPass(ctx, pass.NewIssuer("other-secret", 128).Token(claims))
	assert.ErrorIs(t, err, entity.ErrInvalidPass)

	_, err = bookings.CheckPass(ctx, "not-a-pass")
	assert.ErrorIs(t, err, entity.ErrInvalidPass)
}
