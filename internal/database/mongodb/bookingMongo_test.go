package mongodb

import (
	"context"
	"testing"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func pendingBooking() *entity.Booking {
	return &entity.Booking{
		ResourceID: "r-1",
		Date:       "2025-01-01",
		TimeSlot:   "09:00-11:00",
		UserID:     "uid-alice",
		UserEmail:  "alice@campus.com",
		Status:     entity.BookingStatusPending,
	}
}

func TestBookingCreateErrorMapping(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("inserted", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		booking := pendingBooking()
		require.NoError(mt, NewBookingRepository(mt.DB).Create(context.Background(), booking))
		assert.NotEmpty(mt, booking.ID)
		assert.False(mt, booking.CreatedAt.IsZero())
	})

	mt.Run("duplicate key on the active slot index", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: campusres.bookings index: uq_bookings_active_slot",
		}))

		err := NewBookingRepository(mt.DB).Create(context.Background(), pendingBooking())
		assert.ErrorIs(mt, err, entity.ErrSlotConflict)
	})

	mt.Run("other write errors are not conflicts", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    2,
			Message: "bad value",
		}))

		err := NewBookingRepository(mt.DB).Create(context.Background(), pendingBooking())
		require.Error(mt, err)
		assert.NotErrorIs(mt, err, entity.ErrSlotConflict)
	})
}
