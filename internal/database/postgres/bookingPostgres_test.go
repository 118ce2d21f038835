package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	insertBooking = regexp.QuoteMeta("INSERT INTO bookings")
	updateStatus  = regexp.QuoteMeta("UPDATE bookings SET status")
	selectBooking = regexp.QuoteMeta("FROM bookings WHERE id = $1")
)

func newMockRepo(t *testing.T) (BookingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewBookingRepository(db), mock
}

func pendingBooking() *entity.Booking {
	return &entity.Booking{
		ID:         "b-1",
		ResourceID: "r-1",
		Date:       "2025-01-01",
		TimeSlot:   "09:00-11:00",
		UserID:     "uid-alice",
		UserEmail:  "alice@campus.com",
		Status:     entity.BookingStatusPending,
	}
}

func TestBookingCreateErrorMapping(t *testing.T) {
	tests := []struct {
		name  string
		setup func(mock sqlmock.Sqlmock)
		want  error
	}{
		{
			name: "inserted",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(insertBooking).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("b-1"))
			},
		},
		{
			name: "slot held, insert skipped",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(insertBooking).WillReturnRows(sqlmock.NewRows([]string{"id"}))
			},
			want: entity.ErrSlotConflict,
		},
		{
			name: "unique violation",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(insertBooking).WillReturnError(&pq.Error{Code: uniqueViolation})
			},
			want: entity.ErrSlotConflict,
		},
		{
			name: "resource deleted meanwhile",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(insertBooking).WillReturnError(&pq.Error{Code: foreignKeyViolation})
			},
			want: entity.ErrResourceNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			tt.setup(mock)

			booking := pendingBooking()
			err := repo.Create(context.Background(), booking)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			} else {
				require.NoError(t, err)
				assert.False(t, booking.CreatedAt.IsZero())
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestBookingCreateOtherErrorsAreNotConflicts(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(insertBooking).WillReturnError(errors.New("connection reset"))

	err := repo.Create(context.Background(), pendingBooking())
	require.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrSlotConflict)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestBookingUpdateStatusLostRace(t *testing.T) {
	columns := []string{"id", "resource_id", "date", "time_slot", "user_id", "user_email", "status", "created_at", "updated_at"}
	now := time.Now().UTC()

	t.Run("status changed by another writer", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(updateStatus).WillReturnRows(sqlmock.NewRows(columns))
		mock.ExpectQuery(selectBooking).WithArgs("b-1").WillReturnRows(sqlmock.NewRows(columns).
			AddRow("b-1", "r-1", "2025-01-01", "09:00-11:00", "uid-alice", "alice@campus.com", "rejected", now, now))

		_, err := repo.UpdateStatus(context.Background(), "b-1", entity.BookingStatusPending, entity.BookingStatusApproved)
		assert.ErrorIs(t, err, entity.ErrConcurrentUpdate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("booking gone", func(t *testing.T) {
		repo, mock := newMockRepo(t)
		mock.ExpectQuery(updateStatus).WillReturnRows(sqlmock.NewRows(columns))
		mock.ExpectQuery(selectBooking).WithArgs("b-1").WillReturnRows(sqlmock.NewRows(columns))

		_, err := repo.UpdateStatus(context.Background(), "b-1", entity.BookingStatusPending, entity.BookingStatusApproved)
		assert.ErrorIs(t, err, entity.ErrBookingNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
