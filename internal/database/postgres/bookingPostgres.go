package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ds124wfegd/campusres/internal/entity"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

const bookingColumns = `id, resource_id, date, time_slot, user_id, user_email, status, created_at, updated_at`

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) BookingRepository {
	return &bookingRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var booking entity.Booking
	err := row.Scan(
		&booking.ID,
		&booking.ResourceID,
		&booking.Date,
		&booking.TimeSlot,
		&booking.UserID,
		&booking.UserEmail,
		&booking.Status,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// Create relies on the partial unique index over (resource_id, date, time_slot)
// so that two concurrent inserts for one slot cannot both succeed.
func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (resource_id, date, time_slot) WHERE status <> 'rejected' DO NOTHING
		RETURNING id
	`

	var id string
	err := r.db.QueryRowContext(ctx, query,
		booking.ID,
		booking.ResourceID,
		booking.Date,
		booking.TimeSlot,
		booking.UserID,
		booking.UserEmail,
		booking.Status,
		now,
		now,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) || isUniqueViolation(err) {
		return entity.ErrSlotConflict
	}
	if isForeignKeyViolation(err) {
		return entity.ErrResourceNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	booking.ID = id
	booking.CreatedAt = now
	booking.UpdatedAt = now
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*entity.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (r *bookingRepository) GetAll(ctx context.Context, filter entity.BookingFilter) ([]*entity.Booking, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.ResourceID != "" {
		add("resource_id", filter.ResourceID)
	}
	if filter.Date != "" {
		add("date", filter.Date)
	}
	if filter.UserID != "" {
		add("user_id", filter.UserID)
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*entity.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}

	return bookings, nil
}

func (r *bookingRepository) UpdateStatus(ctx context.Context, id string, from, to entity.BookingStatus) (*entity.Booking, error) {
	query := `
		UPDATE bookings SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + bookingColumns

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, to, time.Now().UTC(), id, from))
	if errors.Is(err, sql.ErrNoRows) {
		// Either the booking is gone or another writer changed its status first.
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, entity.ErrConcurrentUpdate
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}
	return booking, nil
}

func (r *bookingRepository) DeleteByResource(ctx context.Context, resourceID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE resource_id = $1`, resourceID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete bookings of resource: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

func (r *bookingRepository) DeleteOrphans(ctx context.Context, resourceIDs []string, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM bookings WHERE NOT (resource_id = ANY($1)) AND created_at < $2`,
		pq.Array(resourceIDs), before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned bookings: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected, nil
}

func (r *bookingRepository) Stats(ctx context.Context) (entity.BookingStats, error) {
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected')
		FROM bookings
	`

	var stats entity.BookingStats
	err := r.db.QueryRowContext(ctx, query).Scan(
		&stats.Total,
		&stats.Pending,
		&stats.Approved,
		&stats.Rejected,
	)
	if err != nil {
		return stats, fmt.Errorf("failed to get booking stats: %w", err)
	}
	return stats, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}
