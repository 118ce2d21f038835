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

const resourceColumns = `id, name, type, capacity, description, image, features, time_slots, created_at, updated_at`

type resourceRepository struct {
	db *sql.DB
}

func NewResourceRepository(db *sql.DB) ResourceRepository {
	return &resourceRepository{db: db}
}

// NewRepository returns the PostgreSQL stores. Resource deletion cascades to
// bookings inside one transaction.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Resources:     NewResourceRepository(db),
		Bookings:      NewBookingRepository(db),
		AtomicCascade: true,
	}
}

func scanResource(row rowScanner) (*entity.Resource, error) {
	var resource entity.Resource
	err := row.Scan(
		&resource.ID,
		&resource.Name,
		&resource.Type,
		&resource.Capacity,
		&resource.Description,
		&resource.Image,
		pq.Array(&resource.Features),
		pq.Array(&resource.TimeSlots),
		&resource.CreatedAt,
		&resource.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &resource, nil
}

func (r *resourceRepository) Create(ctx context.Context, resource *entity.Resource) error {
	if resource.ID == "" {
		resource.ID = uuid.NewString()
	}
	now := time.Now().UTC()

	query := `INSERT INTO resources (` + resourceColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.db.ExecContext(ctx, query,
		resource.ID,
		resource.Name,
		resource.Type,
		resource.Capacity,
		resource.Description,
		resource.Image,
		pq.Array(resource.Features),
		pq.Array(resource.TimeSlots),
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	resource.CreatedAt = now
	resource.UpdatedAt = now
	return nil
}

func (r *resourceRepository) GetByID(ctx context.Context, id string) (*entity.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`

	resource, err := scanResource(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrResourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resource: %w", err)
	}
	return resource, nil
}

func (r *resourceRepository) GetAll(ctx context.Context, filter entity.ResourceFilter) ([]*entity.Resource, error) {
	var (
		conds []string
		args  []interface{}
	)
	if filter.Type != "" {
		args = append(args, filter.Type)
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conds = append(conds, fmt.Sprintf("(name ILIKE $%d OR description ILIKE $%d)", len(args), len(args)))
	}

	query := `SELECT ` + resourceColumns + ` FROM resources`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query resources: %w", err)
	}
	defer rows.Close()

	var resources []*entity.Resource
	for rows.Next() {
		resource, err := scanResource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}
		resources = append(resources, resource)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resources: %w", err)
	}

	return resources, nil
}

func (r *resourceRepository) Update(ctx context.Context, resource *entity.Resource) error {
	query := `
		UPDATE resources
		SET name = $1, type = $2, capacity = $3, description = $4, image = $5,
		    features = $6, time_slots = $7, updated_at = $8
		WHERE id = $9
	`

	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, query,
		resource.Name,
		resource.Type,
		resource.Capacity,
		resource.Description,
		resource.Image,
		pq.Array(resource.Features),
		pq.Array(resource.TimeSlots),
		now,
		resource.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update resource: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrResourceNotFound
	}

	resource.UpdatedAt = now
	return nil
}

// Delete removes the resource together with its bookings.
func (r *resourceRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE resource_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete bookings of resource: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete resource: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.ErrResourceNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *resourceRepository) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM resources`)
	if err != nil {
		return nil, fmt.Errorf("failed to query resource ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan resource id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resource ids: %w", err)
	}

	return ids, nil
}
