package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ds124wfegd/campusres/config"
	"github.com/sirupsen/logrus"

	_ "github.com/lib/pq"
)

func NewPostgresDB(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logrus.WithField("host", cfg.Host).Info("Successfully connected to PostgreSQL")
	return db, nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(20) NOT NULL CHECK (type IN ('Lab', 'Hall', 'Room', 'Equipment')),
		capacity INTEGER NOT NULL CHECK (capacity > 0),
		description TEXT NOT NULL DEFAULT '',
		image TEXT NOT NULL DEFAULT '',
		features TEXT[] NOT NULL DEFAULT '{}',
		time_slots TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id TEXT PRIMARY KEY,
		resource_id TEXT NOT NULL REFERENCES resources(id) ON DELETE CASCADE,
		date DATE NOT NULL,
		time_slot VARCHAR(64) NOT NULL,
		user_id VARCHAR(128) NOT NULL,
		user_email VARCHAR(255) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending'
			CHECK (status IN ('pending', 'approved', 'rejected')),
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,

	// At most one pending or approved booking per slot.
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_bookings_active_slot
		ON bookings(resource_id, date, time_slot) WHERE status <> 'rejected'`,

	`CREATE INDEX IF NOT EXISTS idx_resources_type ON resources(type)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_user_id ON bookings(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_resource_date ON bookings(resource_id, date)`,
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	for _, migration := range migrations {
		if _, err := db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("failed to execute migration: %w", err)
		}
	}

	logrus.Info("Database migrations completed successfully")
	return nil
}
