// Package sqlite persists prediction records in an embedded sqlite database.
package sqlite

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/cityflow/traffic-insight-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS traffic_predictions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	location    TEXT NOT NULL,
	street_name TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL,
	status      TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_traffic_predictions_location
	ON traffic_predictions (location, street_name, created_at);
`

// Store is an append-only record sink backed by sqlite. Records are never
// updated or deleted.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// Open connects to the sqlite database at path, applying the schema if
// needed.
func Open(path string, logger *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_time_format=sqlite", path)
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Append persists one prediction record.
func (s *Store) Append(ctx context.Context, record domain.PredictionRecord) error {
	const query = `
		INSERT INTO traffic_predictions (location, street_name, description, status, created_at)
		VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		record.Location,
		record.StreetName,
		record.Description,
		record.Status,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append prediction record: %w", err)
	}
	return nil
}

// Recent returns the newest records first, up to limit.
func (s *Store) Recent(ctx context.Context, limit int) ([]domain.PredictionRecord, error) {
	const query = `
		SELECT location, street_name, description, status, created_at
		FROM traffic_predictions
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	records := []domain.PredictionRecord{}
	if err := s.db.SelectContext(ctx, &records, query, limit); err != nil {
		return nil, fmt.Errorf("query recent records: %w", err)
	}
	return records, nil
}

// ByLocation returns the newest records for a location, optionally narrowed
// by street name, up to limit.
func (s *Store) ByLocation(ctx context.Context, location, streetName string, limit int) ([]domain.PredictionRecord, error) {
	const withStreet = `
		SELECT location, street_name, description, status, created_at
		FROM traffic_predictions
		WHERE location = ? AND street_name = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`
	const withoutStreet = `
		SELECT location, street_name, description, status, created_at
		FROM traffic_predictions
		WHERE location = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`

	records := []domain.PredictionRecord{}
	var err error
	if streetName != "" {
		err = s.db.SelectContext(ctx, &records, withStreet, location, streetName, limit)
	} else {
		err = s.db.SelectContext(ctx, &records, withoutStreet, location, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query records by location: %w", err)
	}
	return records, nil
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
