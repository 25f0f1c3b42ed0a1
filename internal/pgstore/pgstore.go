// Package pgstore provides PostgreSQL-backed slot and booking stores.
package pgstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const uniqueViolation = "23505"

// DB wraps the connection pool shared by the stores.
type DB struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

// Open connects to dsn and applies the schema.
func Open(ctx context.Context, dsn string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db := &DB{pool: pool, logger: logger}
	if err := db.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	logger.Info().Msg("Postgres store initialized")
	return db, nil
}

func (db *DB) migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS slots (
			seq BIGSERIAL,
			id TEXT NOT NULL,
			category TEXT NOT NULL,
			location TEXT NOT NULL DEFAULT '',
			hourly_rate DOUBLE PRECISION NOT NULL CHECK (hourly_rate >= 0),
			available BOOLEAN NOT NULL DEFAULT TRUE,
			has_charging_station BOOLEAN NOT NULL DEFAULT FALSE,
			max_length_ft INTEGER,
			has_helmet_lock BOOLEAN
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS slots_id_key ON slots (lower(id))`,
		`CREATE TABLE IF NOT EXISTS bookings (
			seq BIGSERIAL,
			id TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			vehicle_number TEXT NOT NULL DEFAULT '',
			slot_id TEXT NOT NULL,
			start_time TIMESTAMPTZ NOT NULL,
			end_time TIMESTAMPTZ NOT NULL,
			status TEXT NOT NULL DEFAULT 'ACTIVE',
			total_amount DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS bookings_id_key ON bookings (lower(id))`,
		`CREATE INDEX IF NOT EXISTS bookings_phone_idx ON bookings (lower(trim(phone)))`,
	}
	for _, q := range queries {
		if _, err := db.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Ping verifies the pool; used by readiness checks.
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

func (db *DB) Close() {
	db.pool.Close()
}

// truncate empties both tables; tests only.
func (db *DB) truncate(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `TRUNCATE slots, bookings RESTART IDENTITY`)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
