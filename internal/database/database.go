// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package database is the Postgres persistence layer. All access goes
// through the DB wrapper; callers never see raw driver errors, only the
// sentinel errors declared in errors.go wrapped with context.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/beacon-watch/beacon/internal/config"
	"github.com/beacon-watch/beacon/internal/logging"
)

// DB wraps the Postgres connection pool and provides data access methods.
type DB struct {
	conn *sql.DB
}

// Open connects to Postgres, applies pool settings, verifies connectivity,
// and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (*DB, error) {
	conn, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping store: %w", classify(err))
	}

	db := &DB{conn: conn}
	if err := db.Migrate(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logging.Info().Int("max_open_conns", cfg.MaxOpenConns).Msg("store connected")
	return db, nil
}

// Close releases the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies store connectivity. Used by health endpoints.
func (db *DB) Ping(ctx context.Context) error {
	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("store ping failed: %w", classify(err))
	}
	return nil
}

// migrations are applied in order inside a single transaction. Statements
// are idempotent so startup is safe to repeat.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS regions (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS websites (
		id UUID PRIMARY KEY,
		url TEXT NOT NULL,
		time_added TIMESTAMPTZ NOT NULL DEFAULT now(),
		user_id UUID NOT NULL REFERENCES users(id),
		is_active BOOLEAN NOT NULL DEFAULT true,
		UNIQUE (user_id, url)
	)`,
	`CREATE TABLE IF NOT EXISTS website_ticks (
		id UUID PRIMARY KEY,
		website_id UUID NOT NULL REFERENCES websites(id) ON DELETE CASCADE,
		region_id UUID NOT NULL REFERENCES regions(id),
		response_time_ms INTEGER NOT NULL CHECK (response_time_ms >= 0),
		status TEXT NOT NULL CHECK (status IN ('UP', 'DOWN')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_websites_user_active
		ON websites (user_id, is_active)`,
	`CREATE INDEX IF NOT EXISTS idx_ticks_website_created
		ON website_ticks (website_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_ticks_region
		ON website_ticks (region_id)`,
}

// Migrate creates the schema if it does not exist.
func (db *DB) Migrate(ctx context.Context) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", classify(err))
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range migrations {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i, classify(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migrations: %w", classify(err))
	}

	logging.Debug().Int("statements", len(migrations)).Msg("schema migrations applied")
	return nil
}
