// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/beacon-watch/beacon/internal/models"
)

// GetOrCreateRegion returns the region row for name, creating it on first
// use. Safe under concurrent worker startups: a unique-violation race falls
// back to reading the winner's row.
func (db *DB) GetOrCreateRegion(ctx context.Context, name string) (*models.Region, error) {
	region, err := db.getRegionByName(ctx, name)
	if err == nil {
		return region, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	region = &models.Region{ID: uuid.New().String(), Name: name}
	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO regions (id, name) VALUES ($1, $2)`,
		region.ID, region.Name,
	)
	if err == nil {
		return region, nil
	}
	if errors.Is(classify(err), ErrDuplicate) {
		// Another worker created it between our read and insert.
		return db.getRegionByName(ctx, name)
	}
	return nil, fmt.Errorf("failed to create region %q: %w", name, classify(err))
}

func (db *DB) getRegionByName(ctx context.Context, name string) (*models.Region, error) {
	region := &models.Region{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name FROM regions WHERE name = $1`,
		name,
	).Scan(&region.ID, &region.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to get region %q: %w", name, classify(err))
	}
	return region, nil
}
