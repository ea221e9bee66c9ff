// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/beacon-watch/beacon/internal/models"
)

// InsertTick persists one probe observation. Returns ErrForeignKey when the
// website was deleted after the job was enqueued; callers treat that as an
// obsolete job, not a failure.
func (db *DB) InsertTick(ctx context.Context, websiteID, regionID string, responseTimeMs int, status string) (*models.WebsiteTick, error) {
	tick := &models.WebsiteTick{
		ID:             uuid.New().String(),
		WebsiteID:      websiteID,
		RegionID:       regionID,
		ResponseTimeMs: responseTimeMs,
		Status:         status,
	}

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO website_ticks (id, website_id, region_id, response_time_ms, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		tick.ID, tick.WebsiteID, tick.RegionID, tick.ResponseTimeMs, tick.Status,
	).Scan(&tick.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert tick for website %s: %w", websiteID, classify(err))
	}
	return tick, nil
}

// WebsiteOwner returns the owning user id of a website, for denormalizing
// tick events. Returns ErrNotFound when the website is gone.
func (db *DB) WebsiteOwner(ctx context.Context, websiteID string) (string, error) {
	var userID string
	err := db.conn.QueryRowContext(ctx,
		`SELECT user_id FROM websites WHERE id = $1`,
		websiteID,
	).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve owner of website %s: %w", websiteID, classify(err))
	}
	return userID, nil
}

// WebsiteURL returns the URL of a website regardless of owner. Used by the
// gateway to enrich tick events.
func (db *DB) WebsiteURL(ctx context.Context, websiteID string) (string, error) {
	var url string
	err := db.conn.QueryRowContext(ctx,
		`SELECT url FROM websites WHERE id = $1`,
		websiteID,
	).Scan(&url)
	if err != nil {
		return "", fmt.Errorf("failed to resolve URL of website %s: %w", websiteID, classify(err))
	}
	return url, nil
}

// LatestTick returns the most recent tick for a website, joined with the
// region name. Returns ErrNotFound when no tick exists yet.
func (db *DB) LatestTick(ctx context.Context, websiteID string) (*models.WebsiteTick, error) {
	tick := &models.WebsiteTick{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT t.id, t.website_id, t.region_id, r.name, t.response_time_ms, t.status, t.created_at
		 FROM website_ticks t
		 JOIN regions r ON r.id = t.region_id
		 WHERE t.website_id = $1
		 ORDER BY t.created_at DESC
		 LIMIT 1`,
		websiteID,
	).Scan(&tick.ID, &tick.WebsiteID, &tick.RegionID, &tick.Region,
		&tick.ResponseTimeMs, &tick.Status, &tick.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest tick for website %s: %w", websiteID, classify(err))
	}
	return tick, nil
}

// RecentTicks returns up to limit newest-first ticks for one website.
func (db *DB) RecentTicks(ctx context.Context, websiteID string, limit int) ([]models.WebsiteTick, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.id, t.website_id, t.region_id, r.name, t.response_time_ms, t.status, t.created_at
		 FROM website_ticks t
		 JOIN regions r ON r.id = t.region_id
		 WHERE t.website_id = $1
		 ORDER BY t.created_at DESC
		 LIMIT $2`,
		websiteID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ticks for website %s: %w", websiteID, classify(err))
	}
	return scanTicks(rows)
}

// TickHistory returns one newest-first page of ticks plus the total count
// for pagination.
func (db *DB) TickHistory(ctx context.Context, websiteID string, limit, offset int) ([]models.WebsiteTick, int, error) {
	var total int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM website_ticks WHERE website_id = $1`,
		websiteID,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count ticks for website %s: %w", websiteID, classify(err))
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.id, t.website_id, t.region_id, r.name, t.response_time_ms, t.status, t.created_at
		 FROM website_ticks t
		 JOIN regions r ON r.id = t.region_id
		 WHERE t.website_id = $1
		 ORDER BY t.created_at DESC
		 LIMIT $2 OFFSET $3`,
		websiteID, limit, offset,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to page ticks for website %s: %w", websiteID, classify(err))
	}
	ticks, err := scanTicks(rows)
	if err != nil {
		return nil, 0, err
	}
	return ticks, total, nil
}

// RecentUserTicks returns the newest ticks across a user's active websites,
// for the dashboard activity feed. Deactivated sites stay out of the feed.
func (db *DB) RecentUserTicks(ctx context.Context, userID string, limit int) ([]models.WebsiteTick, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT t.id, t.website_id, t.region_id, r.name, t.response_time_ms, t.status, t.created_at
		 FROM website_ticks t
		 JOIN regions r ON r.id = t.region_id
		 JOIN websites w ON w.id = t.website_id
		 WHERE w.user_id = $1
		   AND w.is_active
		 ORDER BY t.created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent ticks for user %s: %w", userID, classify(err))
	}
	return scanTicks(rows)
}

// PruneTicks deletes ticks older than the cutoff and returns how many rows
// were removed. Used by the producer's retention sweep.
func (db *DB) PruneTicks(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM website_ticks WHERE created_at < $1`,
		olderThan,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune ticks: %w", classify(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read prune row count: %w", err)
	}
	return n, nil
}

func scanTicks(rows *sql.Rows) ([]models.WebsiteTick, error) {
	defer func() { _ = rows.Close() }()

	ticks := []models.WebsiteTick{}
	for rows.Next() {
		var t models.WebsiteTick
		if err := rows.Scan(&t.ID, &t.WebsiteID, &t.RegionID, &t.Region,
			&t.ResponseTimeMs, &t.Status, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tick row: %w", err)
		}
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate ticks: %w", classify(err))
	}
	return ticks, nil
}
