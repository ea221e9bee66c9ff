// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package database

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/beacon-watch/beacon/internal/models"
)

// aggregateWindow is how many recent ticks feed uptime and response-time
// aggregates.
const aggregateWindow = 100

// ListActiveWebsites returns id and URL of every active website across all
// users. Used by the producer to enumerate probe jobs.
func (db *DB) ListActiveWebsites(ctx context.Context) ([]models.ProbeJob, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, url FROM websites WHERE is_active`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active websites: %w", classify(err))
	}
	defer func() { _ = rows.Close() }()

	var jobs []models.ProbeJob
	for rows.Next() {
		var job models.ProbeJob
		if err := rows.Scan(&job.ID, &job.URL); err != nil {
			return nil, fmt.Errorf("failed to scan website row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate websites: %w", classify(err))
	}
	return jobs, nil
}

// CreateWebsite registers a website for a user. Returns ErrDuplicate when
// the user already monitors the URL.
func (db *DB) CreateWebsite(ctx context.Context, userID, url string, isActive bool) (*models.Website, error) {
	site := &models.Website{
		ID:       uuid.New().String(),
		URL:      url,
		UserID:   userID,
		IsActive: isActive,
	}

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO websites (id, url, user_id, is_active)
		 VALUES ($1, $2, $3, $4)
		 RETURNING time_added`,
		site.ID, site.URL, site.UserID, site.IsActive,
	).Scan(&site.TimeAdded)
	if err != nil {
		return nil, fmt.Errorf("failed to create website: %w", classify(err))
	}
	return site, nil
}

// GetWebsite fetches one website scoped to its owner. A website owned by a
// different user yields ErrNotFound, not a permission error.
func (db *DB) GetWebsite(ctx context.Context, userID, websiteID string) (*models.Website, error) {
	site := &models.Website{}
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, url, time_added, user_id, is_active
		 FROM websites WHERE id = $1 AND user_id = $2`,
		websiteID, userID,
	).Scan(&site.ID, &site.URL, &site.TimeAdded, &site.UserID, &site.IsActive)
	if err != nil {
		return nil, fmt.Errorf("failed to get website %s: %w", websiteID, classify(err))
	}
	return site, nil
}

// UpdateWebsite applies a partial update scoped to the owner. Nil fields
// are left unchanged.
func (db *DB) UpdateWebsite(ctx context.Context, userID, websiteID string, url *string, isActive *bool) (*models.Website, error) {
	site := &models.Website{}
	err := db.conn.QueryRowContext(ctx,
		`UPDATE websites
		 SET url = COALESCE($3, url), is_active = COALESCE($4, is_active)
		 WHERE id = $1 AND user_id = $2
		 RETURNING id, url, time_added, user_id, is_active`,
		websiteID, userID, url, isActive,
	).Scan(&site.ID, &site.URL, &site.TimeAdded, &site.UserID, &site.IsActive)
	if err != nil {
		return nil, fmt.Errorf("failed to update website %s: %w", websiteID, classify(err))
	}
	return site, nil
}

// DeleteWebsite removes a website and, via FK cascade, all its ticks.
// Scoped to the owner; deleting someone else's website yields ErrNotFound.
func (db *DB) DeleteWebsite(ctx context.Context, userID, websiteID string) (*models.Website, error) {
	site := &models.Website{}
	err := db.conn.QueryRowContext(ctx,
		`DELETE FROM websites WHERE id = $1 AND user_id = $2
		 RETURNING id, url, time_added, user_id, is_active`,
		websiteID, userID,
	).Scan(&site.ID, &site.URL, &site.TimeAdded, &site.UserID, &site.IsActive)
	if err != nil {
		return nil, fmt.Errorf("failed to delete website %s: %w", websiteID, classify(err))
	}
	return site, nil
}

// ListWebsiteSummaries returns the user's active websites, each enriched
// with its latest tick and aggregates over the most recent observations.
func (db *DB) ListWebsiteSummaries(ctx context.Context, userID string) ([]models.WebsiteSummary, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, url, time_added, user_id, is_active
		 FROM websites
		 WHERE user_id = $1 AND is_active
		 ORDER BY time_added DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list websites for user %s: %w", userID, classify(err))
	}
	defer func() { _ = rows.Close() }()

	summaries := []models.WebsiteSummary{}
	for rows.Next() {
		var site models.Website
		if err := rows.Scan(&site.ID, &site.URL, &site.TimeAdded, &site.UserID, &site.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan website row: %w", err)
		}
		summaries = append(summaries, models.WebsiteSummary{Website: site})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate websites: %w", classify(err))
	}

	for i := range summaries {
		if err := db.fillSummary(ctx, &summaries[i]); err != nil {
			return nil, err
		}
	}
	return summaries, nil
}

// fillSummary populates current status and recent-window aggregates for one
// website. No ticks yet means uptime 100 and average 0.
func (db *DB) fillSummary(ctx context.Context, s *models.WebsiteSummary) error {
	latest, err := db.LatestTick(ctx, s.ID)
	if err == nil {
		s.CurrentStatus = &models.WebsiteStatus{
			Status:         latest.Status,
			ResponseTimeMs: latest.ResponseTimeMs,
			Region:         latest.Region,
			CheckedAt:      latest.CreatedAt,
		}
	} else if !IsNotFound(err) {
		return err
	}

	var total, up, avgMs int
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'UP'),
		        COALESCE(ROUND(AVG(response_time_ms)), 0)
		 FROM (
		   SELECT status, response_time_ms
		   FROM website_ticks
		   WHERE website_id = $1
		   ORDER BY created_at DESC
		   LIMIT $2
		 ) recent`,
		s.ID, aggregateWindow,
	).Scan(&total, &up, &avgMs)
	if err != nil {
		return fmt.Errorf("failed to aggregate ticks for website %s: %w", s.ID, classify(err))
	}

	if total == 0 {
		s.Uptime = 100.0
		s.AvgResponseTime = 0
		return nil
	}
	s.Uptime = math.Round(float64(up)/float64(total)*10000) / 100
	s.AvgResponseTime = avgMs
	return nil
}
