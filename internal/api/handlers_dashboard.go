// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package api

import (
	"math"
	"net/http"

	"github.com/beacon-watch/beacon/internal/middleware"
	"github.com/beacon-watch/beacon/internal/models"
)

// Dashboard aggregates the user's monitoring state: overall stats, the
// website list, and a recent activity feed.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserID(ctx)

	summaries, err := h.store.ListWebsiteSummaries(ctx, userID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	recent, err := h.store.RecentUserTicks(ctx, userID, activityFeedSize)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, models.Dashboard{
		Stats:          dashboardStats(summaries),
		Websites:       summaries,
		RecentActivity: activityFeed(summaries, recent),
	})
}

// dashboardStats derives the aggregates from each site's current status:
// uptime is the share of sites whose latest tick is UP, avgResponseTime the
// rounded mean of current latencies, incidents the count of currently-DOWN
// sites. Never-probed sites count against uptime but stay out of the
// latency mean. No websites at all means a clean slate: 100% uptime.
func dashboardStats(summaries []models.WebsiteSummary) models.DashboardStats {
	stats := models.DashboardStats{
		TotalWebsites: len(summaries),
		Uptime:        100.0,
	}
	if len(summaries) == 0 {
		return stats
	}

	var upCount, withStatus, responseSum int
	for _, s := range summaries {
		if s.CurrentStatus == nil {
			continue
		}
		withStatus++
		responseSum += s.CurrentStatus.ResponseTimeMs
		if s.CurrentStatus.Status == models.StatusUp {
			upCount++
		} else {
			stats.Incidents++
		}
	}
	stats.Uptime = math.Round(float64(upCount) / float64(len(summaries)) * 100)
	if withStatus > 0 {
		stats.AvgResponseTime = int(math.Round(float64(responseSum) / float64(withStatus)))
	}
	return stats
}

// activityFeed turns recent ticks into feed items, enriched with website
// URLs from the already-fetched summaries.
func activityFeed(summaries []models.WebsiteSummary, ticks []models.WebsiteTick) []models.ActivityItem {
	urls := make(map[string]string, len(summaries))
	for _, s := range summaries {
		urls[s.ID] = s.URL
	}

	items := make([]models.ActivityItem, 0, len(ticks))
	for _, t := range ticks {
		url := urls[t.WebsiteID]
		label := url
		if label == "" {
			label = t.WebsiteID
		}
		items = append(items, models.ActivityItem{
			ID:        t.ID,
			Type:      models.ActivityStatusChange,
			WebsiteID: t.WebsiteID,
			URL:       url,
			Message:   models.StatusChangeMessage(label, t.Status),
			Status:    t.Status,
			Timestamp: t.CreatedAt,
		})
	}
	return items
}

// Health reports liveness of the server's dependencies: the store must
// answer a ping and the broker connection must be up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	storeOK := h.store.Ping(r.Context()) == nil
	brokerOK := h.events.Connected()

	body := map[string]any{
		"status": "healthy",
		"store":  storeOK,
		"broker": brokerOK,
	}
	if !storeOK || !brokerOK {
		body["status"] = "unhealthy"
		respondJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	respondJSON(w, http.StatusOK, body)
}
