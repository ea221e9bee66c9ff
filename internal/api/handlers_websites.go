// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/beacon-watch/beacon/internal/database"
	"github.com/beacon-watch/beacon/internal/logging"
	"github.com/beacon-watch/beacon/internal/middleware"
	"github.com/beacon-watch/beacon/internal/models"
)

// ListWebsites returns the user's active websites with current status and
// recent-window aggregates.
func (h *Handler) ListWebsites(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	summaries, err := h.store.ListWebsiteSummaries(r.Context(), userID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summaries)
}

// CreateWebsite registers a website and announces it on the fan-out
// subject. The same URL registered twice by one user is a 409.
func (h *Handler) CreateWebsite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var req CreateWebsiteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	site, err := h.store.CreateWebsite(r.Context(), userID, req.URL, isActive)
	if err != nil {
		if database.IsDuplicate(err) {
			respondError(w, http.StatusConflict, "Website is already being monitored", CodeWebsiteExists)
			return
		}
		respondStoreError(w, r, err)
		return
	}

	h.publishLifecycle(r, models.WebsiteEventAdded, site)
	respondJSON(w, http.StatusCreated, site)
}

// GetWebsite returns one website with its most recent ticks. Someone
// else's website is a 404.
func (h *Handler) GetWebsite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	websiteID := chi.URLParam(r, "id")

	site, err := h.store.GetWebsite(r.Context(), userID, websiteID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	ticks, err := h.store.RecentTicks(r.Context(), site.ID, detailTicks)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, models.WebsiteDetail{Website: *site, Ticks: ticks})
}

// UpdateWebsite applies a partial update scoped to the owner.
func (h *Handler) UpdateWebsite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	websiteID := chi.URLParam(r, "id")

	var req UpdateWebsiteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.URL == nil && req.IsActive == nil {
		respondError(w, http.StatusBadRequest, "Nothing to update", CodeBadRequest)
		return
	}

	site, err := h.store.UpdateWebsite(r.Context(), userID, websiteID, req.URL, req.IsActive)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, site)
}

// DeleteWebsite removes a website, cascading its ticks, and announces the
// deletion.
func (h *Handler) DeleteWebsite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	websiteID := chi.URLParam(r, "id")

	site, err := h.store.DeleteWebsite(r.Context(), userID, websiteID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	h.publishLifecycle(r, models.WebsiteEventDeleted, site)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Website deleted"})
}

// History returns one newest-first page of ticks for an owned website.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	websiteID := chi.URLParam(r, "id")

	limit, offset, err := parsePagination(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error(), CodeValidationError)
		return
	}

	// Ownership gate before touching ticks.
	if _, err := h.store.GetWebsite(r.Context(), userID, websiteID); err != nil {
		respondStoreError(w, r, err)
		return
	}

	ticks, total, err := h.store.TickHistory(r.Context(), websiteID, limit, offset)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, models.HistoryPage{
		Data: ticks,
		Pagination: models.Pagination{
			Total:   total,
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(ticks) < total,
		},
	})
}

// Status returns the latest tick for an owned website, 404 NO_STATUS when
// the website has never been probed.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())
	websiteID := chi.URLParam(r, "id")

	if _, err := h.store.GetWebsite(r.Context(), userID, websiteID); err != nil {
		respondStoreError(w, r, err)
		return
	}

	tick, err := h.store.LatestTick(r.Context(), websiteID)
	if err != nil {
		if database.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "No status recorded yet", CodeNoStatus)
			return
		}
		respondStoreError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, tick)
}

// publishLifecycle emits a website added/deleted event. Broker failure is
// logged but never fails the request; the store write already happened.
func (h *Handler) publishLifecycle(r *http.Request, kind string, site *models.Website) {
	ev := &models.WebsiteEvent{
		Kind:      kind,
		WebsiteID: site.ID,
		UserID:    site.UserID,
		URL:       site.URL,
		IsActive:  site.IsActive,
		Timestamp: time.Now().UTC(),
	}
	if err := h.events.PublishWebsiteEvent(ev); err != nil {
		logging.Ctx(r.Context()).Warn().
			Err(err).
			Str("kind", kind).
			Str("website_id", site.ID).
			Msg("lifecycle event publish failed")
	}
}
