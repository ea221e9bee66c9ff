// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package gateway

import (
	"time"

	"github.com/beacon-watch/beacon/internal/models"
)

// Event types pushed to connected dashboards.
const (
	EventConnected      = "connected"
	EventWebsiteStatus  = "website:status"
	EventWebsiteAdded   = "website:added"
	EventWebsiteDeleted = "website:deleted"
	EventActivityNew    = "activity:new"
)

// Message is the envelope for every frame sent to a client.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// ConnectedData greets a client right after the upgrade.
type ConnectedData struct {
	Message   string    `json:"message"`
	UserID    string    `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// StatusData carries a single probe result to the owner's dashboard.
type StatusData struct {
	WebsiteID      string    `json:"websiteId"`
	Status         string    `json:"status"`
	ResponseTimeMs int       `json:"responseTimeMs"`
	CheckedAt      time.Time `json:"checkedAt"`
	Region         string    `json:"region"`
	WebsiteURL     string    `json:"websiteUrl,omitempty"`
}

// AddedData announces a newly registered website.
type AddedData struct {
	Website models.Website `json:"website"`
}

// DeletedData announces a removed website.
type DeletedData struct {
	WebsiteID  string `json:"websiteId"`
	WebsiteURL string `json:"websiteUrl"`
}
