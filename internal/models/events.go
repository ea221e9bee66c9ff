// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package models

import (
	"time"
)

// ProbeJob is the payload the producer appends to the probe stream,
// one per active website per cycle.
type ProbeJob struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// TickEvent is published on the fan-out subject after a tick is persisted.
// UserID is denormalized so the gateway can route the event to the owner's
// room without a store lookup.
type TickEvent struct {
	WebsiteID    string    `json:"websiteId"`
	UserID       string    `json:"userId"`
	Status       string    `json:"status"`
	ResponseTime int       `json:"responseTime"`
	CheckedAt    time.Time `json:"checkedAt"`
	Region       string    `json:"region"`
}

// Website lifecycle event kinds, published by the API server when a user
// registers or removes a website.
const (
	WebsiteEventAdded   = "added"
	WebsiteEventDeleted = "deleted"
)

// WebsiteEvent is published on the website lifecycle subject.
type WebsiteEvent struct {
	Kind      string    `json:"kind"`
	WebsiteID string    `json:"websiteId"`
	UserID    string    `json:"userId"`
	URL       string    `json:"url"`
	IsActive  bool      `json:"isActive"`
	Timestamp time.Time `json:"timestamp"`
}
