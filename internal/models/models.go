// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package models

import (
	"time"
)

// Tick status values. A probe observation is either UP or DOWN; there is no
// intermediate state.
const (
	StatusUp   = "UP"
	StatusDown = "DOWN"
)

// ValidStatus reports whether s is a recognized tick status.
func ValidStatus(s string) bool {
	return s == StatusUp || s == StatusDown
}

// User is an account that owns monitored websites.
// The password field holds a bcrypt hash and is never serialized.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Region is a geographic vantage point that workers probe from.
// Rows are created lazily the first time a worker starts in a region.
type Region struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Website is a monitored endpoint registered by a user.
type Website struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	TimeAdded time.Time `json:"timeAdded"`
	UserID    string    `json:"userId"`
	IsActive  bool      `json:"isActive"`
}

// WebsiteTick is a single probe observation of a website from a region.
type WebsiteTick struct {
	ID             string    `json:"id"`
	WebsiteID      string    `json:"websiteId"`
	RegionID       string    `json:"regionId"`
	Region         string    `json:"region,omitempty"`
	ResponseTimeMs int       `json:"responseTimeMs"`
	Status         string    `json:"status"`
	CreatedAt      time.Time `json:"createdAt"`
}

// WebsiteStatus is the latest observation for a website, embedded in
// website listings.
type WebsiteStatus struct {
	Status         string    `json:"status"`
	ResponseTimeMs int       `json:"responseTimeMs"`
	Region         string    `json:"region"`
	CheckedAt      time.Time `json:"checkedAt"`
}

// WebsiteSummary is a website enriched with its current status and
// aggregates over recent ticks, as returned by the website list endpoint.
//
// Uptime is the percentage of UP ticks among the last 100 observations,
// 100.0 when no ticks exist yet. AvgResponseTime is the rounded mean
// response time over the same window, 0 when no ticks exist.
type WebsiteSummary struct {
	Website
	CurrentStatus   *WebsiteStatus `json:"currentStatus"`
	Uptime          float64        `json:"uptime"`
	AvgResponseTime int            `json:"avgResponseTime"`
}

// WebsiteDetail is a single website with its most recent ticks embedded.
type WebsiteDetail struct {
	Website
	Ticks []WebsiteTick `json:"ticks"`
}

// Pagination describes a page of a larger result set.
type Pagination struct {
	Total   int  `json:"total"`
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// HistoryPage is a newest-first page of ticks for one website.
type HistoryPage struct {
	Data       []WebsiteTick `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// DashboardStats are the aggregate figures on the dashboard.
type DashboardStats struct {
	TotalWebsites   int     `json:"totalWebsites"`
	Uptime          float64 `json:"uptime"`
	AvgResponseTime int     `json:"avgResponseTime"`
	Incidents       int     `json:"incidents"`
}

// ActivityItem is one entry in an activity feed, shared by the dashboard
// endpoint and the realtime activity:new event.
type ActivityItem struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	WebsiteID string    `json:"websiteId"`
	URL       string    `json:"websiteUrl"`
	Message   string    `json:"message"`
	Status    string    `json:"status,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Activity types.
const (
	ActivityStatusChange   = "STATUS_CHANGE"
	ActivityWebsiteAdded   = "WEBSITE_ADDED"
	ActivityWebsiteRemoved = "WEBSITE_REMOVED"
)

// StatusChangeMessage renders the human-readable line for a STATUS_CHANGE
// activity item. label is the website URL, or its id when the URL is not
// known.
func StatusChangeMessage(label, status string) string {
	if status == StatusUp {
		return "Website " + label + " is up"
	}
	return "Website " + label + " is down"
}

// Dashboard is the response of the dashboard endpoint.
type Dashboard struct {
	Stats          DashboardStats   `json:"stats"`
	Websites       []WebsiteSummary `json:"websites"`
	RecentActivity []ActivityItem   `json:"recentActivity"`
}

// Profile is the authenticated user's account view.
type Profile struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	WebsiteCount int       `json:"websiteCount"`
}

// APIError is the error envelope every non-2xx JSON response carries.
type APIError struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}
