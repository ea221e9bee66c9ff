// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package api implements the authenticated read/write HTTP surface:
// account endpoints, website CRUD with lifecycle events, tick history,
// status, and the dashboard aggregate.
package api

import (
	"context"

	"github.com/beacon-watch/beacon/internal/auth"
	"github.com/beacon-watch/beacon/internal/models"
)

// Store is the database surface the handlers depend on.
type Store interface {
	CreateUser(ctx context.Context, username, passwordHash, email string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CountActiveWebsites(ctx context.Context, userID string) (int, error)

	ListWebsiteSummaries(ctx context.Context, userID string) ([]models.WebsiteSummary, error)
	CreateWebsite(ctx context.Context, userID, url string, isActive bool) (*models.Website, error)
	GetWebsite(ctx context.Context, userID, websiteID string) (*models.Website, error)
	UpdateWebsite(ctx context.Context, userID, websiteID string, url *string, isActive *bool) (*models.Website, error)
	DeleteWebsite(ctx context.Context, userID, websiteID string) (*models.Website, error)

	LatestTick(ctx context.Context, websiteID string) (*models.WebsiteTick, error)
	RecentTicks(ctx context.Context, websiteID string, limit int) ([]models.WebsiteTick, error)
	TickHistory(ctx context.Context, websiteID string, limit, offset int) ([]models.WebsiteTick, int, error)
	RecentUserTicks(ctx context.Context, userID string, limit int) ([]models.WebsiteTick, error)

	Ping(ctx context.Context) error
}

// EventPublisher emits website lifecycle events on the fan-out subject.
type EventPublisher interface {
	PublishWebsiteEvent(ev *models.WebsiteEvent) error
	Connected() bool
}

// Handler holds the API's dependencies.
type Handler struct {
	store  Store
	events EventPublisher
	jwt    *auth.JWTManager
}

// NewHandler assembles the API handlers.
func NewHandler(store Store, events EventPublisher, jwt *auth.JWTManager) *Handler {
	return &Handler{store: store, events: events, jwt: jwt}
}

// detailTicks is how many recent ticks the single-website view embeds.
const detailTicks = 10

// activityFeedSize is how many recent ticks the dashboard feed shows.
const activityFeedSize = 10
