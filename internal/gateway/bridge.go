// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/beacon-watch/beacon/internal/broker"
	"github.com/beacon-watch/beacon/internal/config"
	"github.com/beacon-watch/beacon/internal/logging"
	"github.com/beacon-watch/beacon/internal/models"
)

// EventSource delivers raw fan-out payloads for one subject.
type EventSource interface {
	Subscribe(ctx context.Context, subject string) (<-chan []byte, error)
}

// URLStore resolves a website id to its URL for event enrichment.
type URLStore interface {
	WebsiteURL(ctx context.Context, websiteID string) (string, error)
}

// Bridge subscribes to the broker's fan-out subjects and turns tick and
// lifecycle events into room-scoped hub messages. Implements
// suture.Service.
type Bridge struct {
	hub        *Hub
	source     EventSource
	urls       *urlCache
	serializer *broker.Serializer
}

// NewBridge wires the fan-out subscription into the hub.
func NewBridge(hub *Hub, source EventSource, store URLStore, cfg config.WebsocketConfig) *Bridge {
	return &Bridge{
		hub:        hub,
		source:     source,
		urls:       newURLCache(store, cfg.URLCacheTTL),
		serializer: broker.NewSerializer(),
	}
}

// Serve consumes both subjects until ctx ends.
func (b *Bridge) Serve(ctx context.Context) error {
	ticks, err := b.source.Subscribe(ctx, broker.SubjectTicks)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", broker.SubjectTicks, err)
	}
	websites, err := b.source.Subscribe(ctx, broker.SubjectWebsites)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", broker.SubjectWebsites, err)
	}

	logging.Info().Str("component", "gateway").Msg("event bridge started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case data, ok := <-ticks:
			if !ok {
				return ctx.Err()
			}
			b.handleTick(ctx, data)
		case data, ok := <-websites:
			if !ok {
				return ctx.Err()
			}
			b.handleWebsite(data)
		}
	}
}

// handleTick enriches a probe result with its URL and pushes a status
// update plus an activity item to the owner's room.
func (b *Bridge) handleTick(ctx context.Context, data []byte) {
	ev, err := b.serializer.UnmarshalTickEvent(data)
	if err != nil {
		logging.Warn().Err(err).Msg("discarding malformed tick event")
		return
	}

	url := b.urls.lookup(ctx, ev.WebsiteID)
	label := url
	if label == "" {
		label = ev.WebsiteID
	}

	b.hub.Publish(ev.UserID, Message{
		Type: EventWebsiteStatus,
		Data: StatusData{
			WebsiteID:      ev.WebsiteID,
			Status:         ev.Status,
			ResponseTimeMs: ev.ResponseTime,
			CheckedAt:      ev.CheckedAt,
			Region:         ev.Region,
			WebsiteURL:     url,
		},
	})
	b.hub.Publish(ev.UserID, Message{
		Type: EventActivityNew,
		Data: models.ActivityItem{
			ID:        uuid.NewString(),
			Type:      models.ActivityStatusChange,
			WebsiteID: ev.WebsiteID,
			URL:       url,
			Message:   models.StatusChangeMessage(label, ev.Status),
			Status:    ev.Status,
			Timestamp: ev.CheckedAt,
		},
	})
}

// handleWebsite forwards an added or deleted lifecycle event. Deletions
// also invalidate the URL cache entry so a recreated site does not serve
// a stale URL.
func (b *Bridge) handleWebsite(data []byte) {
	ev, err := b.serializer.UnmarshalWebsiteEvent(data)
	if err != nil {
		logging.Warn().Err(err).Msg("discarding malformed website event")
		return
	}

	switch ev.Kind {
	case models.WebsiteEventAdded:
		b.urls.put(ev.WebsiteID, ev.URL)
		b.hub.Publish(ev.UserID, Message{
			Type: EventWebsiteAdded,
			Data: AddedData{
				Website: models.Website{
					ID:        ev.WebsiteID,
					URL:       ev.URL,
					TimeAdded: ev.Timestamp,
					UserID:    ev.UserID,
					IsActive:  ev.IsActive,
				},
			},
		})
		b.publishActivity(ev, models.ActivityWebsiteAdded, "Website "+ev.URL+" added")
	case models.WebsiteEventDeleted:
		b.urls.invalidate(ev.WebsiteID)
		b.hub.Publish(ev.UserID, Message{
			Type: EventWebsiteDeleted,
			Data: DeletedData{
				WebsiteID:  ev.WebsiteID,
				WebsiteURL: ev.URL,
			},
		})
		b.publishActivity(ev, models.ActivityWebsiteRemoved, "Website "+ev.URL+" removed")
	default:
		logging.Warn().Str("kind", ev.Kind).Msg("unknown website event kind")
	}
}

func (b *Bridge) publishActivity(ev *models.WebsiteEvent, activityType, message string) {
	b.hub.Publish(ev.UserID, Message{
		Type: EventActivityNew,
		Data: models.ActivityItem{
			ID:        uuid.NewString(),
			Type:      activityType,
			WebsiteID: ev.WebsiteID,
			URL:       ev.URL,
			Message:   message,
			Timestamp: ev.Timestamp,
		},
	})
}

// urlCache memoizes website URLs with a TTL so the bridge does not hit
// the store for every tick.
type urlCache struct {
	store URLStore
	ttl   time.Duration
	mu    sync.Mutex
	items map[string]urlEntry
}

type urlEntry struct {
	url     string
	expires time.Time
}

func newURLCache(store URLStore, ttl time.Duration) *urlCache {
	return &urlCache{
		store: store,
		ttl:   ttl,
		items: make(map[string]urlEntry),
	}
}

// lookup returns the cached URL, fetching from the store on a miss.
// Returns "" when the website no longer exists; the event still goes out
// without enrichment.
func (c *urlCache) lookup(ctx context.Context, websiteID string) string {
	c.mu.Lock()
	entry, ok := c.items[websiteID]
	c.mu.Unlock()
	if ok && time.Now().Before(entry.expires) {
		return entry.url
	}

	url, err := c.store.WebsiteURL(ctx, websiteID)
	if err != nil {
		logging.Debug().Err(err).Str("website_id", websiteID).Msg("url lookup failed")
		return ""
	}
	c.put(websiteID, url)
	return url
}

func (c *urlCache) put(websiteID, url string) {
	c.mu.Lock()
	c.items[websiteID] = urlEntry{url: url, expires: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *urlCache) invalidate(websiteID string) {
	c.mu.Lock()
	delete(c.items, websiteID)
	c.mu.Unlock()
}
