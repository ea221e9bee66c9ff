// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/beacon-watch/beacon/internal/broker"
	"github.com/beacon-watch/beacon/internal/config"
	"github.com/beacon-watch/beacon/internal/database"
	"github.com/beacon-watch/beacon/internal/models"
)

type fakeSource struct {
	ticks    chan []byte
	websites chan []byte
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		ticks:    make(chan []byte, 16),
		websites: make(chan []byte, 16),
	}
}

func (f *fakeSource) Subscribe(_ context.Context, subject string) (<-chan []byte, error) {
	switch subject {
	case broker.SubjectTicks:
		return f.ticks, nil
	case broker.SubjectWebsites:
		return f.websites, nil
	}
	return nil, errors.New("unknown subject")
}

type fakeURLStore struct {
	mu      sync.Mutex
	urls    map[string]string
	lookups int
}

func (f *fakeURLStore) WebsiteURL(_ context.Context, websiteID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if url, ok := f.urls[websiteID]; ok {
		return url, nil
	}
	return "", database.ErrNotFound
}

func (f *fakeURLStore) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

func wsConfig() config.WebsocketConfig {
	return config.WebsocketConfig{
		PingInterval: 25 * time.Second,
		PongWait:     60 * time.Second,
		WriteWait:    10 * time.Second,
		SendBuffer:   64,
		URLCacheTTL:  5 * time.Minute,
	}
}

func startBridge(t *testing.T, hub *Hub, source EventSource, store URLStore) {
	t.Helper()
	bridge := NewBridge(hub, source, store, wsConfig())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bridge.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func marshalTick(t *testing.T, ev *models.TickEvent) []byte {
	t.Helper()
	data, err := broker.NewSerializer().MarshalTickEvent(ev)
	if err != nil {
		t.Fatalf("marshal tick event: %v", err)
	}
	return data
}

func marshalWebsite(t *testing.T, ev *models.WebsiteEvent) []byte {
	t.Helper()
	data, err := broker.NewSerializer().MarshalWebsiteEvent(ev)
	if err != nil {
		t.Fatalf("marshal website event: %v", err)
	}
	return data
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case msg := <-c.send:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
		return Message{}
	}
}

func TestTickEventReachesOwnerRoom(t *testing.T) {
	t.Parallel()

	hub, _ := startHub(t)
	source := newFakeSource()
	store := &fakeURLStore{urls: map[string]string{"w-1": "https://example.com"}}
	startBridge(t, hub, source, store)

	owner := testClient("u-1", 8)
	hub.Register <- owner
	waitFor(t, func() bool { return hub.RoomSize("u-1") == 1 }, "owner registered")

	checkedAt := time.Now().UTC().Truncate(time.Second)
	source.ticks <- marshalTick(t, &models.TickEvent{
		WebsiteID:    "w-1",
		UserID:       "u-1",
		Status:       models.StatusDown,
		ResponseTime: 4200,
		CheckedAt:    checkedAt,
		Region:       "eu-west",
	})

	status := recv(t, owner)
	if status.Type != EventWebsiteStatus {
		t.Fatalf("expected %s first, got %s", EventWebsiteStatus, status.Type)
	}
	data, ok := status.Data.(StatusData)
	if !ok {
		t.Fatalf("unexpected payload type %T", status.Data)
	}
	if data.WebsiteURL != "https://example.com" || data.Status != models.StatusDown || data.Region != "eu-west" {
		t.Errorf("unexpected status payload: %+v", data)
	}

	activity := recv(t, owner)
	if activity.Type != EventActivityNew {
		t.Fatalf("expected %s second, got %s", EventActivityNew, activity.Type)
	}
	act, ok := activity.Data.(models.ActivityItem)
	if !ok {
		t.Fatalf("unexpected payload type %T", activity.Data)
	}
	if act.Type != models.ActivityStatusChange || act.WebsiteID != "w-1" {
		t.Errorf("unexpected activity payload: %+v", act)
	}
	if act.Message != "Website https://example.com is down" {
		t.Errorf("unexpected activity message: %q", act.Message)
	}
	if act.ID == "" {
		t.Error("activity item should carry a generated id")
	}
}

func TestURLCacheAvoidsRepeatedLookups(t *testing.T) {
	t.Parallel()

	hub, _ := startHub(t)
	source := newFakeSource()
	store := &fakeURLStore{urls: map[string]string{"w-1": "https://example.com"}}
	startBridge(t, hub, source, store)

	owner := testClient("u-1", 16)
	hub.Register <- owner
	waitFor(t, func() bool { return hub.RoomSize("u-1") == 1 }, "owner registered")

	for i := 0; i < 3; i++ {
		source.ticks <- marshalTick(t, &models.TickEvent{
			WebsiteID: "w-1",
			UserID:    "u-1",
			Status:    models.StatusUp,
			CheckedAt: time.Now(),
			Region:    "us-east",
		})
	}
	for i := 0; i < 6; i++ {
		recv(t, owner)
	}

	if n := store.lookupCount(); n != 1 {
		t.Errorf("expected a single store lookup, got %d", n)
	}
}

func TestWebsiteLifecycleEvents(t *testing.T) {
	t.Parallel()

	hub, _ := startHub(t)
	source := newFakeSource()
	store := &fakeURLStore{}
	startBridge(t, hub, source, store)

	owner := testClient("u-1", 8)
	hub.Register <- owner
	waitFor(t, func() bool { return hub.RoomSize("u-1") == 1 }, "owner registered")

	source.websites <- marshalWebsite(t, &models.WebsiteEvent{
		Kind:      models.WebsiteEventAdded,
		WebsiteID: "w-9",
		UserID:    "u-1",
		URL:       "https://new.example.com",
		IsActive:  true,
		Timestamp: time.Now().UTC(),
	})

	added := recv(t, owner)
	if added.Type != EventWebsiteAdded {
		t.Fatalf("expected %s, got %s", EventWebsiteAdded, added.Type)
	}
	life, ok := added.Data.(AddedData)
	if !ok || life.Website.URL != "https://new.example.com" || !life.Website.IsActive {
		t.Errorf("unexpected lifecycle payload: %+v", added.Data)
	}
	activity := recv(t, owner)
	if activity.Type != EventActivityNew {
		t.Fatal("lifecycle event should be followed by an activity item")
	}
	if act, ok := activity.Data.(models.ActivityItem); !ok || act.Type != models.ActivityWebsiteAdded {
		t.Errorf("unexpected activity payload: %+v", activity.Data)
	}

	source.websites <- marshalWebsite(t, &models.WebsiteEvent{
		Kind:      models.WebsiteEventDeleted,
		WebsiteID: "w-9",
		UserID:    "u-1",
		URL:       "https://new.example.com",
		Timestamp: time.Now().UTC(),
	})

	if recv(t, owner).Type != EventWebsiteDeleted {
		t.Error("expected deletion event")
	}
}

func TestPausedWebsiteAnnouncedAsInactive(t *testing.T) {
	t.Parallel()

	hub, _ := startHub(t)
	source := newFakeSource()
	startBridge(t, hub, source, &fakeURLStore{})

	owner := testClient("u-1", 8)
	hub.Register <- owner
	waitFor(t, func() bool { return hub.RoomSize("u-1") == 1 }, "owner registered")

	source.websites <- marshalWebsite(t, &models.WebsiteEvent{
		Kind:      models.WebsiteEventAdded,
		WebsiteID: "w-paused",
		UserID:    "u-1",
		URL:       "https://paused.example.com",
		IsActive:  false,
		Timestamp: time.Now().UTC(),
	})

	added := recv(t, owner)
	data, ok := added.Data.(AddedData)
	if !ok {
		t.Fatalf("unexpected payload type %T", added.Data)
	}
	if data.Website.IsActive {
		t.Error("website registered as paused must not be announced as active")
	}
}

func TestMalformedEventsAreDiscarded(t *testing.T) {
	t.Parallel()

	hub, _ := startHub(t)
	source := newFakeSource()
	startBridge(t, hub, source, &fakeURLStore{})

	owner := testClient("u-1", 8)
	hub.Register <- owner
	waitFor(t, func() bool { return hub.RoomSize("u-1") == 1 }, "owner registered")

	source.ticks <- []byte(`{broken`)
	source.websites <- []byte(`{"kind":"unknown"}`)

	select {
	case msg := <-owner.send:
		t.Errorf("malformed event should be dropped, got %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMissingWebsiteStillDeliversTick(t *testing.T) {
	t.Parallel()

	hub, _ := startHub(t)
	source := newFakeSource()
	startBridge(t, hub, source, &fakeURLStore{})

	owner := testClient("u-1", 8)
	hub.Register <- owner
	waitFor(t, func() bool { return hub.RoomSize("u-1") == 1 }, "owner registered")

	source.ticks <- marshalTick(t, &models.TickEvent{
		WebsiteID: "w-gone",
		UserID:    "u-1",
		Status:    models.StatusUp,
		CheckedAt: time.Now(),
		Region:    "us-east",
	})

	status := recv(t, owner)
	data, ok := status.Data.(StatusData)
	if !ok {
		t.Fatalf("unexpected payload type %T", status.Data)
	}
	if data.WebsiteURL != "" {
		t.Errorf("deleted website should yield an empty url, got %q", data.WebsiteURL)
	}
}
