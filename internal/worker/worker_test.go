// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/beacon-watch/beacon/internal/config"
	"github.com/beacon-watch/beacon/internal/database"
	"github.com/beacon-watch/beacon/internal/logging"
	"github.com/beacon-watch/beacon/internal/models"
	"github.com/beacon-watch/beacon/internal/probe"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

type fakeStore struct {
	mu        sync.Mutex
	ticks     []models.WebsiteTick
	insertErr error
	owners    map[string]string
}

func (f *fakeStore) InsertTick(_ context.Context, websiteID, regionID string, responseTimeMs int, status string) (*models.WebsiteTick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	tick := models.WebsiteTick{
		ID:             fmt.Sprintf("t-%d", len(f.ticks)+1),
		WebsiteID:      websiteID,
		RegionID:       regionID,
		ResponseTimeMs: responseTimeMs,
		Status:         status,
		CreatedAt:      time.Now(),
	}
	f.ticks = append(f.ticks, tick)
	return &tick, nil
}

func (f *fakeStore) WebsiteOwner(_ context.Context, websiteID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if owner, ok := f.owners[websiteID]; ok {
		return owner, nil
	}
	return "", database.ErrNotFound
}

type fakeFanout struct {
	mu        sync.Mutex
	events    []models.TickEvent
	err       error
	connected bool
}

func (f *fakeFanout) PublishTick(ev *models.TickEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, *ev)
	return nil
}

func (f *fakeFanout) Connected() bool { return f.connected }

type fakeProber struct {
	result probe.Result
}

func (f *fakeProber) Check(context.Context, string) probe.Result {
	return f.result
}

func testWorker(store *fakeStore, fanout *fakeFanout, prober Prober) *Worker {
	cfg := config.WorkerConfig{Region: "us-east", ID: "w1", BatchSize: 10}
	region := &models.Region{ID: "r-1", Name: "us-east"}
	return New(cfg, region, store, nil, prober, fanout)
}

func jobMessage(t *testing.T, id, url string) *message.Message {
	t.Helper()
	payload := fmt.Sprintf(`{"id":%q,"url":%q}`, id, url)
	return message.NewMessage(watermill.NewUUID(), []byte(payload))
}

func TestProcessJobSuccess(t *testing.T) {
	t.Parallel()

	store := &fakeStore{owners: map[string]string{"w-1": "u-1"}}
	fanout := &fakeFanout{connected: true}
	w := testWorker(store, fanout, &fakeProber{result: probe.Result{
		Status:       models.StatusUp,
		ResponseTime: 120 * time.Millisecond,
		StatusCode:   200,
	}})

	ack, err := w.processJob(context.Background(), jobMessage(t, "w-1", "https://example.com"))
	if err != nil {
		t.Fatalf("processJob: %v", err)
	}
	if !ack {
		t.Error("successful job should be acked")
	}

	if len(store.ticks) != 1 {
		t.Fatalf("expected 1 tick, got %d", len(store.ticks))
	}
	tick := store.ticks[0]
	if tick.Status != models.StatusUp || tick.ResponseTimeMs != 120 {
		t.Errorf("unexpected tick: %+v", tick)
	}
	if tick.RegionID != "r-1" {
		t.Errorf("tick should carry the worker's region id, got %s", tick.RegionID)
	}

	if len(fanout.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(fanout.events))
	}
	ev := fanout.events[0]
	if ev.UserID != "u-1" || ev.WebsiteID != "w-1" || ev.Region != "us-east" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestProcessJobObsoleteWebsiteIsAcked(t *testing.T) {
	t.Parallel()

	store := &fakeStore{insertErr: database.ErrForeignKey}
	w := testWorker(store, &fakeFanout{connected: true}, &fakeProber{result: probe.Result{Status: models.StatusUp}})

	ack, err := w.processJob(context.Background(), jobMessage(t, "w-gone", "https://example.com"))
	if err != nil {
		t.Fatalf("FK violation must not be an error: %v", err)
	}
	if !ack {
		t.Error("job for deleted website must be acked away")
	}
}

func TestProcessJobTransientStoreFailureNotAcked(t *testing.T) {
	t.Parallel()

	store := &fakeStore{insertErr: database.ErrUnavailable}
	w := testWorker(store, &fakeFanout{connected: true}, &fakeProber{result: probe.Result{Status: models.StatusUp}})

	ack, err := w.processJob(context.Background(), jobMessage(t, "w-1", "https://example.com"))
	if err == nil {
		t.Fatal("expected error for unavailable store")
	}
	if ack {
		t.Error("transient failure must leave the message for redelivery")
	}
}

func TestProcessJobMalformedPayload(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	w := testWorker(store, &fakeFanout{connected: true}, &fakeProber{result: probe.Result{Status: models.StatusUp}})

	msg := message.NewMessage(watermill.NewUUID(), []byte(`{broken`))
	ack, err := w.processJob(context.Background(), msg)
	if err != nil {
		t.Fatalf("malformed payload must not fail the batch: %v", err)
	}
	if ack {
		t.Error("malformed payload must not be acked")
	}
	if len(store.ticks) != 0 {
		t.Error("no tick should be written for a malformed job")
	}
}

func TestPublishFailureDoesNotFailJob(t *testing.T) {
	t.Parallel()

	store := &fakeStore{owners: map[string]string{"w-1": "u-1"}}
	fanout := &fakeFanout{err: errors.New("broker down"), connected: false}
	w := testWorker(store, fanout, &fakeProber{result: probe.Result{Status: models.StatusDown, ResponseTime: 10 * time.Second}})

	ack, err := w.processJob(context.Background(), jobMessage(t, "w-1", "https://example.com"))
	if err != nil {
		t.Fatalf("publish failure must not fail the job: %v", err)
	}
	if !ack {
		t.Error("job with persisted tick must be acked even when publish fails")
	}
	if len(store.ticks) != 1 {
		t.Error("tick must be persisted before publish")
	}
}

func TestCollectBatchRespectsBatchSize(t *testing.T) {
	t.Parallel()

	w := testWorker(&fakeStore{}, &fakeFanout{}, &fakeProber{})
	w.cfg.BatchSize = 3

	messages := make(chan *message.Message, 10)
	for i := 0; i < 5; i++ {
		messages <- jobMessage(t, fmt.Sprintf("w-%d", i), "https://example.com")
	}

	batch, open := w.collectBatch(context.Background(), messages)
	if !open {
		t.Fatal("channel should be open")
	}
	if len(batch) != 3 {
		t.Errorf("expected batch of 3, got %d", len(batch))
	}
}

func TestCollectBatchClosedChannel(t *testing.T) {
	t.Parallel()

	w := testWorker(&fakeStore{}, &fakeFanout{}, &fakeProber{})
	messages := make(chan *message.Message)
	close(messages)

	_, open := w.collectBatch(context.Background(), messages)
	if open {
		t.Error("closed channel should end the loop")
	}
}

func TestBackoffDelays(t *testing.T) {
	t.Parallel()

	p := defaultBackoffPolicy()

	tests := []struct {
		consecutive int
		kind        errorKind
		want        time.Duration
	}{
		{1, errTransient, 5 * time.Second},
		{2, errTransient, 10 * time.Second},
		{3, errTransient, 20 * time.Second},
		{4, errTransient, 30 * time.Second},
		{10, errTransient, 30 * time.Second},
		{4, errBroker, 40 * time.Second},
		{5, errBroker, 60 * time.Second},
		{20, errBroker, 60 * time.Second},
		{7, errStore, 300 * time.Second},
		{100, errStore, 300 * time.Second},
		{0, errTransient, 5 * time.Second},
	}

	for _, tt := range tests {
		if got := p.delay(tt.consecutive, tt.kind); got != tt.want {
			t.Errorf("delay(%d, %d) = %s, want %s", tt.consecutive, tt.kind, got, tt.want)
		}
	}

	if p.critical(9) {
		t.Error("9 consecutive errors should not be critical")
	}
	if !p.critical(10) {
		t.Error("10 consecutive errors should be critical")
	}
}

func TestErrorKindOf(t *testing.T) {
	t.Parallel()

	if got := errorKindOf(fmt.Errorf("insert: %w", database.ErrUnavailable)); got != errStore {
		t.Errorf("store error misclassified: %d", got)
	}
	if got := errorKindOf(errors.New("subscribe to probe jobs: connection refused")); got != errBroker {
		t.Errorf("broker error misclassified: %d", got)
	}
	if got := errorKindOf(errors.New("something else")); got != errTransient {
		t.Errorf("unknown error misclassified: %d", got)
	}
}
