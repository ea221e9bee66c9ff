// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package worker runs a regional probe consumer: it claims probe jobs from
// the region's durable stream consumer, checks the targets over HTTP,
// persists the resulting ticks, and publishes tick events for the realtime
// gateway.
package worker

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/beacon-watch/beacon/internal/broker"
	"github.com/beacon-watch/beacon/internal/config"
	"github.com/beacon-watch/beacon/internal/database"
	"github.com/beacon-watch/beacon/internal/logging"
	"github.com/beacon-watch/beacon/internal/metrics"
	"github.com/beacon-watch/beacon/internal/models"
	"github.com/beacon-watch/beacon/internal/probe"
)

// batchWindow bounds how long the worker waits to fill a batch before
// processing what it has.
const batchWindow = time.Second

// Store is the subset of the database layer the worker needs.
type Store interface {
	InsertTick(ctx context.Context, websiteID, regionID string, responseTimeMs int, status string) (*models.WebsiteTick, error)
	WebsiteOwner(ctx context.Context, websiteID string) (string, error)
}

// TickPublisher emits tick events after persistence.
type TickPublisher interface {
	PublishTick(ev *models.TickEvent) error
	Connected() bool
}

// JobSource delivers probe-job messages for this region.
type JobSource interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
	Close() error
}

// Prober checks a single URL.
type Prober interface {
	Check(ctx context.Context, url string) probe.Result
}

// Worker consumes and executes probe jobs for one region.
type Worker struct {
	cfg        config.WorkerConfig
	store      Store
	jobs       JobSource
	prober     Prober
	fanout     TickPublisher
	region     *models.Region
	serializer *broker.Serializer
	backoff    backoffPolicy
	state      *state
	logger     zerolog.Logger
}

// New assembles a worker. The region row must already be resolved via
// database.GetOrCreateRegion so every tick carries a valid region id.
func New(cfg config.WorkerConfig, region *models.Region, store Store, jobs JobSource, prober Prober, fanout TickPublisher) *Worker {
	return &Worker{
		cfg:        cfg,
		store:      store,
		jobs:       jobs,
		prober:     prober,
		fanout:     fanout,
		region:     region,
		serializer: broker.NewSerializer(),
		backoff:    defaultBackoffPolicy(),
		state:      newState(),
		logger: logging.With().
			Str("component", "worker").
			Str("region", region.Name).
			Str("worker_id", cfg.ID).
			Logger(),
	}
}

// State exposes the worker's runtime counters for the health endpoint.
func (w *Worker) State() *state {
	return w.state
}

// Serve runs the consume loop until ctx is canceled. Implements
// suture.Service.
func (w *Worker) Serve(ctx context.Context) error {
	messages, err := w.jobs.Subscribe(ctx)
	if err != nil {
		w.state.recordError()
		return fmt.Errorf("subscribe to probe jobs: %w", err)
	}

	w.logger.Info().Int("batch_size", w.cfg.BatchSize).Msg("worker started")

	for {
		batch, open := w.collectBatch(ctx, messages)
		if !open {
			return ctx.Err()
		}
		if len(batch) == 0 {
			continue
		}

		if err := w.processBatch(ctx, batch); err != nil {
			consecutive := w.state.recordError()
			kind := errorKindOf(err)
			delay := w.backoff.delay(consecutive, kind)

			evt := w.logger.Error()
			if w.backoff.critical(consecutive) {
				evt = w.logger.WithLevel(zerolog.FatalLevel).Str("severity", "critical")
			}
			evt.Err(err).
				Int("consecutive_errors", consecutive).
				Dur("backoff", delay).
				Msg("batch processing failed")

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}
		w.state.recordSuccess(len(batch))
	}
}

// collectBatch gathers up to BatchSize messages, waiting at most
// batchWindow after the first arrives. Returns open=false when the
// message channel closes or ctx ends.
func (w *Worker) collectBatch(ctx context.Context, messages <-chan *message.Message) ([]*message.Message, bool) {
	var batch []*message.Message

	select {
	case msg, ok := <-messages:
		if !ok {
			return nil, false
		}
		batch = append(batch, msg)
	case <-ctx.Done():
		return nil, false
	}

	window := time.NewTimer(batchWindow)
	defer window.Stop()

	for len(batch) < w.cfg.BatchSize {
		select {
		case msg, ok := <-messages:
			if !ok {
				return batch, true
			}
			batch = append(batch, msg)
		case <-window.C:
			return batch, true
		case <-ctx.Done():
			return batch, true
		}
	}
	return batch, true
}

// outcome pairs a message with its probe result for the ack pass.
type outcome struct {
	msg *message.Message
	ack bool
}

// processBatch probes all jobs in parallel, persists ticks, publishes
// events, then acks in bulk. Returns an error only for batch-wide
// failures that should back off the loop.
func (w *Worker) processBatch(ctx context.Context, batch []*message.Message) error {
	outcomes := make([]outcome, len(batch))
	var wg sync.WaitGroup
	var batchErr error
	var errMu sync.Mutex

	for i, msg := range batch {
		wg.Add(1)
		go func(i int, msg *message.Message) {
			defer wg.Done()
			ack, err := w.processJob(ctx, msg)
			outcomes[i] = outcome{msg: msg, ack: ack}
			if err != nil {
				errMu.Lock()
				batchErr = err
				errMu.Unlock()
			}
		}(i, msg)
	}
	wg.Wait()

	// Ack pass runs even when some jobs failed; only unacked messages
	// are redelivered.
	for _, o := range outcomes {
		if o.ack {
			o.msg.Ack()
		}
	}
	return batchErr
}

// processJob handles one message end to end. The bool result is whether
// the message should be acked: true for completed or obsolete jobs, false
// for transient failures that should redeliver.
func (w *Worker) processJob(ctx context.Context, msg *message.Message) (bool, error) {
	job, err := w.serializer.UnmarshalJob(msg.Payload)
	if err != nil {
		// Malformed payloads are redelivered until MaxDeliver retires
		// them; a parse failure here is a producer bug worth surfacing.
		metrics.RecordWorkerError("malformed")
		w.logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("malformed probe job")
		return false, nil
	}

	result := w.prober.Check(ctx, job.URL)
	metrics.RecordProbe(w.region.Name, result.Status, result.ResponseTime)
	if result.Err != nil {
		w.logger.Debug().
			Err(result.Err).
			Str("website_id", job.ID).
			Bool("timeout", probe.IsTimeout(result.Err)).
			Msg("probe failed, recording DOWN")
	}

	responseMs := int(result.ResponseTime / time.Millisecond)
	tick, err := w.store.InsertTick(ctx, job.ID, w.region.ID, responseMs, result.Status)
	if err != nil {
		if database.IsForeignKey(err) {
			// Website deleted between enqueue and probe. The job is
			// obsolete; ack it away.
			w.logger.Debug().Str("website_id", job.ID).Msg("website gone, dropping job")
			return true, nil
		}
		metrics.RecordWorkerError("store")
		return false, fmt.Errorf("insert tick for website %s: %w", job.ID, err)
	}

	w.publishTick(ctx, job, tick)
	return true, nil
}

// publishTick emits the fan-out event. Failures are logged and counted
// but never fail the job: the persisted tick is the durable record.
func (w *Worker) publishTick(ctx context.Context, job *models.ProbeJob, tick *models.WebsiteTick) {
	userID, err := w.store.WebsiteOwner(ctx, job.ID)
	if err != nil {
		w.logger.Debug().Err(err).Str("website_id", job.ID).Msg("owner lookup failed, skipping event")
		return
	}

	ev := &models.TickEvent{
		WebsiteID:    tick.WebsiteID,
		UserID:       userID,
		Status:       tick.Status,
		ResponseTime: tick.ResponseTimeMs,
		CheckedAt:    tick.CreatedAt,
		Region:       w.region.Name,
	}
	if err := w.fanout.PublishTick(ev); err != nil {
		metrics.RecordWorkerError("publish")
		w.logger.Warn().Err(err).Str("website_id", job.ID).Msg("tick event publish failed")
	}
}

// errorKindOf buckets a batch error for backoff purposes.
func errorKindOf(err error) errorKind {
	switch {
	case database.IsUnavailable(err):
		return errStore
	case err != nil && containsAny(strings.ToLower(err.Error()), "broker", "nats", "subscribe"):
		return errBroker
	default:
		return errTransient
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
