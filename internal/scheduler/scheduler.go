// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package scheduler drives the probe cadence: on every tick interval it
// enumerates active websites and appends one probe job per website to the
// durable stream. The tick retention sweep piggybacks the same loop.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/beacon-watch/beacon/internal/config"
	"github.com/beacon-watch/beacon/internal/logging"
	"github.com/beacon-watch/beacon/internal/metrics"
	"github.com/beacon-watch/beacon/internal/models"
)

// Cycle outcomes for the scheduler metric.
const (
	cycleOK         = "ok"
	cycleEmpty      = "empty"
	cycleStoreErr   = "store_error"
	cyclePublishErr = "publish_error"
)

// Store is the subset of the database layer the scheduler needs.
type Store interface {
	ListActiveWebsites(ctx context.Context) ([]models.ProbeJob, error)
	PruneTicks(ctx context.Context, olderThan time.Time) (int64, error)
}

// Publisher appends probe jobs to the stream.
type Publisher interface {
	PublishJobs(ctx context.Context, jobs []models.ProbeJob) error
}

// Service enumerates probe jobs on a fixed cadence. Implements
// suture.Service.
type Service struct {
	cfg       config.ProducerConfig
	store     Store
	publisher Publisher
	cycles    int
	logger    zerolog.Logger
}

// New assembles the scheduler.
func New(cfg config.ProducerConfig, store Store, publisher Publisher) *Service {
	return &Service{
		cfg:       cfg,
		store:     store,
		publisher: publisher,
		logger:    logging.With().Str("component", "scheduler").Logger(),
	}
}

// Serve runs the cadence loop until ctx is canceled. The first cycle runs
// immediately so a fresh deployment probes without waiting a full
// interval.
func (s *Service) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("tick_interval", s.cfg.TickInterval).
		Int("retention_days", s.cfg.RetentionDays).
		Msg("scheduler started")

	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.cycle(ctx)
		}
	}
}

// cycle runs one enumeration pass. Failures are logged and counted; the
// next tick retries the whole set, which is harmless because probes are
// idempotent.
func (s *Service) cycle(ctx context.Context) {
	s.cycles++

	if err := s.tick(ctx); err != nil {
		s.logger.Error().Err(err).Msg("scheduler cycle failed")
	}

	if s.cfg.SweepEveryCycles > 0 && s.cycles%s.cfg.SweepEveryCycles == 0 {
		s.sweep(ctx)
	}
}

// tick publishes one probe job per active website.
func (s *Service) tick(ctx context.Context) error {
	jobs, err := s.store.ListActiveWebsites(ctx)
	if err != nil {
		metrics.RecordSchedulerCycle(cycleStoreErr)
		return fmt.Errorf("list active websites: %w", err)
	}
	if len(jobs) == 0 {
		metrics.RecordSchedulerCycle(cycleEmpty)
		return nil
	}

	if err := s.publisher.PublishJobs(ctx, jobs); err != nil {
		metrics.RecordSchedulerCycle(cyclePublishErr)
		return fmt.Errorf("publish %d probe jobs: %w", len(jobs), err)
	}

	metrics.RecordSchedulerCycle(cycleOK)
	s.logger.Debug().Int("jobs", len(jobs)).Msg("probe jobs published")
	return nil
}

// sweep prunes ticks past the retention horizon.
func (s *Service) sweep(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.cfg.RetentionDays)
	pruned, err := s.store.PruneTicks(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("retention sweep failed")
		return
	}
	metrics.TicksPruned.Add(float64(pruned))
	s.logger.Info().
		Int64("pruned", pruned).
		Time("cutoff", cutoff).
		Msg("retention sweep completed")
}
