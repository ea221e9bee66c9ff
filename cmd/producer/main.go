// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package main is the probe scheduler. On every tick interval it
// enumerates active websites and appends one probe job per website to the
// JetStream stream; the retention sweep for old ticks piggybacks the same
// loop.
//
// Required environment: STORE_URL, BROKER_URL. Optional: TICK_INTERVAL,
// RETENTION_DAYS, LOG_LEVEL, LOG_FORMAT.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/beacon-watch/beacon/internal/broker"
	"github.com/beacon-watch/beacon/internal/config"
	"github.com/beacon-watch/beacon/internal/database"
	"github.com/beacon-watch/beacon/internal/logging"
	"github.com/beacon-watch/beacon/internal/scheduler"
	"github.com/beacon-watch/beacon/internal/supervisor"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("failed to load configuration")
		return 1
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := cfg.ValidateProducer(); err != nil {
		logging.Error().Err(err).Msg("invalid producer configuration")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.Store)
	if err != nil {
		logging.Error().Err(err).Msg("failed to open store")
		return 1
	}
	defer func() { _ = db.Close() }()

	if err := db.Migrate(ctx); err != nil {
		logging.Error().Err(err).Msg("failed to run migrations")
		return 1
	}

	nc, err := broker.EnsureProbeStream(ctx, cfg.Broker.URL)
	if err != nil {
		logging.Error().Err(err).Msg("failed to provision probe stream")
		return 1
	}
	defer nc.Close()

	publisher, err := broker.NewJobPublisher(
		broker.DefaultPublisherConfig(cfg.Broker.URL),
		logging.NewWatermillAdapter(),
	)
	if err != nil {
		logging.Error().Err(err).Msg("failed to create job publisher")
		return 1
	}
	defer func() { _ = publisher.Close() }()

	tree := supervisor.New("beacon-producer", supervisor.DefaultTreeConfig())
	tree.AddMessagingService(scheduler.New(cfg.Producer, db, publisher))

	logging.Info().
		Dur("tick_interval", cfg.Producer.TickInterval).
		Msg("producer starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor exited")
		return 1
	}

	logging.Info().Msg("producer stopped")
	return 0
}
