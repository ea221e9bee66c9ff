// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package main is the regional probe worker. It claims probe jobs from
// its region's durable stream consumer, checks the targets over HTTP,
// persists ticks, and publishes tick events for the realtime gateway.
// A local health endpoint reports liveness.
//
// Required environment: REGION_NAME, WORKER_ID, STORE_URL, BROKER_URL.
// Optional: HEALTH_PORT, LOG_LEVEL, LOG_FORMAT.
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
	"github.com/beacon-watch/beacon/internal/probe"
	"github.com/beacon-watch/beacon/internal/supervisor"
	"github.com/beacon-watch/beacon/internal/worker"
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

	// Identity is non-negotiable: a worker without a region or id cannot
	// join a consumer group.
	if err := cfg.ValidateWorker(); err != nil {
		logging.Error().Err(err).Msg("invalid worker configuration")
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

	region, err := db.GetOrCreateRegion(ctx, cfg.Worker.Region)
	if err != nil {
		logging.Error().Err(err).Str("region", cfg.Worker.Region).Msg("failed to resolve region")
		return 1
	}

	nc, err := broker.EnsureProbeStream(ctx, cfg.Broker.URL)
	if err != nil {
		logging.Error().Err(err).Msg("failed to provision probe stream")
		return 1
	}
	defer nc.Close()

	jobs, err := broker.NewJobSubscriber(
		broker.DefaultSubscriberConfig(cfg.Broker.URL, cfg.Worker.Region),
		logging.NewWatermillAdapter(),
	)
	if err != nil {
		logging.Error().Err(err).Msg("failed to create job subscriber")
		return 1
	}
	defer func() { _ = jobs.Close() }()

	fanout := broker.NewFanoutPublisher(nc).WithCircuitBreaker("tick-fanout")
	prober := probe.New(cfg.Worker.ProbeTimeout, cfg.Worker.ProbeRatePerSecond)

	w := worker.New(cfg.Worker, region, db, jobs, prober, fanout)

	tree := supervisor.New("beacon-worker", supervisor.DefaultTreeConfig())
	tree.AddMessagingService(w)
	tree.AddHTTPService(worker.NewHealthServer(cfg.Worker, w.State(), fanout))

	logging.Info().
		Str("region", cfg.Worker.Region).
		Str("worker_id", cfg.Worker.ID).
		Msg("worker starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor exited")
		return 1
	}

	logging.Info().Msg("worker stopped")
	return 0
}
