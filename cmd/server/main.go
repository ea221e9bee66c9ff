// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package main is the API and gateway server. It serves the
// authenticated REST surface, upgrades WebSocket clients into per-user
// rooms, and bridges the broker's fan-out subjects into those rooms.
// Everything runs under a suture supervisor tree.
//
// Required environment: STORE_URL, BROKER_URL, JWT_SECRET. Optional:
// API_PORT, CORS_ORIGINS, LOG_LEVEL, LOG_FORMAT.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/beacon-watch/beacon/internal/api"
	"github.com/beacon-watch/beacon/internal/auth"
	"github.com/beacon-watch/beacon/internal/broker"
	"github.com/beacon-watch/beacon/internal/config"
	"github.com/beacon-watch/beacon/internal/database"
	"github.com/beacon-watch/beacon/internal/gateway"
	"github.com/beacon-watch/beacon/internal/logging"
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

	if err := cfg.ValidateServer(); err != nil {
		logging.Error().Err(err).Msg("invalid server configuration")
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
		logging.Error().Err(err).Msg("failed to connect to broker")
		return 1
	}
	defer nc.Close()

	jwt, err := auth.NewJWTManager(cfg.Auth)
	if err != nil {
		logging.Error().Err(err).Msg("failed to initialize token manager")
		return 1
	}

	events := broker.NewFanoutPublisher(nc).WithCircuitBreaker("website-lifecycle")

	hub := gateway.NewHub()
	bridge := gateway.NewBridge(hub, broker.NewFanoutSubscriber(nc), db, cfg.Websocket)
	wsHandler := gateway.NewHandler(hub, jwt, cfg.Websocket)

	handler := api.NewHandler(db, events, jwt)
	router := api.NewRouter(cfg.Server, handler, jwt, wsHandler)

	tree := supervisor.New("beacon-server", supervisor.DefaultTreeConfig())
	tree.AddMessagingService(hub)
	tree.AddMessagingService(bridge)
	tree.AddHTTPService(api.NewServer(cfg.Server, router))

	logging.Info().Int("port", cfg.Server.Port).Msg("server starting")

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor exited")
		return 1
	}

	logging.Info().Msg("server stopped")
	return 0
}
