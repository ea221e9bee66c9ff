// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package supervisor builds the suture tree each binary runs under. Two
// layers isolate failures: a crash in a messaging service (hub, bridge,
// consume loop) never restarts the HTTP surface, and vice versa.
package supervisor

import (
	"context"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"

	"github.com/beacon-watch/beacon/internal/logging"
)

// TreeConfig tunes restart behavior for every supervisor in the tree.
type TreeConfig struct {
	// FailureThreshold is the failure count before entering backoff.
	FailureThreshold float64

	// FailureDecay is the decay rate of the failure count, in seconds.
	FailureDecay float64

	// FailureBackoff is how long to pause restarts once the threshold is
	// exceeded.
	FailureBackoff time.Duration

	// ShutdownTimeout bounds graceful shutdown of each service.
	ShutdownTimeout time.Duration
}

// DefaultTreeConfig matches suture's own defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

// Tree is the supervision hierarchy for one binary.
type Tree struct {
	root      *suture.Supervisor
	messaging *suture.Supervisor
	http      *suture.Supervisor
	config    TreeConfig
}

// New creates the tree. name labels the root supervisor in logs, one per
// binary.
func New(name string, config TreeConfig) *Tree {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5.0
	}
	if config.FailureDecay == 0 {
		config.FailureDecay = 30.0
	}
	if config.FailureBackoff == 0 {
		config.FailureBackoff = 15 * time.Second
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = 10 * time.Second
	}

	// Supervisor events go through the slog bridge into zerolog.
	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}

	rootSpec := suture.Spec{
		EventHook:        handler.MustHook(),
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}
	childSpec := suture.Spec{
		FailureThreshold: config.FailureThreshold,
		FailureDecay:     config.FailureDecay,
		FailureBackoff:   config.FailureBackoff,
		Timeout:          config.ShutdownTimeout,
	}

	root := suture.New(name, rootSpec)
	messaging := suture.New("messaging-layer", childSpec)
	httpLayer := suture.New("http-layer", childSpec)

	root.Add(messaging)
	root.Add(httpLayer)

	return &Tree{
		root:      root,
		messaging: messaging,
		http:      httpLayer,
		config:    config,
	}
}

// AddMessagingService supervises a broker-facing service: hub, bridge,
// scheduler, or consume loop.
func (t *Tree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

// AddHTTPService supervises an HTTP listener.
func (t *Tree) AddHTTPService(svc suture.Service) suture.ServiceToken {
	return t.http.Add(svc)
}

// Serve runs the tree until ctx is canceled.
func (t *Tree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree and returns its completion channel.
func (t *Tree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that missed the shutdown timeout.
func (t *Tree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
