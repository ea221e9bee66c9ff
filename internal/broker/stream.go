// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package broker

import (
	"context"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/beacon-watch/beacon/internal/logging"
)

// JetStreamContext is the subset of jetstream.JetStream the initializer
// uses. Narrowed for testing with mocks.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// StreamInitializer provisions the probe-job stream before publishers and
// subscribers start.
type StreamInitializer struct {
	js     JetStreamContext
	config StreamConfig
}

// NewStreamInitializer creates an initializer for the given stream.
func NewStreamInitializer(js JetStreamContext, cfg StreamConfig) (*StreamInitializer, error) {
	if js == nil {
		return nil, fmt.Errorf("JetStream context required")
	}
	return &StreamInitializer{js: js, config: cfg}, nil
}

// EnsureStream creates the stream if absent or updates its configuration if
// present. Idempotent; every binary may call it at startup.
func (s *StreamInitializer) EnsureStream(ctx context.Context) (jetstream.Stream, error) {
	streamCfg := jetstream.StreamConfig{
		Name:       s.config.Name,
		Subjects:   s.config.Subjects,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     s.config.MaxAge,
		MaxMsgs:    s.config.MaxMsgs,
		Duplicates: s.config.DuplicateWindow,
		Replicas:   s.config.Replicas,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}

	_, err := s.js.Stream(ctx, s.config.Name)
	if err == nil {
		stream, err := s.js.UpdateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("update stream %s: %w", s.config.Name, err)
		}
		return stream, nil
	}

	if errors.Is(err, jetstream.ErrStreamNotFound) {
		stream, err := s.js.CreateStream(ctx, streamCfg)
		if err != nil {
			return nil, fmt.Errorf("create stream %s: %w", s.config.Name, err)
		}
		logging.Info().Str("stream", s.config.Name).Msg("stream created")
		return stream, nil
	}

	return nil, fmt.Errorf("check stream %s: %w", s.config.Name, err)
}

// IsHealthy reports whether the stream exists and is reachable.
func (s *StreamInitializer) IsHealthy(ctx context.Context) bool {
	_, err := s.js.Stream(ctx, s.config.Name)
	return err == nil
}

// Connect dials NATS with reconnect handling and returns the connection
// plus its JetStream context.
func Connect(url string) (*natsgo.Conn, jetstream.JetStream, error) {
	nc, err := natsgo.Connect(url,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("broker disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("broker reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to broker: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return nc, js, nil
}

// EnsureProbeStream is the startup helper the binaries call: connect,
// provision the stream, and return the connection.
func EnsureProbeStream(ctx context.Context, url string) (*natsgo.Conn, error) {
	nc, js, err := Connect(url)
	if err != nil {
		return nil, err
	}

	init, err := NewStreamInitializer(js, DefaultStreamConfig())
	if err != nil {
		nc.Close()
		return nil, err
	}
	if _, err := init.EnsureStream(ctx); err != nil {
		nc.Close()
		return nil, err
	}
	return nc, nil
}
