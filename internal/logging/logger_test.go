// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected default level 'info', got '%s'", cfg.Level)
	}
	if cfg.Format != "json" {
		t.Errorf("expected default format 'json', got '%s'", cfg.Format)
	}
	if cfg.Caller {
		t.Error("expected default caller to be false")
	}
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer

	Init(Config{
		Level:  "debug",
		Format: "json",
		Output: &buf,
	})

	Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test message") {
		t.Errorf("expected output to contain 'test message', got: %s", output)
	}
	if !strings.Contains(output, `"level":"info"`) {
		t.Errorf("expected output to contain level, got: %s", output)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"fatal", zerolog.FatalLevel},
		{"disabled", zerolog.Disabled},
		{"INFO", zerolog.InfoLevel},
		{"invalid", zerolog.InfoLevel}, // default
		{"", zerolog.InfoLevel},        // empty
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer

	SetLogger(zerolog.New(&buf).With().Timestamp().Logger())
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	tests := []struct {
		name    string
		logFunc func()
		level   string
	}{
		{"Debug", func() { Debug().Msg("debug msg") }, "debug"},
		{"Info", func() { Info().Msg("info msg") }, "info"},
		{"Warn", func() { Warn().Msg("warn msg") }, "warn"},
		{"Error", func() { Error().Msg("error msg") }, "error"},
	}

	for _, tt := range tests {
		buf.Reset()
		tt.logFunc()
		output := buf.String()
		if !strings.Contains(output, tt.level) {
			t.Errorf("%s: expected level '%s' in output: %s", tt.name, tt.level, output)
		}
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer

	SetLogger(zerolog.New(&buf).With().Timestamp().Logger())
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	logger := WithComponent("worker")
	logger.Info().Msg("component message")

	output := buf.String()
	if !strings.Contains(output, `"component":"worker"`) {
		t.Errorf("expected component field in output: %s", output)
	}
}

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("expected empty request ID from bare context, got %q", got)
	}

	ctx = ContextWithRequestID(ctx, "req-123")
	if got := RequestIDFromContext(ctx); got != "req-123" {
		t.Errorf("expected 'req-123', got %q", got)
	}
}

func TestCtxAddsRequestID(t *testing.T) {
	var buf bytes.Buffer

	SetLogger(zerolog.New(&buf).With().Timestamp().Logger())
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	ctx := ContextWithRequestID(context.Background(), "req-abc")
	Ctx(ctx).Info().Msg("with request id")

	output := buf.String()
	if !strings.Contains(output, `"request_id":"req-abc"`) {
		t.Errorf("expected request_id field in output: %s", output)
	}
}

func TestWatermillAdapter(t *testing.T) {
	var buf bytes.Buffer

	adapter := NewWatermillAdapterWithLogger(NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	adapter.Info("published", watermill.LogFields{"topic": "ticks"})

	output := buf.String()
	if !strings.Contains(output, "published") {
		t.Errorf("expected message in output: %s", output)
	}
	if !strings.Contains(output, `"topic":"ticks"`) {
		t.Errorf("expected topic field in output: %s", output)
	}

	buf.Reset()
	child := adapter.With(watermill.LogFields{"subscriber": "region:us-east"})
	child.Debug("polling", nil)
	output = buf.String()
	if !strings.Contains(output, "region:us-east") {
		t.Errorf("expected subscriber field in output: %s", output)
	}
}
