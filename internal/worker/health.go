// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package worker

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	json "github.com/goccy/go-json"

	"github.com/beacon-watch/beacon/internal/config"
	"github.com/beacon-watch/beacon/internal/logging"
)

// Health thresholds: the worker is unhealthy when it has not processed
// anything recently, lost the broker, or is stuck in a failure streak.
const (
	staleAfter       = 120 * time.Second
	unhealthyStreak  = 5
	shutdownGraceTTL = 5 * time.Second
)

// HealthStatus is the health endpoint's response body.
type HealthStatus struct {
	Status            string    `json:"status"`
	Region            string    `json:"region"`
	WorkerID          string    `json:"workerId"`
	BrokerConnected   bool      `json:"brokerConnected"`
	LastProcessedAt   time.Time `json:"lastProcessedAt"`
	TotalProcessed    int64     `json:"totalProcessed"`
	TotalErrors       int64     `json:"totalErrors"`
	ConsecutiveErrors int       `json:"consecutiveErrors"`
	UptimeSeconds     int64     `json:"uptimeSeconds"`
	MemoryAllocBytes  uint64    `json:"memoryAllocBytes"`
	NumGoroutine      int       `json:"numGoroutine"`
}

// HealthServer serves the local health endpoint for one worker process.
type HealthServer struct {
	cfg    config.WorkerConfig
	state  *state
	fanout TickPublisher
	srv    *http.Server
}

// NewHealthServer creates the health server for a worker.
func NewHealthServer(cfg config.WorkerConfig, st *state, fanout TickPublisher) *HealthServer {
	h := &HealthServer{cfg: cfg, state: st, fanout: fanout}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleHealth)

	h.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HealthPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return h
}

// Serve runs the health endpoint until ctx is canceled. Implements
// suture.Service.
func (h *HealthServer) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- h.srv.ListenAndServe()
	}()

	logging.Info().Int("port", h.cfg.HealthPort).Msg("health endpoint listening")

	select {
	case err := <-errCh:
		return fmt.Errorf("health server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGraceTTL)
		defer cancel()
		_ = h.srv.Shutdown(shutdownCtx)
		return ctx.Err()
	}
}

// healthy applies the liveness formula. A worker that has never processed
// a batch is healthy during its first staleness window so startup is not
// reported as failure.
func (h *HealthServer) healthy(now time.Time) bool {
	last := h.state.LastProcessed()
	if last.IsZero() {
		last = h.state.startedAt
	}
	return now.Sub(last) < staleAfter &&
		h.fanout.Connected() &&
		h.state.ConsecutiveErrors() < unhealthyStreak
}

func (h *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	now := time.Now()
	healthy := h.healthy(now)

	status := HealthStatus{
		Status:            "healthy",
		Region:            h.cfg.Region,
		WorkerID:          h.cfg.ID,
		BrokerConnected:   h.fanout.Connected(),
		LastProcessedAt:   h.state.LastProcessed(),
		TotalProcessed:    h.state.TotalProcessed(),
		TotalErrors:       h.state.TotalErrors(),
		ConsecutiveErrors: h.state.ConsecutiveErrors(),
		UptimeSeconds:     int64(h.state.Uptime().Seconds()),
		MemoryAllocBytes:  mem.Alloc,
		NumGoroutine:      runtime.NumGoroutine(),
	}

	w.Header().Set("Content-Type", "application/json")
	if !healthy {
		status.Status = "unhealthy"
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
