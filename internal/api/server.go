// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/beacon-watch/beacon/internal/config"
	"github.com/beacon-watch/beacon/internal/logging"
)

const shutdownGrace = 10 * time.Second

// Server runs the HTTP listener under supervision. Implements
// suture.Service.
type Server struct {
	cfg config.ServerConfig
	srv *http.Server
}

// NewServer wraps the router in a supervised HTTP server.
func NewServer(cfg config.ServerConfig, router http.Handler) *Server {
	return &Server{
		cfg: cfg,
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			// No WriteTimeout: WebSocket connections outlive any fixed
			// response deadline; the API routes carry their own timeout
			// middleware.
		},
	}
}

// Serve listens until ctx is canceled, then drains connections.
func (s *Server) Serve(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()

	logging.Info().Int("port", s.cfg.Port).Msg("api server listening")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = s.srv.Shutdown(shutdownCtx)
		logging.Info().Msg("api server stopped")
		return ctx.Err()
	}
}
