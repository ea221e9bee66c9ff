// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package middleware holds chi-compatible HTTP middleware shared by the
// API server: request IDs, Prometheus instrumentation, and bearer-token
// authentication.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/beacon-watch/beacon/internal/logging"
)

// RequestID assigns each request a unique ID, honoring an upstream
// X-Request-ID when present, and threads it through the response header
// and the logging context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := logging.ContextWithRequestID(r.Context(), requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
