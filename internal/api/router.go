// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/beacon-watch/beacon/internal/auth"
	"github.com/beacon-watch/beacon/internal/config"
	"github.com/beacon-watch/beacon/internal/middleware"
)

// NewRouter assembles the server's full HTTP surface: the versioned API,
// the WebSocket endpoint, and Prometheus metrics.
func NewRouter(cfg config.ServerConfig, handler *Handler, jwt *auth.JWTManager, ws http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(cfg.RateLimit, cfg.RatePeriod))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Prometheus)

		r.Get("/health", handler.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", handler.Signup)
			r.Post("/signin", handler.Signin)

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(jwt))
				r.Get("/profile", handler.Profile)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(jwt))

			r.Get("/websites", handler.ListWebsites)
			r.Post("/website", handler.CreateWebsite)
			r.Route("/website/{id}", func(r chi.Router) {
				r.Get("/", handler.GetWebsite)
				r.Put("/", handler.UpdateWebsite)
				r.Delete("/", handler.DeleteWebsite)
				r.Get("/history", handler.History)
			})
			r.Get("/status/{id}", handler.Status)
			r.Get("/dashboard", handler.Dashboard)
		})
	})

	// Token validation happens inside the WebSocket handler; browsers
	// cannot set headers on upgrade requests, so the auth middleware does
	// not apply here.
	if ws != nil {
		r.Handle("/ws", ws)
	}

	r.Handle("/metrics", promhttp.Handler())

	return r
}
