// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package gateway

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/beacon-watch/beacon/internal/auth"
	"github.com/beacon-watch/beacon/internal/config"
	"github.com/beacon-watch/beacon/internal/logging"
	"github.com/beacon-watch/beacon/internal/middleware"
	"github.com/beacon-watch/beacon/internal/models"
)

// Handler upgrades authenticated requests into hub clients.
type Handler struct {
	hub      *Hub
	jwt      *auth.JWTManager
	cfg      config.WebsocketConfig
	upgrader websocket.Upgrader
}

// NewHandler builds the WebSocket endpoint handler. Origins are expected
// to be enforced by the CORS layer in front; the upgrader accepts any
// origin here so non-browser clients can connect with a bearer token.
func NewHandler(hub *Hub, jwt *auth.JWTManager, cfg config.WebsocketConfig) *Handler {
	return &Handler{
		hub: hub,
		jwt: jwt,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP authenticates the request, upgrades it, and attaches the
// client to its user's room. Browsers cannot set headers on WebSocket
// requests, so the token may also arrive as a query parameter.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		writeAuthError(w, "Authentication token required")
		return
	}

	claims, err := h.jwt.ValidateToken(token)
	if err != nil {
		writeAuthError(w, "Invalid authentication token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		logging.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, conn, claims.UserID, h.cfg)

	// Greeting is queued before the pumps start so it is the first frame
	// out and cannot race the hub closing the channel.
	client.send <- Message{
		Type: EventConnected,
		Data: ConnectedData{
			Message:   "Connected to realtime updates",
			UserID:    claims.UserID,
			Timestamp: time.Now().UTC(),
		},
	}
	client.Start()
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(models.APIError{
		Error: message,
		Code:  "UNAUTHORIZED",
	})
}
