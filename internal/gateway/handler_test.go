// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package gateway

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/beacon-watch/beacon/internal/auth"
	"github.com/beacon-watch/beacon/internal/config"
)

func newJWT(t *testing.T) *auth.JWTManager {
	t.Helper()
	jwt, err := auth.NewJWTManager(config.AuthConfig{
		JWTSecret: "test-secret-for-the-gateway",
		TokenTTL:  time.Hour,
	})
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	return jwt
}

func newGatewayServer(t *testing.T) (*httptest.Server, *Hub, *auth.JWTManager) {
	t.Helper()
	hub, _ := startHub(t)
	jwt := newJWT(t)
	srv := httptest.NewServer(NewHandler(hub, jwt, wsConfig()))
	t.Cleanup(srv.Close)
	return srv, hub, jwt
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestUpgradeRequiresToken(t *testing.T) {
	t.Parallel()

	srv, _, _ := newGatewayServer(t)

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "Authentication token required" || body.Code != "UNAUTHORIZED" {
		t.Errorf("unexpected error body: %+v", body)
	}
}

func TestUpgradeRejectsBadToken(t *testing.T) {
	t.Parallel()

	srv, _, _ := newGatewayServer(t)

	resp, err := http.Get(srv.URL + "?token=not-a-jwt")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "Invalid authentication token" {
		t.Errorf("unexpected error message: %q", body.Error)
	}
}

func TestConnectedGreetingViaQueryToken(t *testing.T) {
	t.Parallel()

	srv, _, jwt := newGatewayServer(t)

	token, err := jwt.GenerateToken("u-42")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv)+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string `json:"type"`
		Data struct {
			Message string `json:"message"`
			UserID  string `json:"userId"`
		} `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	if msg.Type != EventConnected {
		t.Errorf("expected %s, got %s", EventConnected, msg.Type)
	}
	if msg.Data.UserID != "u-42" {
		t.Errorf("greeting should carry the user id, got %q", msg.Data.UserID)
	}
}

func TestBearerHeaderAuthAndRoomDelivery(t *testing.T) {
	t.Parallel()

	srv, hub, jwt := newGatewayServer(t)

	token, err := jwt.GenerateToken("u-7")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var greeting Message
	if err := conn.ReadJSON(&greeting); err != nil {
		t.Fatalf("read greeting: %v", err)
	}

	waitFor(t, func() bool { return hub.RoomSize("u-7") == 1 }, "client in room")
	hub.Publish("u-7", Message{Type: EventWebsiteStatus, Data: StatusData{WebsiteID: "w-1", Status: "UP"}})

	var msg struct {
		Type string `json:"type"`
		Data struct {
			WebsiteID string `json:"websiteId"`
			Status    string `json:"status"`
		} `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read status: %v", err)
	}
	if msg.Type != EventWebsiteStatus || msg.Data.WebsiteID != "w-1" {
		t.Errorf("unexpected frame: %+v", msg)
	}
}
