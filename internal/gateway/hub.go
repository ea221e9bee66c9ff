// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package gateway is the realtime push surface: authenticated WebSocket
// clients join a per-user room and receive tick and lifecycle events
// bridged from the broker's fan-out subjects.
package gateway

import (
	"context"
	"sort"
	"sync"

	"github.com/beacon-watch/beacon/internal/logging"
	"github.com/beacon-watch/beacon/internal/metrics"
)

// roomMessage targets a single user's room.
type roomMessage struct {
	userID string
	msg    Message
}

// Hub tracks connected clients grouped into per-user rooms and delivers
// room-scoped messages. Room membership is mutated only by the run loop;
// fan-out iterates a snapshot so a slow send never blocks registration.
type Hub struct {
	rooms      map[string]map[*Client]bool
	deliver    chan roomMessage
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		deliver:    make(chan roomMessage, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Serve runs the hub loop until ctx is canceled. Implements
// suture.Service.
//
// Selection is priority ordered so client state is always settled before
// messages are delivered: shutdown first, then lifecycle events, then
// room deliveries.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.add(client)
			continue
		case client := <-h.Unregister:
			h.remove(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()

		case client := <-h.Register:
			h.add(client)

		case client := <-h.Unregister:
			h.remove(client)

		case rm := <-h.deliver:
			h.deliverToRoom(rm)
		}
	}
}

// Publish queues a message for every client in userID's room. Drops the
// message when the hub itself is saturated rather than blocking the
// bridge.
func (h *Hub) Publish(userID string, msg Message) {
	select {
	case h.deliver <- roomMessage{userID: userID, msg: msg}:
	default:
		logging.Warn().Str("event", msg.Type).Msg("hub delivery queue full, dropping event")
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.userID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[client.userID] = room
	}
	room[client] = true
	size := len(room)
	h.mu.Unlock()

	metrics.WSConnections.Inc()
	logging.Info().
		Str("component", "gateway").
		Int("room_size", size).
		Msg("websocket client joined")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.userID]
	if ok {
		if _, member := room[client]; member {
			delete(room, client)
			close(client.send)
			metrics.WSConnections.Dec()
		}
		if len(room) == 0 {
			delete(h.rooms, client.userID)
		}
	}
	h.mu.Unlock()

	logging.Info().
		Str("component", "gateway").
		Msg("websocket client left")
}

// deliverToRoom fans a message out over a sorted snapshot of the room.
// Clients whose send buffer is full are dropped; a consumer that cannot
// keep up must not back-pressure everyone else.
func (h *Hub) deliverToRoom(rm roomMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[rm.userID]
	if !ok {
		return
	}

	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toDrop []*Client
	for _, client := range clients {
		select {
		case client.send <- rm.msg:
			metrics.RecordWSEvent(rm.msg.Type)
		default:
			toDrop = append(toDrop, client)
		}
	}

	for _, client := range toDrop {
		close(client.send)
		delete(room, client)
		metrics.WSConnections.Dec()
		metrics.WSClientsDropped.Inc()
		logging.Warn().
			Str("component", "gateway").
			Str("event", rm.msg.Type).
			Msg("dropping slow websocket client")
	}
	if len(room) == 0 {
		delete(h.rooms, rm.userID)
	}
}

// shutdown closes every client in room order for a clean teardown.
func (h *Hub) shutdown(ctx context.Context) {
	h.mu.Lock()
	closed := 0
	userIDs := make([]string, 0, len(h.rooms))
	for userID := range h.rooms {
		userIDs = append(userIDs, userID)
	}
	sort.Strings(userIDs)
	for _, userID := range userIDs {
		for client := range h.rooms[userID] {
			close(client.send)
			closed++
		}
		delete(h.rooms, userID)
	}
	h.mu.Unlock()

	metrics.WSConnections.Sub(float64(closed))
	logging.Info().
		Str("component", "gateway").
		AnErr("cause", ctx.Err()).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
}

// ClientCount returns the number of connected clients across all rooms.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, room := range h.rooms {
		n += len(room)
	}
	return n
}

// RoomSize returns how many clients a single user has connected.
func (h *Hub) RoomSize(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}
