// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package gateway

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/beacon-watch/beacon/internal/config"
	"github.com/beacon-watch/beacon/internal/logging"
)

const maxMessageSize = 4 * 1024

// clientIDCounter hands out stable ids so fan-out can iterate rooms in a
// consistent order.
var clientIDCounter atomic.Uint64

// Client is one WebSocket connection bound to a user's room.
type Client struct {
	id     uint64
	userID string
	hub    *Hub
	conn   *websocket.Conn
	cfg    config.WebsocketConfig
	send   chan Message
}

// NewClient wraps an upgraded connection for the given user.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, cfg config.WebsocketConfig) *Client {
	return &Client{
		id:     clientIDCounter.Add(1),
		userID: userID,
		hub:    hub,
		conn:   conn,
		cfg:    cfg,
		send:   make(chan Message, cfg.SendBuffer),
	}
}

// Start registers the client and begins its pumps.
func (c *Client) Start() {
	c.hub.Register <- c
	go c.writePump()
	go c.readPump()
}

// readPump discards inbound frames but keeps the read side alive so pong
// handling and close detection work. Exit unregisters the client.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Debug().Err(err).Msg("websocket read ended")
			}
			return
		}
	}
}

// writePump serializes room messages onto the wire and keeps the
// heartbeat going.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				return
			}
			if !ok {
				// Hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				logging.Debug().Err(err).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
