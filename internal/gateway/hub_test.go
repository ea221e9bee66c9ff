// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package gateway

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/beacon-watch/beacon/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// testClient builds a hub-only client with no connection behind it.
func testClient(userID string, buffer int) *Client {
	return &Client{
		id:     clientIDCounter.Add(1),
		userID: userID,
		send:   make(chan Message, buffer),
	}
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := hub.Serve(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("hub.Serve: %v", err)
		}
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, cancel
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestRoomIsolation(t *testing.T) {
	t.Parallel()

	hub, _ := startHub(t)

	alice := testClient("u-alice", 8)
	bob := testClient("u-bob", 8)
	hub.Register <- alice
	hub.Register <- bob
	waitFor(t, func() bool { return hub.ClientCount() == 2 }, "both clients registered")

	hub.Publish("u-alice", Message{Type: EventWebsiteStatus, Data: "only-alice"})

	select {
	case msg := <-alice.send:
		if msg.Type != EventWebsiteStatus {
			t.Errorf("unexpected type %q", msg.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("alice never received her event")
	}

	select {
	case msg := <-bob.send:
		t.Errorf("bob received alice's event: %+v", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMultipleConnectionsSameUser(t *testing.T) {
	t.Parallel()

	hub, _ := startHub(t)

	first := testClient("u-1", 8)
	second := testClient("u-1", 8)
	hub.Register <- first
	hub.Register <- second
	waitFor(t, func() bool { return hub.RoomSize("u-1") == 2 }, "room of two")

	hub.Publish("u-1", Message{Type: EventWebsiteAdded})

	for _, c := range []*Client{first, second} {
		select {
		case <-c.send:
		case <-time.After(2 * time.Second):
			t.Fatal("every connection in the room should get the event")
		}
	}
}

func TestSlowClientDropped(t *testing.T) {
	t.Parallel()

	hub, _ := startHub(t)

	// Buffer of one and nobody draining: the second delivery overflows.
	slow := testClient("u-slow", 1)
	hub.Register <- slow
	waitFor(t, func() bool { return hub.RoomSize("u-slow") == 1 }, "client registered")

	hub.Publish("u-slow", Message{Type: EventWebsiteStatus})
	hub.Publish("u-slow", Message{Type: EventWebsiteStatus})

	waitFor(t, func() bool { return hub.RoomSize("u-slow") == 0 }, "slow client dropped")
}

func TestUnregisterClosesSend(t *testing.T) {
	t.Parallel()

	hub, _ := startHub(t)

	c := testClient("u-1", 8)
	hub.Register <- c
	waitFor(t, func() bool { return hub.ClientCount() == 1 }, "client registered")

	hub.Unregister <- c
	waitFor(t, func() bool { return hub.ClientCount() == 0 }, "client removed")

	select {
	case _, open := <-c.send:
		if open {
			t.Error("send channel should be closed after unregister")
		}
	case <-time.After(time.Second):
		t.Error("send channel should be closed, not blocked")
	}
}

func TestShutdownClosesAllClients(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.Serve(ctx)
	}()

	a := testClient("u-a", 8)
	b := testClient("u-b", 8)
	hub.Register <- a
	hub.Register <- b
	waitFor(t, func() bool { return hub.ClientCount() == 2 }, "clients registered")

	cancel()
	<-done

	if hub.ClientCount() != 0 {
		t.Errorf("expected empty hub after shutdown, got %d clients", hub.ClientCount())
	}
	for _, c := range []*Client{a, b} {
		if _, open := <-c.send; open {
			t.Error("client channel should be closed on shutdown")
		}
	}
}
