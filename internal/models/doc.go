// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package models defines the domain types shared by the producer, the
// regional workers, and the API server: users, regions, websites, ticks,
// the broker payloads that move between processes, and the JSON shapes
// the HTTP and WebSocket surfaces expose.
package models
