// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package metrics holds the Prometheus collectors for all three binaries.
// Collectors are registered via promauto at package load; binaries expose
// them on /metrics through promhttp.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Producer metrics
	JobsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_jobs_published_total",
			Help: "Total probe jobs appended to the stream",
		},
	)

	SchedulerCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_scheduler_cycles_total",
			Help: "Total scheduler cycles by outcome",
		},
		[]string{"outcome"}, // "ok", "store_error", "broker_error"
	)

	TicksPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_ticks_pruned_total",
			Help: "Total ticks removed by the retention sweep",
		},
	)

	// Worker metrics
	ProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_probes_total",
			Help: "Total probes by resulting status",
		},
		[]string{"region", "status"}, // status: "UP", "DOWN"
	)

	ProbeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beacon_probe_duration_seconds",
			Help:    "HTTP probe duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"region"},
	)

	TicksPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_ticks_published_total",
			Help: "Total tick events published on the fan-out subject",
		},
	)

	WorkerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_worker_errors_total",
			Help: "Total worker loop errors by category",
		},
		[]string{"category"}, // "broker", "store", "malformed", "publish"
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_api_requests_total",
			Help: "Total API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "beacon_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Gateway metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "beacon_ws_connections",
			Help: "Current WebSocket connections",
		},
	)

	WSEventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "beacon_ws_events_delivered_total",
			Help: "Total events delivered to WebSocket clients",
		},
		[]string{"event"},
	)

	WSClientsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "beacon_ws_clients_dropped_total",
			Help: "Total clients dropped for slow consumption",
		},
	)
)

// RecordJobPublished increments the published-job counter.
func RecordJobPublished() {
	JobsPublished.Inc()
}

// RecordSchedulerCycle records one scheduler cycle outcome.
func RecordSchedulerCycle(outcome string) {
	SchedulerCycles.WithLabelValues(outcome).Inc()
}

// RecordProbe records one probe result with its duration.
func RecordProbe(region, status string, duration time.Duration) {
	ProbesTotal.WithLabelValues(region, status).Inc()
	ProbeDuration.WithLabelValues(region).Observe(duration.Seconds())
}

// RecordTickPublished increments the fan-out tick counter.
func RecordTickPublished() {
	TicksPublished.Inc()
}

// RecordWorkerError records one worker loop error by category.
func RecordWorkerError(category string) {
	WorkerErrors.WithLabelValues(category).Inc()
}

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordWSEvent records one event delivered to a client.
func RecordWSEvent(event string) {
	WSEventsDelivered.WithLabelValues(event).Inc()
}
