// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package broker is the NATS transport layer. Probe jobs travel through a
// durable JetStream stream so every region sees every job exactly once per
// region; tick and website lifecycle events travel over core NATS pub/sub
// where at-most-once delivery is acceptable because the store already holds
// the durable record.
package broker

import (
	"time"
)

// Subjects and stream names. The jobs subject is captured by the stream;
// the fan-out subjects are plain core NATS.
const (
	// StreamName is the JetStream stream holding probe jobs.
	StreamName = "PROBES"

	// TopicProbeJobs is the subject the producer appends jobs to.
	TopicProbeJobs = "probes.jobs"

	// SubjectTicks carries persisted tick events to the gateway.
	SubjectTicks = "ticks"

	// SubjectWebsites carries website lifecycle events to the gateway.
	SubjectWebsites = "websites"
)

// StreamConfig describes the probe-job stream.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns production stream settings. Jobs are only
// meaningful for about one cycle, so a short MaxAge keeps the stream small.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            StreamName,
		Subjects:        []string{TopicProbeJobs},
		MaxAge:          10 * time.Minute,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// PublisherConfig holds JetStream publisher settings.
type PublisherConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
}

// DefaultPublisherConfig returns production defaults for the job publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:             url,
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024,
	}
}

// SubscriberConfig holds durable consumer settings for one region.
type SubscriberConfig struct {
	URL            string
	Region         string
	AckWaitTimeout time.Duration
	MaxDeliver     int
	MaxAckPending  int
	CloseTimeout   time.Duration
	MaxReconnects  int
	ReconnectWait  time.Duration
}

// DefaultSubscriberConfig returns production defaults for a regional
// consumer.
func DefaultSubscriberConfig(url, region string) SubscriberConfig {
	return SubscriberConfig{
		URL:            url,
		Region:         region,
		AckWaitTimeout: 30 * time.Second,
		MaxDeliver:     5,
		MaxAckPending:  100,
		CloseTimeout:   30 * time.Second,
		MaxReconnects:  -1,
		ReconnectWait:  2 * time.Second,
	}
}

// ConsumerName returns the durable consumer identity for a region. Workers
// sharing a region share the consumer, which is what load-balances jobs
// within the region while every region still sees every job.
func ConsumerName(region string) string {
	return "region:" + region
}
