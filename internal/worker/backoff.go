// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package worker

import (
	"time"
)

// Error categories the backoff policy distinguishes. Broker outages clear
// quickly once connectivity returns; a misconfigured store does not, so it
// earns a much longer cap.
type errorKind int

const (
	errTransient errorKind = iota
	errBroker
	errStore
)

// backoffPolicy computes retry delays for the worker loop: exponential
// from a base with a per-category cap.
type backoffPolicy struct {
	base        time.Duration
	cap         time.Duration
	brokerCap   time.Duration
	storeCap    time.Duration
	criticalAt  int
}

func defaultBackoffPolicy() backoffPolicy {
	return backoffPolicy{
		base:       5 * time.Second,
		cap:        30 * time.Second,
		brokerCap:  60 * time.Second,
		storeCap:   300 * time.Second,
		criticalAt: 10,
	}
}

// delay returns the pause before the next attempt after consecutive
// failures of the given kind. consecutive counts from 1.
func (p backoffPolicy) delay(consecutive int, kind errorKind) time.Duration {
	if consecutive < 1 {
		consecutive = 1
	}

	limit := p.cap
	switch kind {
	case errBroker:
		limit = p.brokerCap
	case errStore:
		limit = p.storeCap
	}

	d := p.base
	for i := 1; i < consecutive; i++ {
		d *= 2
		if d >= limit {
			return limit
		}
	}
	if d > limit {
		return limit
	}
	return d
}

// critical reports whether the failure streak warrants a critical log.
func (p backoffPolicy) critical(consecutive int) bool {
	return consecutive >= p.criticalAt
}
