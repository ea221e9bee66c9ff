// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package worker

import (
	"sync/atomic"
	"time"
)

// state tracks the worker's runtime counters. All fields are atomic; the
// consume loop and the health server touch them concurrently.
type state struct {
	startedAt         time.Time
	lastProcessedUnix atomic.Int64
	totalProcessed    atomic.Int64
	totalErrors       atomic.Int64
	consecutiveErrors atomic.Int64
}

func newState() *state {
	return &state{startedAt: time.Now()}
}

// recordSuccess notes a completed batch of n jobs and clears the failure
// streak.
func (s *state) recordSuccess(n int) {
	s.lastProcessedUnix.Store(time.Now().Unix())
	s.totalProcessed.Add(int64(n))
	s.consecutiveErrors.Store(0)
}

// recordError notes a failed batch and returns the current streak length.
func (s *state) recordError() int {
	s.totalErrors.Add(1)
	return int(s.consecutiveErrors.Add(1))
}

// LastProcessed returns when the worker last completed a batch, zero time
// if it never has.
func (s *state) LastProcessed() time.Time {
	unix := s.lastProcessedUnix.Load()
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}

// TotalProcessed returns the number of jobs completed since start.
func (s *state) TotalProcessed() int64 { return s.totalProcessed.Load() }

// TotalErrors returns the number of failed batches since start.
func (s *state) TotalErrors() int64 { return s.totalErrors.Load() }

// ConsecutiveErrors returns the current failure streak.
func (s *state) ConsecutiveErrors() int { return int(s.consecutiveErrors.Load()) }

// Uptime returns how long the worker has been running.
func (s *state) Uptime() time.Duration { return time.Since(s.startedAt) }
