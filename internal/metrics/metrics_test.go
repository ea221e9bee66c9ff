// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordProbe(t *testing.T) {
	before := testutil.ToFloat64(ProbesTotal.WithLabelValues("us-east", "UP"))
	RecordProbe("us-east", "UP", 120*time.Millisecond)
	after := testutil.ToFloat64(ProbesTotal.WithLabelValues("us-east", "UP"))

	if after != before+1 {
		t.Errorf("expected counter to increment by 1, got %f -> %f", before, after)
	}
}

func TestRecordWorkerError(t *testing.T) {
	before := testutil.ToFloat64(WorkerErrors.WithLabelValues("store"))
	RecordWorkerError("store")
	after := testutil.ToFloat64(WorkerErrors.WithLabelValues("store"))

	if after != before+1 {
		t.Errorf("expected counter to increment by 1, got %f -> %f", before, after)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/websites", "200"))
	RecordAPIRequest("GET", "/api/v1/websites", 200, 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/websites", "200"))

	if after != before+1 {
		t.Errorf("expected counter to increment by 1, got %f -> %f", before, after)
	}
}
