// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/lib/pq"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"nil", nil, nil},
		{"no rows", sql.ErrNoRows, ErrNotFound},
		{"wrapped no rows", fmt.Errorf("query: %w", sql.ErrNoRows), ErrNotFound},
		{"unique violation", &pq.Error{Code: "23505"}, ErrDuplicate},
		{"fk violation", &pq.Error{Code: "23503"}, ErrForeignKey},
		{"connection failure", &pq.Error{Code: "08006"}, ErrUnavailable},
		{"deadline", context.DeadlineExceeded, ErrUnavailable},
		{"canceled", context.Canceled, ErrUnavailable},
		{"net timeout", &net.DNSError{IsTimeout: true}, ErrUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := classify(tt.err)
			if tt.sentinel == nil {
				if got != nil {
					t.Errorf("classify(nil) = %v, want nil", got)
				}
				return
			}
			if !errors.Is(got, tt.sentinel) {
				t.Errorf("classify(%v) = %v, want sentinel %v", tt.err, got, tt.sentinel)
			}
		})
	}
}

func TestClassifyPreservesOriginal(t *testing.T) {
	t.Parallel()

	orig := &pq.Error{Code: "23505", Constraint: "websites_user_id_url_key"}
	got := classify(orig)

	var pqErr *pq.Error
	if !errors.As(got, &pqErr) {
		t.Fatal("original pq.Error lost in classification")
	}
	if pqErr.Constraint != "websites_user_id_url_key" {
		t.Errorf("constraint detail lost: %q", pqErr.Constraint)
	}
}

func TestClassifyOtherPqErrorsPassThrough(t *testing.T) {
	t.Parallel()

	// Check violations are caller bugs, not any of our retry categories.
	err := classify(&pq.Error{Code: "23514"})
	for _, sentinel := range []error{ErrNotFound, ErrDuplicate, ErrForeignKey, ErrUnavailable} {
		if errors.Is(err, sentinel) {
			t.Errorf("check violation unexpectedly classified as %v", sentinel)
		}
	}
}

func TestSentinelHelpers(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("failed to insert tick: %w", classify(&pq.Error{Code: "23503"}))
	if !IsForeignKey(wrapped) {
		t.Error("IsForeignKey should match through wrapping")
	}
	if IsDuplicate(wrapped) {
		t.Error("IsDuplicate should not match an FK violation")
	}

	timeoutErr := fmt.Errorf("ping: %w", classify(context.DeadlineExceeded))
	if !IsUnavailable(timeoutErr) {
		t.Error("IsUnavailable should match a deadline error")
	}
}
