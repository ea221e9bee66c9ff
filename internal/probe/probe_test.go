// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package probe

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/beacon-watch/beacon/internal/models"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want string
	}{
		{200, models.StatusUp},
		{201, models.StatusUp},
		{299, models.StatusUp},
		{301, models.StatusUp},
		{304, models.StatusUp},
		{400, models.StatusUp},
		{404, models.StatusUp},
		{429, models.StatusUp},
		{499, models.StatusUp},
		{500, models.StatusDown},
		{502, models.StatusDown},
		{503, models.StatusDown},
		{599, models.StatusDown},
	}

	for _, tt := range tests {
		if got := Classify(tt.code); got != tt.want {
			t.Errorf("Classify(%d) = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestCheckStatusCodes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		code int
		want string
	}{
		{"ok", 200, models.StatusUp},
		{"not found", 404, models.StatusUp},
		{"server error", 500, models.StatusDown},
		{"bad gateway", 502, models.StatusDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
			}))
			defer srv.Close()

			res := New(5*time.Second, 0).Check(context.Background(), srv.URL)
			if res.Status != tt.want {
				t.Errorf("got status %s, want %s", res.Status, tt.want)
			}
			if res.StatusCode != tt.code {
				t.Errorf("got code %d, want %d", res.StatusCode, tt.code)
			}
			if res.ResponseTime < 0 {
				t.Errorf("negative response time %s", res.ResponseTime)
			}
		})
	}
}

func TestCheckSendsUserAgent(t *testing.T) {
	t.Parallel()

	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
	}))
	defer srv.Close()

	New(5*time.Second, 0).Check(context.Background(), srv.URL)

	if gotUA != "Beacon-Monitor/1.0" {
		t.Errorf("got User-Agent %q, want Beacon-Monitor/1.0", gotUA)
	}
}

func TestCheckNetworkFailureIsDown(t *testing.T) {
	t.Parallel()

	// Refused connection: nothing listens on this port.
	res := New(2*time.Second, 0).Check(context.Background(), "http://127.0.0.1:1")

	if res.Status != models.StatusDown {
		t.Errorf("got status %s, want DOWN", res.Status)
	}
	if res.Err == nil {
		t.Error("expected transport error to be recorded")
	}
	if res.StatusCode != 0 {
		t.Errorf("expected status code 0, got %d", res.StatusCode)
	}
}

func TestCheckFollowsRedirects(t *testing.T) {
	t.Parallel()

	final := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer final.Close()

	hops := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, final.URL, http.StatusFound)
	}))
	defer hops.Close()

	res := New(5*time.Second, 0).Check(context.Background(), hops.URL)
	if res.Status != models.StatusUp {
		t.Errorf("redirect to healthy target should be UP, got %s", res.Status)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("final status should govern, got %d", res.StatusCode)
	}
}

func TestCheckRedirectLoopIsDown(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+fmt.Sprintf("/hop-%d", time.Now().UnixNano()), http.StatusFound)
	}))
	defer srv.Close()

	res := New(5*time.Second, 0).Check(context.Background(), srv.URL)
	if res.Status != models.StatusDown {
		t.Errorf("unbounded redirect chain should be DOWN, got %s", res.Status)
	}
	if res.Err == nil {
		t.Error("expected redirect-limit error to be recorded")
	}
}

func TestCheckTimeoutCapsElapsed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	timeout := 100 * time.Millisecond
	res := New(timeout, 0).Check(context.Background(), srv.URL)

	if res.Status != models.StatusDown {
		t.Errorf("timeout should be DOWN, got %s", res.Status)
	}
	if res.ResponseTime > timeout {
		t.Errorf("elapsed %s exceeds timeout cap %s", res.ResponseTime, timeout)
	}
	if !IsTimeout(res.Err) {
		t.Errorf("expected timeout error, got %v", res.Err)
	}
}

func TestCheckInvalidURL(t *testing.T) {
	t.Parallel()

	res := New(time.Second, 0).Check(context.Background(), "http://[::1]:namedport")
	if res.Status != models.StatusDown {
		t.Errorf("invalid URL should be DOWN, got %s", res.Status)
	}
}
