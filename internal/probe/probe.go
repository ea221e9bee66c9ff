// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

// Package probe performs the HTTP availability checks workers run against
// monitored websites.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/beacon-watch/beacon/internal/models"
)

const (
	// userAgent identifies Beacon probes to target servers.
	userAgent = "Beacon-Monitor/1.0"

	// maxRedirects bounds redirect chains; the final hop's status governs
	// classification.
	maxRedirects = 5

	// maxDrainBytes caps how much of a response body is read before
	// discarding, enough to let connections be reused.
	maxDrainBytes = 64 * 1024
)

// Result is one completed probe observation.
type Result struct {
	// Status is UP or DOWN.
	Status string

	// ResponseTime is wall time from request start to response headers,
	// capped at the configured timeout.
	ResponseTime time.Duration

	// StatusCode is the final HTTP status, 0 on network failure.
	StatusCode int

	// Err is the transport error for DOWN-by-network results, nil
	// otherwise. Recorded for logging only; a probe never fails.
	Err error
}

// Prober checks website availability over HTTP. Safe for concurrent use.
type Prober struct {
	client  *http.Client
	timeout time.Duration
	limiter *rate.Limiter
}

// New creates a prober with the given total per-probe timeout and an
// optional outbound rate cap (probesPerSecond <= 0 disables the cap).
func New(timeout time.Duration, probesPerSecond float64) *Prober {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var limiter *rate.Limiter
	if probesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(probesPerSecond), int(probesPerSecond)+1)
	}

	return &Prober{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		timeout: timeout,
		limiter: limiter,
	}
}

// Check probes url once. It always returns a result: any failure to obtain
// an HTTP status is a DOWN observation with the elapsed time, never an
// error to the caller.
func (p *Prober) Check(ctx context.Context, url string) Result {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return Result{Status: models.StatusDown, Err: err}
		}
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Result{
			Status:       models.StatusDown,
			ResponseTime: p.capElapsed(time.Since(start)),
			Err:          err,
		}
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	elapsed := p.capElapsed(time.Since(start))
	if err != nil {
		// Redirect-limit errors surface through url.Error; the chain
		// never resolved to a final status, so the site is DOWN.
		return Result{Status: models.StatusDown, ResponseTime: elapsed, Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainBytes))
		_ = resp.Body.Close()
	}()

	return Result{
		Status:       Classify(resp.StatusCode),
		ResponseTime: elapsed,
		StatusCode:   resp.StatusCode,
	}
}

// Classify maps a final HTTP status code to UP or DOWN. Client errors are
// UP: the server answered, which is what reachability measures.
func Classify(statusCode int) string {
	if statusCode >= 200 && statusCode < 500 {
		return models.StatusUp
	}
	return models.StatusDown
}

// capElapsed bounds recorded response time at the probe timeout so a slow
// DNS layer cannot report impossible values.
func (p *Prober) capElapsed(elapsed time.Duration) time.Duration {
	if elapsed > p.timeout {
		return p.timeout
	}
	return elapsed
}

// IsTimeout reports whether a probe error was a timeout rather than a
// refused or unreachable host. Used only for log detail.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
