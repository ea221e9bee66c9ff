// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package database

import (
	"context"
	"database/sql"
	"errors"
	"net"

	"github.com/lib/pq"
)

// Sentinel errors callers match with errors.Is. The API layer maps these
// onto the HTTP error taxonomy; the worker uses them to decide whether a
// failed insert should be retried or the job acknowledged as obsolete.
var (
	// ErrNotFound means the requested row does not exist, or exists but
	// is not owned by the requesting user. The two cases are deliberately
	// indistinguishable.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate means a unique constraint was violated.
	ErrDuplicate = errors.New("already exists")

	// ErrForeignKey means a referenced row is gone, typically a tick
	// insert racing a website delete.
	ErrForeignKey = errors.New("referenced row does not exist")

	// ErrUnavailable means the store could not be reached or the
	// operation timed out. Retryable.
	ErrUnavailable = errors.New("store unavailable")
)

// IsNotFound reports whether err carries ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsDuplicate reports whether err carries ErrDuplicate.
func IsDuplicate(err error) bool { return errors.Is(err, ErrDuplicate) }

// IsForeignKey reports whether err carries ErrForeignKey.
func IsForeignKey(err error) bool { return errors.Is(err, ErrForeignKey) }

// IsUnavailable reports whether err carries ErrUnavailable.
func IsUnavailable(err error) bool { return errors.Is(err, ErrUnavailable) }

// Postgres error codes (class 23 = integrity constraint violation,
// class 08 = connection exception).
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
	pqConnectionClass     = "08"
)

// classify maps a driver error to a sentinel, preserving the original via
// error wrapping so logs keep the driver detail.
func classify(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Join(ErrUnavailable, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch {
		case string(pqErr.Code) == pqUniqueViolation:
			return errors.Join(ErrDuplicate, err)
		case string(pqErr.Code) == pqForeignKeyViolation:
			return errors.Join(ErrForeignKey, err)
		case pqErr.Code.Class() == pqConnectionClass:
			return errors.Join(ErrUnavailable, err)
		}
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return errors.Join(ErrUnavailable, err)
	}

	return err
}
