// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package api

import (
	"context"
	"errors"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/beacon-watch/beacon/internal/database"
	"github.com/beacon-watch/beacon/internal/logging"
	"github.com/beacon-watch/beacon/internal/models"
	"github.com/beacon-watch/beacon/internal/validation"
)

// Machine-readable error codes carried in the error envelope.
const (
	CodeBadRequest         = "BAD_REQUEST"
	CodeValidationError    = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeUserExists         = "USER_EXISTS"
	CodeWebsiteExists      = "WEBSITE_EXISTS"
	CodeNotFound           = "NOT_FOUND"
	CodeNoStatus           = "NO_STATUS"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeStoreUnavailable   = "STORE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"
)

// respondJSON writes a JSON body with the given status.
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("failed to encode response")
	}
}

// respondError writes the error envelope.
func respondError(w http.ResponseWriter, status int, message, code string) {
	respondJSON(w, status, models.APIError{Error: message, Code: code})
}

// respondValidationError writes a 400 with per-field details.
func respondValidationError(w http.ResponseWriter, ve *validation.RequestValidationError) {
	apiErr := ve.ToAPIError()
	respondJSON(w, http.StatusBadRequest, models.APIError{
		Error:   apiErr.Message,
		Code:    apiErr.Code,
		Details: apiErr.Details,
	})
}

// respondStoreError maps database sentinels onto the response taxonomy.
// Ownership misses surface as plain 404s so the API never leaks whether a
// resource exists under another account.
func respondStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case database.IsNotFound(err):
		respondError(w, http.StatusNotFound, "Resource not found", CodeNotFound)
	case database.IsDuplicate(err):
		respondError(w, http.StatusConflict, "Resource already exists", "CONFLICT")
	case database.IsUnavailable(err):
		logging.Ctx(r.Context()).Error().Err(err).Msg("store unavailable")
		respondError(w, http.StatusServiceUnavailable, "Service temporarily unavailable", CodeStoreUnavailable)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "Request timed out", CodeTimeout)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("unhandled store error")
		respondError(w, http.StatusInternalServerError, "Internal server error", CodeInternalError)
	}
}
