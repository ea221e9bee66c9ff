// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package api

import (
	"fmt"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/beacon-watch/beacon/internal/validation"
)

// maxBodyBytes caps request bodies; the API only ever receives small JSON
// documents.
const maxBodyBytes = 64 * 1024

// History pagination bounds.
const (
	historyDefaultLimit = 50
	historyMaxLimit     = 100
)

// SignupRequest creates an account.
type SignupRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// SigninRequest exchanges credentials for a token.
type SigninRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// CreateWebsiteRequest registers a website for monitoring.
type CreateWebsiteRequest struct {
	URL      string `json:"url" validate:"required,monitor_url"`
	IsActive *bool  `json:"isActive"`
}

// UpdateWebsiteRequest partially updates a website. Nil fields are left
// unchanged.
type UpdateWebsiteRequest struct {
	URL      *string `json:"url" validate:"omitempty,monitor_url"`
	IsActive *bool   `json:"isActive"`
}

// decodeAndValidate parses the JSON body into dst and runs struct
// validation. Writes the error response itself and reports success.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON body", CodeBadRequest)
		return false
	}

	if ve := validation.ValidateStruct(dst); ve != nil {
		respondValidationError(w, ve)
		return false
	}
	return true
}

// parsePagination reads limit and offset query parameters with history
// defaults. Out-of-range values are rejected rather than clamped.
func parsePagination(r *http.Request) (limit, offset int, err error) {
	limit, offset = historyDefaultLimit, 0

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > historyMaxLimit {
			return 0, 0, fmt.Errorf("limit must be an integer between 1 and %d", historyMaxLimit)
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err = strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}
