// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package api

import (
	"net/http"

	"github.com/beacon-watch/beacon/internal/auth"
	"github.com/beacon-watch/beacon/internal/database"
	"github.com/beacon-watch/beacon/internal/logging"
	"github.com/beacon-watch/beacon/internal/middleware"
	"github.com/beacon-watch/beacon/internal/models"
)

// Signup creates an account. Usernames are unique; a taken name yields
// 409 USER_EXISTS.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("password hash failed")
		respondError(w, http.StatusInternalServerError, "Internal server error", CodeInternalError)
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Username, hash, req.Email)
	if err != nil {
		if database.IsDuplicate(err) {
			respondError(w, http.StatusConflict, "Username already taken", CodeUserExists)
			return
		}
		respondStoreError(w, r, err)
		return
	}

	logging.Ctx(r.Context()).Info().Str("username", user.Username).Msg("account created")
	respondJSON(w, http.StatusCreated, user)
}

// Signin verifies credentials and issues a session token. A missing user
// and a wrong password are indistinguishable to the caller.
func (h *Handler) Signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.store.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if database.IsNotFound(err) {
			respondError(w, http.StatusUnauthorized, "Invalid username or password", CodeInvalidCredentials)
			return
		}
		respondStoreError(w, r, err)
		return
	}

	if !auth.VerifyPassword(user.Password, req.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid username or password", CodeInvalidCredentials)
		return
	}

	token, err := h.jwt.GenerateToken(user.ID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("token generation failed")
		respondError(w, http.StatusInternalServerError, "Internal server error", CodeInternalError)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"jwt":  token,
		"user": user,
	})
}

// Profile returns the authenticated user's account view with the active
// website count.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	count, err := h.store.CountActiveWebsites(r.Context(), userID)
	if err != nil {
		respondStoreError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, models.Profile{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		CreatedAt:    user.CreatedAt,
		WebsiteCount: count,
	})
}
