// Beacon - Multi-Region Website Uptime Monitoring
// Copyright 2026 Beacon Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/beacon-watch/beacon

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/beacon-watch/beacon/internal/models"
)

// CreateUser inserts a new account. The password must already be hashed.
// Returns ErrDuplicate when the username is taken.
func (db *DB) CreateUser(ctx context.Context, username, passwordHash, email string) (*models.User, error) {
	user := &models.User{
		ID:       uuid.New().String(),
		Username: username,
		Password: passwordHash,
		Email:    email,
	}

	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (id, username, password, email)
		 VALUES ($1, $2, $3, NULLIF($4, ''))
		 RETURNING created_at`,
		user.ID, user.Username, user.Password, user.Email,
	).Scan(&user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user %q: %w", username, classify(err))
	}

	return user, nil
}

// GetUserByUsername fetches a user for credential verification.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	user := &models.User{}
	var email sql.NullString

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, password, email, created_at
		 FROM users WHERE username = $1`,
		username,
	).Scan(&user.ID, &user.Username, &user.Password, &email, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %q: %w", username, classify(err))
	}

	user.Email = email.String
	return user, nil
}

// GetUserByID fetches a user by primary key.
func (db *DB) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	var email sql.NullString

	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, password, email, created_at
		 FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Username, &user.Password, &email, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %s: %w", id, classify(err))
	}

	user.Email = email.String
	return user, nil
}

// CountActiveWebsites returns the number of active websites a user owns.
func (db *DB) CountActiveWebsites(ctx context.Context, userID string) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM websites WHERE user_id = $1 AND is_active`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count websites for user %s: %w", userID, classify(err))
	}
	return count, nil
}
