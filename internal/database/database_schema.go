// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

/*
database_schema.go - Database Schema Management

Tables:
  - users: attribute snapshot, with preferences stored as a JSON document
  - venues: attribute snapshot
  - user_interactions: append-only interaction log
  - venue_interests: one active interest row per (user, venue)
  - bookings: booking history
  - friendships: directed friendship edges

All columns are defined in the initial CREATE TABLE statements; there are
no migrations yet.
*/

//nolint:staticcheck // File documentation, not package doc
package database

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	for _, query := range indexCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}

var tableCreationQueries = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		latitude DOUBLE,
		longitude DOUBLE,
		activity_score DOUBLE NOT NULL DEFAULT 0.5,
		open_to_meet BOOLEAN NOT NULL DEFAULT TRUE,
		preferences TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE TABLE IF NOT EXISTS venues (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		cuisine_type TEXT NOT NULL DEFAULT '',
		price_level INTEGER NOT NULL DEFAULT 2,
		rating DOUBLE NOT NULL DEFAULT 4.0,
		popularity_score DOUBLE NOT NULL DEFAULT 0.5,
		trending BOOLEAN NOT NULL DEFAULT FALSE,
		capacity INTEGER NOT NULL DEFAULT 50,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,

	`CREATE SEQUENCE IF NOT EXISTS user_interactions_id_seq START 1`,

	`CREATE TABLE IF NOT EXISTS user_interactions (
		id BIGINT PRIMARY KEY DEFAULT nextval('user_interactions_id_seq'),
		user_id BIGINT NOT NULL,
		venue_id BIGINT,
		interaction_type TEXT NOT NULL,
		duration_seconds INTEGER,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS venue_interests (
		user_id BIGINT NOT NULL,
		venue_id BIGINT NOT NULL,
		interest_score DOUBLE NOT NULL DEFAULT 0.5,
		explicitly_interested BOOLEAN NOT NULL DEFAULT FALSE,
		preferred_time_slot TEXT NOT NULL DEFAULT '',
		open_to_invites BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		PRIMARY KEY (user_id, venue_id)
	)`,

	`CREATE SEQUENCE IF NOT EXISTS bookings_id_seq START 1`,

	`CREATE TABLE IF NOT EXISTS bookings (
		id BIGINT PRIMARY KEY DEFAULT nextval('bookings_id_seq'),
		user_id BIGINT NOT NULL,
		venue_id BIGINT NOT NULL,
		party_size INTEGER NOT NULL DEFAULT 2,
		booking_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending'
	)`,

	`CREATE TABLE IF NOT EXISTS friendships (
		user_id BIGINT NOT NULL,
		friend_id BIGINT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, friend_id)
	)`,
}

var indexCreationQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_venues_category ON venues(category)`,
	`CREATE INDEX IF NOT EXISTS idx_venues_location ON venues(latitude, longitude)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_user ON user_interactions(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_interactions_venue ON user_interactions(venue_id)`,
	`CREATE INDEX IF NOT EXISTS idx_interests_venue ON venue_interests(venue_id)`,
	`CREATE INDEX IF NOT EXISTS idx_bookings_user ON bookings(user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_friendships_friend ON friendships(friend_id)`,
}
