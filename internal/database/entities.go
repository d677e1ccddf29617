// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tablemates/internal/metrics"
	"github.com/tomtom215/tablemates/internal/recommend"
)

const userColumns = `id, name, latitude, longitude, activity_score, open_to_meet, preferences`

const venueColumns = `id, name, category, latitude, longitude, cuisine_type, price_level, rating, popularity_score, trending, capacity`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (recommend.User, error) {
	var (
		u        recommend.User
		lat, lon sql.NullFloat64
		prefs    sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Name, &lat, &lon, &u.ActivityScore, &u.OpenToMeet, &prefs); err != nil {
		return u, err
	}
	if lat.Valid && lon.Valid {
		u.Location = &recommend.Location{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	if prefs.Valid && prefs.String != "" {
		var p recommend.Preferences
		if err := json.Unmarshal([]byte(prefs.String), &p); err != nil {
			return u, fmt.Errorf("decode preferences of user %d: %w", u.ID, err)
		}
		u.Preferences = &p
	}
	return u, nil
}

func scanVenue(row rowScanner) (recommend.Venue, error) {
	var v recommend.Venue
	err := row.Scan(&v.ID, &v.Name, &v.Category, &v.Location.Latitude, &v.Location.Longitude,
		&v.Cuisine, &v.PriceLevel, &v.Rating, &v.Popularity, &v.Trending, &v.Capacity)
	return v, err
}

// GetUser implements recommend.EntityReader.
func (db *DB) GetUser(ctx context.Context, id int64) (*recommend.User, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	u, err := scanUser(db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("select", "users", time.Since(start), nil)
		return nil, fmt.Errorf("user %d: %w", id, recommend.ErrNotFound)
	}
	metrics.RecordDBQuery("select", "users", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &u, nil
}

// GetVenue implements recommend.EntityReader.
func (db *DB) GetVenue(ctx context.Context, id int64) (*recommend.Venue, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	v, err := scanVenue(db.conn.QueryRowContext(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("select", "venues", time.Since(start), nil)
		return nil, fmt.Errorf("venue %d: %w", id, recommend.ErrNotFound)
	}
	metrics.RecordDBQuery("select", "venues", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get venue %d: %w", id, err)
	}
	return &v, nil
}

// ListUsers implements recommend.EntityReader. Users come back in
// ascending ID order.
func (db *DB) ListUsers(ctx context.Context) ([]recommend.User, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		metrics.RecordDBQuery("select", "users", time.Since(start), err)
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var out []recommend.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		out = append(out, u)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select", "users", time.Since(start), err)
	return out, err
}

// ListVenues implements recommend.EntityReader. Venues come back in
// ascending ID order.
func (db *DB) ListVenues(ctx context.Context, f recommend.VenueFilter) ([]recommend.Venue, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	w := venueWhere(f)
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT `+venueColumns+` FROM venues`+w.clause()+` ORDER BY id`, w.args...)
	if err != nil {
		metrics.RecordDBQuery("select", "venues", time.Since(start), err)
		return nil, fmt.Errorf("failed to list venues: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var out []recommend.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan venue: %w", err)
		}
		out = append(out, v)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select", "venues", time.Since(start), err)
	return out, err
}

// UpsertUser inserts or replaces a user snapshot.
func (db *DB) UpsertUser(ctx context.Context, u *recommend.User) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var lat, lon sql.NullFloat64
	if u.Location != nil {
		lat = sql.NullFloat64{Float64: u.Location.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: u.Location.Longitude, Valid: true}
	}
	var prefs sql.NullString
	if u.Preferences != nil {
		b, err := json.Marshal(u.Preferences)
		if err != nil {
			return fmt.Errorf("encode preferences of user %d: %w", u.ID, err)
		}
		prefs = sql.NullString{String: string(b), Valid: true}
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, lat, lon, u.ActivityScore, u.OpenToMeet, prefs)
	metrics.RecordDBQuery("upsert", "users", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %w", u.ID, err)
	}
	return nil
}

// UpsertVenue inserts or replaces a venue snapshot.
func (db *DB) UpsertVenue(ctx context.Context, v *recommend.Venue) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT OR REPLACE INTO venues (`+venueColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Name, v.Category, v.Location.Latitude, v.Location.Longitude,
		v.Cuisine, v.PriceLevel, v.Rating, v.Popularity, v.Trending, v.Capacity)
	metrics.RecordDBQuery("upsert", "venues", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert venue %d: %w", v.ID, err)
	}
	return nil
}
