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

	"github.com/tomtom215/tablemates/internal/logging"
	"github.com/tomtom215/tablemates/internal/metrics"
	"github.com/tomtom215/tablemates/internal/recommend"
)

// maxConflictRetries bounds retries of a write transaction that lost an
// optimistic concurrency race.
const maxConflictRetries = 3

// ListInteractions implements recommend.InteractionReader. Entries without
// a venue are skipped.
func (db *DB) ListInteractions(ctx context.Context, f recommend.RecordFilter) ([]recommend.Interaction, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	w := recordWhere(f)
	w.add("venue_id IS NOT NULL")
	query := `SELECT user_id, venue_id, interaction_type, duration_seconds, created_at
		FROM user_interactions` + w.clause() + ` ORDER BY created_at, id`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, w.args...)
	if err != nil {
		metrics.RecordDBQuery("select", "user_interactions", time.Since(start), err)
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var out []recommend.Interaction
	for rows.Next() {
		var (
			in       recommend.Interaction
			typ      string
			duration sql.NullInt64
		)
		if err := rows.Scan(&in.UserID, &in.VenueID, &typ, &duration, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		in.Type = recommend.InteractionType(typ)
		if duration.Valid {
			d := int(duration.Int64)
			in.DurationSeconds = &d
		}
		out = append(out, in)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select", "user_interactions", time.Since(start), err)
	return out, err
}

// ListVenueInterests implements recommend.InterestReader.
func (db *DB) ListVenueInterests(ctx context.Context, f recommend.RecordFilter) ([]recommend.VenueInterest, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	w := recordWhere(f)
	query := `SELECT ` + interestColumns + ` FROM venue_interests` + w.clause() + ` ORDER BY created_at, user_id, venue_id`

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, query, w.args...)
	if err != nil {
		metrics.RecordDBQuery("select", "venue_interests", time.Since(start), err)
		return nil, fmt.Errorf("failed to list venue interests: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var out []recommend.VenueInterest
	for rows.Next() {
		vi, err := scanInterest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan venue interest: %w", err)
		}
		out = append(out, vi)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select", "venue_interests", time.Since(start), err)
	return out, err
}

// ListBookings implements recommend.BookingReader. Every booking counts,
// whatever its status.
func (db *DB) ListBookings(ctx context.Context, f recommend.RecordFilter) ([]recommend.Booking, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	w := recordWhere(f)
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT user_id, venue_id FROM bookings`+w.clause()+` ORDER BY id`, w.args...)
	if err != nil {
		metrics.RecordDBQuery("select", "bookings", time.Since(start), err)
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var out []recommend.Booking
	for rows.Next() {
		var b recommend.Booking
		if err := rows.Scan(&b.UserID, &b.VenueID); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		out = append(out, b)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select", "bookings", time.Since(start), err)
	return out, err
}

// ListFriendships implements recommend.FriendshipReader.
func (db *DB) ListFriendships(ctx context.Context, f recommend.FriendshipFilter) ([]recommend.Friendship, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	w := &whereBuilder{}
	w.in("user_id", f.UserIDs)
	w.in("friend_id", f.FriendIDs)

	start := time.Now()
	rows, err := db.conn.QueryContext(ctx, `SELECT user_id, friend_id FROM friendships`+w.clause()+` ORDER BY user_id, friend_id`, w.args...)
	if err != nil {
		metrics.RecordDBQuery("select", "friendships", time.Since(start), err)
		return nil, fmt.Errorf("failed to list friendships: %w", err)
	}
	defer closeWithLog(rows, "rows")

	var out []recommend.Friendship
	for rows.Next() {
		var fr recommend.Friendship
		if err := rows.Scan(&fr.UserID, &fr.FriendID); err != nil {
			return nil, fmt.Errorf("failed to scan friendship: %w", err)
		}
		out = append(out, fr)
	}
	err = rows.Err()
	metrics.RecordDBQuery("select", "friendships", time.Since(start), err)
	return out, err
}

// RecordInteraction implements recommend.InteractionWriter.
func (db *DB) RecordInteraction(ctx context.Context, in recommend.Interaction) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var duration sql.NullInt64
	if in.DurationSeconds != nil {
		duration = sql.NullInt64{Int64: int64(*in.DurationSeconds), Valid: true}
	}
	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO user_interactions (user_id, venue_id, interaction_type, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?)`, in.UserID, in.VenueID, string(in.Type), duration, createdAt)
	metrics.RecordDBQuery("insert", "user_interactions", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}
	return nil
}

// ExpressInterest implements recommend.InterestWriter. The interest upsert
// and the save interaction commit together; a transaction conflict with a
// concurrent writer is retried.
func (db *DB) ExpressInterest(ctx context.Context, u recommend.InterestUpdate) (*recommend.VenueInterest, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	var lastErr error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		vi, err := db.expressInterestTx(ctx, u)
		if err == nil {
			return vi, nil
		}
		if !isTransactionConflict(err) {
			return nil, err
		}
		lastErr = err
		logging.Warn().Err(err).Int("attempt", attempt+1).Int64("user_id", u.UserID).Int64("venue_id", u.VenueID).
			Msg("Interest upsert conflicted, retrying")
	}
	return nil, fmt.Errorf("express interest failed after %d attempts: %w", maxConflictRetries, lastErr)
}

func (db *DB) expressInterestTx(ctx context.Context, u recommend.InterestUpdate) (vi *recommend.VenueInterest, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("upsert", "venue_interests", time.Since(start), err) }()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Transaction rollback failed")
			}
		}
	}()

	var existing *recommend.VenueInterest
	row := tx.QueryRowContext(ctx, `SELECT `+interestColumns+` FROM venue_interests WHERE user_id = ? AND venue_id = ?`, u.UserID, u.VenueID)
	cur, scanErr := scanInterest(row)
	switch {
	case scanErr == nil:
		existing = &cur
	case !errors.Is(scanErr, sql.ErrNoRows):
		return nil, fmt.Errorf("failed to read venue interest: %w", scanErr)
	}

	now := time.Now().UTC()
	next := recommend.ApplyInterest(existing, u, now)

	if existing == nil {
		_, err = tx.ExecContext(ctx, `INSERT INTO venue_interests
			(user_id, venue_id, interest_score, explicitly_interested, preferred_time_slot, open_to_invites, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			next.UserID, next.VenueID, next.InterestScore, next.Explicit, next.PreferredTimeSlot, next.OpenToInvites, next.CreatedAt, now)
	} else {
		_, err = tx.ExecContext(ctx, `UPDATE venue_interests
			SET interest_score = ?, explicitly_interested = ?, preferred_time_slot = ?, open_to_invites = ?, updated_at = ?
			WHERE user_id = ? AND venue_id = ?`,
			next.InterestScore, next.Explicit, next.PreferredTimeSlot, next.OpenToInvites, now, next.UserID, next.VenueID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write venue interest: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO user_interactions (user_id, venue_id, interaction_type, created_at) VALUES (?, ?, ?, ?)`,
		u.UserID, u.VenueID, string(recommend.InteractionSave), now); err != nil {
		return nil, fmt.Errorf("failed to record save interaction: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &next, nil
}

const interestColumns = `user_id, venue_id, interest_score, explicitly_interested, preferred_time_slot, open_to_invites, created_at`

func scanInterest(row rowScanner) (recommend.VenueInterest, error) {
	var vi recommend.VenueInterest
	err := row.Scan(&vi.UserID, &vi.VenueID, &vi.InterestScore, &vi.Explicit, &vi.PreferredTimeSlot, &vi.OpenToInvites, &vi.CreatedAt)
	return vi, err
}

// AddFriendship stores a directed friendship edge. Existing edges are kept.
func (db *DB) AddFriendship(ctx context.Context, f recommend.Friendship) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO friendships (user_id, friend_id) VALUES (?, ?) ON CONFLICT DO NOTHING`, f.UserID, f.FriendID)
	metrics.RecordDBQuery("insert", "friendships", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to add friendship: %w", err)
	}
	return nil
}

// AddBooking stores a booking.
func (db *DB) AddBooking(ctx context.Context, b recommend.Booking, partySize int, at time.Time, status string) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	_, err := db.conn.ExecContext(ctx, `INSERT INTO bookings (user_id, venue_id, party_size, booking_time, status) VALUES (?, ?, ?, ?, ?)`,
		b.UserID, b.VenueID, partySize, at, status)
	metrics.RecordDBQuery("insert", "bookings", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to add booking: %w", err)
	}
	return nil
}
