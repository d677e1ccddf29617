// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package database

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/tomtom215/tablemates/internal/logging"
	"github.com/tomtom215/tablemates/internal/recommend"
)

// SeedDemoData fills an empty database with a small, deterministic demo
// city: users and venues around midtown Manhattan with interactions,
// interests, friendships, and bookings. It does nothing when users exist.
func (db *DB) SeedDemoData(ctx context.Context) error {
	var count int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		logging.Info().Int("users", count).Msg("Database not empty, skipping demo seed")
		return nil
	}

	const (
		numUsers        = 30
		numVenues       = 40
		numInteractions = 300
		numInterests    = 60
		numFriendships  = 45
		numBookings     = 40
	)
	rng := rand.New(rand.NewSource(42)) //nolint:gosec // demo data only

	names := []string{
		"Alice", "Bob", "Carmen", "Dev", "Emma", "Farid", "Grace", "Hiro", "Ines", "Jack",
		"Kemi", "Liam", "Mia", "Noor", "Oscar", "Priya", "Quinn", "Rosa", "Sam", "Tara",
		"Uma", "Victor", "Wen", "Xavi", "Yara", "Zane", "Ada", "Ben", "Cleo", "Dario",
	}
	cuisines := []string{"italian", "japanese", "mexican", "french", "indian", "american", "thai", "korean"}
	categories := []string{"restaurant", "bar", "cafe"}
	ambiance := []string{"casual", "romantic", "trendy", "quiet", "lively"}
	slots := []string{"brunch", "lunch", "dinner", "late"}
	center := recommend.Location{Latitude: 40.7580, Longitude: -73.9855}

	jitter := func(spread float64) recommend.Location {
		return recommend.Location{
			Latitude:  center.Latitude + (rng.Float64()*2-1)*spread,
			Longitude: center.Longitude + (rng.Float64()*2-1)*spread,
		}
	}
	pick := func(from []string, n int) []string {
		out := make([]string, 0, n)
		for _, i := range rng.Perm(len(from))[:n] {
			out = append(out, from[i])
		}
		return out
	}

	for i := 0; i < numUsers; i++ {
		loc := jitter(0.05)
		priceMin := 1 + rng.Intn(2)
		u := recommend.User{
			ID:            int64(i + 1),
			Name:          names[i%len(names)],
			Location:      &loc,
			ActivityScore: rng.Float64(),
			OpenToMeet:    rng.Float64() < 0.7,
			Preferences: &recommend.Preferences{
				Cuisines:      pick(cuisines, 1+rng.Intn(3)),
				PriceMin:      priceMin,
				PriceMax:      priceMin + 1 + rng.Intn(2),
				Ambiance:      pick(ambiance, 1+rng.Intn(2)),
				MaxDistanceKm: 5 + float64(rng.Intn(4))*5,
			},
		}
		if err := db.UpsertUser(ctx, &u); err != nil {
			return err
		}
	}

	for i := 0; i < numVenues; i++ {
		v := recommend.Venue{
			ID:         int64(i + 1),
			Name:       fmt.Sprintf("Venue %d", i+1),
			Category:   categories[rng.Intn(len(categories))],
			Location:   jitter(0.08),
			Cuisine:    cuisines[rng.Intn(len(cuisines))],
			PriceLevel: 1 + rng.Intn(4),
			Rating:     3 + float64(rng.Intn(21))/10,
			Popularity: rng.Float64(),
			Trending:   rng.Float64() < 0.2,
			Capacity:   4 + rng.Intn(60),
		}
		if err := db.UpsertVenue(ctx, &v); err != nil {
			return err
		}
	}

	types := []recommend.InteractionType{
		recommend.InteractionView, recommend.InteractionView, recommend.InteractionView,
		recommend.InteractionLike, recommend.InteractionSave, recommend.InteractionShare, recommend.InteractionReview,
	}
	now := time.Now().UTC()
	for i := 0; i < numInteractions; i++ {
		in := recommend.Interaction{
			UserID:    int64(1 + rng.Intn(numUsers)),
			VenueID:   int64(1 + rng.Intn(numVenues)),
			Type:      types[rng.Intn(len(types))],
			CreatedAt: now.Add(-time.Duration(rng.Intn(30*24)) * time.Hour),
		}
		if in.Type == recommend.InteractionView {
			d := 10 + rng.Intn(300)
			in.DurationSeconds = &d
		}
		if err := db.RecordInteraction(ctx, in); err != nil {
			return err
		}
	}

	for i := 0; i < numInterests; i++ {
		open := rng.Float64() < 0.8
		if _, err := db.ExpressInterest(ctx, recommend.InterestUpdate{
			UserID:            int64(1 + rng.Intn(numUsers)),
			VenueID:           int64(1 + rng.Intn(numVenues)),
			PreferredTimeSlot: slots[rng.Intn(len(slots))],
			OpenToInvites:     &open,
		}); err != nil {
			return err
		}
	}

	for i := 0; i < numFriendships; i++ {
		a, b := int64(1+rng.Intn(numUsers)), int64(1+rng.Intn(numUsers))
		if a == b {
			continue
		}
		for _, f := range []recommend.Friendship{{UserID: a, FriendID: b}, {UserID: b, FriendID: a}} {
			if err := db.AddFriendship(ctx, f); err != nil {
				return err
			}
		}
	}

	statuses := []string{"pending", "confirmed", "completed", "cancelled"}
	for i := 0; i < numBookings; i++ {
		b := recommend.Booking{UserID: int64(1 + rng.Intn(numUsers)), VenueID: int64(1 + rng.Intn(numVenues))}
		at := now.Add(time.Duration(rng.Intn(14*24)-7*24) * time.Hour)
		if err := db.AddBooking(ctx, b, 2+rng.Intn(5), at, statuses[rng.Intn(len(statuses))]); err != nil {
			return err
		}
	}

	logging.Info().
		Int("users", numUsers).
		Int("venues", numVenues).
		Int("interactions", numInteractions).
		Msg("Seeded demo data")
	return nil
}
