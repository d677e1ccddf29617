// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package recordtest provides an in-memory record store for tests of the
// graph, trainer, and serving layers.
package recordtest

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/tomtom215/tablemates/internal/recommend"
)

// Store is an in-memory implementation of the recommend reader interfaces.
// The zero value is ready to use.
type Store struct {
	mu sync.RWMutex

	Users        []recommend.User
	Venues       []recommend.Venue
	Interactions []recommend.Interaction
	Interests    []recommend.VenueInterest
	Bookings     []recommend.Booking
	Friendships  []recommend.Friendship

	// Err, when set, is returned by every read and write.
	Err error

	// Now stamps written records. Defaults to time.Now.
	Now func() time.Time
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

var (
	_ recommend.RecordSource      = (*Store)(nil)
	_ recommend.EntityReader      = (*Store)(nil)
	_ recommend.InteractionWriter = (*Store)(nil)
	_ recommend.InterestWriter    = (*Store)(nil)
)

func in(ids []int64, id int64) bool {
	return len(ids) == 0 || slices.Contains(ids, id)
}

// ListInteractions implements recommend.InteractionReader.
func (s *Store) ListInteractions(_ context.Context, f recommend.RecordFilter) ([]recommend.Interaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []recommend.Interaction
	for _, r := range s.Interactions {
		if in(f.UserIDs, r.UserID) && in(f.VenueIDs, r.VenueID) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListVenueInterests implements recommend.InterestReader.
func (s *Store) ListVenueInterests(_ context.Context, f recommend.RecordFilter) ([]recommend.VenueInterest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []recommend.VenueInterest
	for _, r := range s.Interests {
		if in(f.UserIDs, r.UserID) && in(f.VenueIDs, r.VenueID) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListBookings implements recommend.BookingReader.
func (s *Store) ListBookings(_ context.Context, f recommend.RecordFilter) ([]recommend.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []recommend.Booking
	for _, r := range s.Bookings {
		if in(f.UserIDs, r.UserID) && in(f.VenueIDs, r.VenueID) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListFriendships implements recommend.FriendshipReader.
func (s *Store) ListFriendships(_ context.Context, f recommend.FriendshipFilter) ([]recommend.Friendship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []recommend.Friendship
	for _, r := range s.Friendships {
		if in(f.UserIDs, r.UserID) && in(f.FriendIDs, r.FriendID) {
			out = append(out, r)
		}
	}
	return out, nil
}

// GetUser implements recommend.EntityReader.
func (s *Store) GetUser(_ context.Context, id int64) (*recommend.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for i := range s.Users {
		if s.Users[i].ID == id {
			u := s.Users[i]
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user %d: %w", id, recommend.ErrNotFound)
}

// GetVenue implements recommend.EntityReader.
func (s *Store) GetVenue(_ context.Context, id int64) (*recommend.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	for i := range s.Venues {
		if s.Venues[i].ID == id {
			v := s.Venues[i]
			return &v, nil
		}
	}
	return nil, fmt.Errorf("venue %d: %w", id, recommend.ErrNotFound)
}

// ListUsers implements recommend.EntityReader. Users are returned in
// ascending ID order.
func (s *Store) ListUsers(_ context.Context) ([]recommend.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := slices.Clone(s.Users)
	slices.SortFunc(out, func(a, b recommend.User) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// ListVenues implements recommend.EntityReader. Venues are returned in
// ascending ID order.
func (s *Store) ListVenues(_ context.Context, f recommend.VenueFilter) ([]recommend.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []recommend.Venue
	for _, v := range s.Venues {
		if f.Category != "" && v.Category != f.Category {
			continue
		}
		if v.Rating < f.MinRating || v.Capacity < f.MinCapacity {
			continue
		}
		if f.Within != nil && !f.Within.Contains(v.Location) {
			continue
		}
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b recommend.Venue) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

// Interact appends an interaction without a duration.
func (s *Store) Interact(user, venue int64, t recommend.InteractionType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Interactions = append(s.Interactions, recommend.Interaction{UserID: user, VenueID: venue, Type: t})
}

// RecordInteraction implements recommend.InteractionWriter.
func (s *Store) RecordInteraction(_ context.Context, r recommend.Interaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.Interactions = append(s.Interactions, r)
	return nil
}

// ExpressInterest implements recommend.InterestWriter.
func (s *Store) ExpressInterest(_ context.Context, u recommend.InterestUpdate) (*recommend.VenueInterest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	now := s.now()
	idx := slices.IndexFunc(s.Interests, func(vi recommend.VenueInterest) bool {
		return vi.UserID == u.UserID && vi.VenueID == u.VenueID
	})
	var vi recommend.VenueInterest
	if idx < 0 {
		vi = recommend.ApplyInterest(nil, u, now)
		s.Interests = append(s.Interests, vi)
	} else {
		vi = recommend.ApplyInterest(&s.Interests[idx], u, now)
		s.Interests[idx] = vi
	}
	s.Interactions = append(s.Interactions, recommend.Interaction{
		UserID: u.UserID, VenueID: u.VenueID, Type: recommend.InteractionSave, CreatedAt: now,
	})
	return &vi, nil
}
