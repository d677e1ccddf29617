// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package engine

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/tomtom215/tablemates/internal/metrics"
	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/scoring"
)

// CompanionRequest asks for compatible dining companions.
type CompanionRequest struct {
	UserID int64

	// VenueID adds the shared venue interest factor when set.
	VenueID *int64

	Limit int
}

// socialGraph holds the requester's friendships and, per candidate, the
// number of friendships pointing at one of the requester's friends.
type socialGraph struct {
	friends map[int64]struct{}
	mutual  map[int64]int
}

func (e *Engine) loadSocialGraph(ctx context.Context, userID int64) (*socialGraph, error) {
	own, err := e.store.ListFriendships(ctx, recommend.FriendshipFilter{UserIDs: []int64{userID}})
	if err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}
	sg := &socialGraph{
		friends: make(map[int64]struct{}, len(own)),
		mutual:  make(map[int64]int),
	}
	ids := make([]int64, 0, len(own))
	for _, f := range own {
		if _, dup := sg.friends[f.FriendID]; dup {
			continue
		}
		sg.friends[f.FriendID] = struct{}{}
		ids = append(ids, f.FriendID)
	}
	if len(ids) == 0 {
		return sg, nil
	}

	// An empty FriendIDs filter would match every friendship.
	second, err := e.store.ListFriendships(ctx, recommend.FriendshipFilter{FriendIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("list friends of friends: %w", err)
	}
	targets := make(map[int64][]int64)
	for _, f := range second {
		targets[f.UserID] = append(targets[f.UserID], f.FriendID)
	}
	for candidate, friendIDs := range targets {
		sg.mutual[candidate] = scoring.MutualFriendCount(sg.friends, friendIDs)
	}
	return sg, nil
}

func (sg *socialGraph) context(candidate int64) scoring.SocialContext {
	_, friend := sg.friends[candidate]
	return scoring.SocialContext{
		IsFriend:      friend,
		MutualFriends: sg.mutual[candidate],
	}
}

// explicitInterest returns the explicit interest records for a venue.
func (e *Engine) explicitInterest(ctx context.Context, venueID int64) ([]recommend.VenueInterest, error) {
	all, err := e.store.ListVenueInterests(ctx, recommend.RecordFilter{VenueIDs: []int64{venueID}})
	if err != nil {
		return nil, fmt.Errorf("list venue interests: %w", err)
	}
	out := all[:0]
	for _, vi := range all {
		if vi.Explicit {
			out = append(out, vi)
		}
	}
	return out, nil
}

// CompatibleUsers scores every other user against the requester and
// returns those at or above the compatibility threshold, best first. Ties
// keep ascending user ID order.
func (e *Engine) CompatibleUsers(ctx context.Context, req CompanionRequest) ([]recommend.CompatibleUser, error) {
	start := time.Now()
	defer func() { metrics.RecommendLatency.WithLabelValues("companions").Observe(time.Since(start).Seconds()) }()

	limit := e.limit(req.Limit)
	requester, err := e.store.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	sg, err := e.loadSocialGraph(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	var interested map[int64]struct{}
	if req.VenueID != nil {
		if _, err := e.store.GetVenue(ctx, *req.VenueID); err != nil {
			return nil, err
		}
		records, err := e.explicitInterest(ctx, *req.VenueID)
		if err != nil {
			return nil, err
		}
		interested = make(map[int64]struct{}, len(records))
		for _, vi := range records {
			interested[vi.UserID] = struct{}{}
		}
	}

	users, err := e.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	threshold := e.cfg.Scoring.CompatibilityThreshold
	out := make([]recommend.CompatibleUser, 0)
	for i := range users {
		candidate := &users[i]
		if candidate.ID == requester.ID {
			continue
		}
		sc := sg.context(candidate.ID)
		if interested != nil {
			sc.HasTargetVenue = true
			_, sc.SharedInterest = interested[candidate.ID]
		}
		c := e.scorer.Compatibility(requester, candidate, sc)
		if c.Score < threshold {
			continue
		}
		out = append(out, recommend.CompatibleUser{
			User:               *candidate,
			CompatibilityScore: c.Score,
			Reasons:            c.Reasons,
			IsFriend:           sc.IsFriend,
		})
	}

	slices.SortStableFunc(out, func(a, b recommend.CompatibleUser) int {
		switch {
		case a.CompatibilityScore > b.CompatibilityScore:
			return -1
		case a.CompatibilityScore < b.CompatibilityScore:
			return 1
		default:
			return 0
		}
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// InterestedUsers lists users with explicit interest in a venue, newest
// first, excluding the requester. With a requester, each row carries the
// requester's compatibility with that user.
func (e *Engine) InterestedUsers(ctx context.Context, venueID int64, requesterID *int64, limit int) ([]recommend.InterestedUser, error) {
	start := time.Now()
	defer func() { metrics.RecommendLatency.WithLabelValues("interested").Observe(time.Since(start).Seconds()) }()

	if limit <= 0 {
		limit = DefaultInterestedLimit
	}
	if _, err := e.store.GetVenue(ctx, venueID); err != nil {
		return nil, err
	}

	records, err := e.explicitInterest(ctx, venueID)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(records, func(a, b recommend.VenueInterest) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	var requester *recommend.User
	var sg *socialGraph
	if requesterID != nil {
		if requester, err = e.store.GetUser(ctx, *requesterID); err != nil {
			return nil, err
		}
		if sg, err = e.loadSocialGraph(ctx, *requesterID); err != nil {
			return nil, err
		}
	}

	out := make([]recommend.InterestedUser, 0, min(limit, len(records)))
	for _, vi := range records {
		if len(out) == limit {
			break
		}
		if requesterID != nil && vi.UserID == *requesterID {
			continue
		}
		u, err := e.store.GetUser(ctx, vi.UserID)
		if err != nil {
			e.logger.Warn().Err(err).Int64("user_id", vi.UserID).Int64("venue_id", venueID).Msg("skipping interest of unknown user")
			continue
		}
		row := recommend.InterestedUser{
			User:              *u,
			InterestScore:     vi.InterestScore,
			PreferredTimeSlot: vi.PreferredTimeSlot,
			OpenToInvites:     vi.OpenToInvites,
		}
		if requester != nil {
			sc := sg.context(u.ID)
			sc.HasTargetVenue, sc.SharedInterest = true, true
			score := e.scorer.Compatibility(requester, u, sc).Score
			row.Compatibility = &score
		}
		out = append(out, row)
	}
	return out, nil
}

// ExpressInterest records an explicit interest and returns the other users
// interested in the venue, with their compatibility to the requester.
func (e *Engine) ExpressInterest(ctx context.Context, u recommend.InterestUpdate) (*recommend.VenueInterest, []recommend.InterestedUser, error) {
	if _, err := e.store.GetUser(ctx, u.UserID); err != nil {
		return nil, nil, err
	}
	if _, err := e.store.GetVenue(ctx, u.VenueID); err != nil {
		return nil, nil, err
	}

	vi, err := e.store.ExpressInterest(ctx, u)
	if err != nil {
		return nil, nil, fmt.Errorf("express interest: %w", err)
	}

	others, err := e.InterestedUsers(ctx, u.VenueID, &u.UserID, DefaultInterestedLimit)
	if err != nil {
		return vi, nil, err
	}
	return vi, others, nil
}

// RecordInteraction validates and appends an interaction log entry.
func (e *Engine) RecordInteraction(ctx context.Context, in recommend.Interaction) error {
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown interaction type %q", recommend.ErrInvalidConfig, in.Type)
	}
	if in.DurationSeconds != nil && *in.DurationSeconds < 0 {
		return fmt.Errorf("%w: negative duration", recommend.ErrInvalidConfig)
	}
	if _, err := e.store.GetUser(ctx, in.UserID); err != nil {
		return err
	}
	if _, err := e.store.GetVenue(ctx, in.VenueID); err != nil {
		return err
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}
	return e.store.RecordInteraction(ctx, in)
}
