// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/tablemates/internal/metrics"
	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/group"
)

// GroupResult is a group venue ranking.
type GroupResult struct {
	GroupSize int                         `json:"group_size"`
	Centroid  recommend.Location          `json:"centroid"`
	Venues    []recommend.GroupVenueScore `json:"venues"`
}

// GroupVenues ranks venues for a set of users and returns the top entries
// with a positive group score. Duplicate IDs count once. Unknown IDs are
// skipped when aggregating preferences but still count toward the group
// size, so capacity is checked for everyone invited. An empty set returns
// an empty result.
func (e *Engine) GroupVenues(ctx context.Context, userIDs []int64) (*GroupResult, error) {
	start := time.Now()
	defer func() { metrics.RecommendLatency.WithLabelValues("group").Observe(time.Since(start).Seconds()) }()

	seen := make(map[int64]struct{}, len(userIDs))
	users := make([]recommend.User, 0, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		u, err := e.store.GetUser(ctx, id)
		if errors.Is(err, recommend.ErrNotFound) {
			e.logger.Debug().Int64("user_id", id).Msg("unknown group member skipped")
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if len(seen) == 0 {
		return &GroupResult{Venues: []recommend.GroupVenueScore{}}, nil
	}

	profile := e.group.Aggregate(users)
	profile.Size = len(seen)
	box := profile.BoundingBox()
	venues, err := e.store.ListVenues(ctx, recommend.VenueFilter{
		MinCapacity: profile.Size,
		Within:      &box,
	})
	if err != nil {
		return nil, fmt.Errorf("list group candidates: %w", err)
	}

	return &GroupResult{
		GroupSize: profile.Size,
		Centroid:  profile.Centroid,
		Venues:    group.Top(profile.Rank(venues), e.cfg.Group.ResultLimit),
	}, nil
}
