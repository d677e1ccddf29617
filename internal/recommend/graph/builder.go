// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package graph builds the bipartite user-venue graph, with an optional
// user-user friendship layer, from persisted activity records.
//
// Edge multiplicity encodes signal strength: each (user, venue) pair with
// aggregate weight w contributes min(floor(w), 10) parallel edges, at least
// one when w > 0. Index assignment sorts entity IDs ascending so that two
// builds over identical records agree exactly.
package graph

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/rs/zerolog"

	"github.com/tomtom215/tablemates/internal/recommend"
)

const (
	// MaxEdgesPerPair caps the multiplicity of a single (user, venue) pair.
	MaxEdgesPerPair = 10

	// maxViewDurationBonus caps the dwell-time bonus of a view, in weight units.
	maxViewDurationBonus = 2.0

	explicitInterestWeight = 5.0
	implicitInterestScale  = 3.0
	bookingWeight          = 10.0
)

// Config controls which records become graph nodes and edges.
type Config struct {
	MinInteractions    int
	IncludeFriendships bool
}

// Builder converts activity records into a Graph.
type Builder struct {
	source recommend.RecordSource
	logger zerolog.Logger
}

// NewBuilder creates a graph builder reading from source.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func NewBuilder(source recommend.RecordSource, logger zerolog.Logger) *Builder {
	return &Builder{
		source: source,
		logger: logger.With().Str("component", "graph").Logger(),
	}
}

type pairKey struct {
	user, venue int64
}

// Build reads the current records and produces the graph. An empty active
// user or venue set yields an empty graph, not an error.
func (b *Builder) Build(ctx context.Context, cfg Config) (*Graph, error) {
	interactions, err := b.source.ListInteractions(ctx, recommend.RecordFilter{})
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	interests, err := b.source.ListVenueInterests(ctx, recommend.RecordFilter{})
	if err != nil {
		return nil, fmt.Errorf("list venue interests: %w", err)
	}

	userIDs, venueIDs := activeEntities(interactions, interests, cfg.MinInteractions)
	meta := NewMetadata(userIDs, venueIDs)
	if meta.NumUsers == 0 || meta.NumVenues == 0 {
		b.logger.Info().
			Int("users", meta.NumUsers).
			Int("venues", meta.NumVenues).
			Msg("no active users or venues, returning empty graph")
		return &Graph{Meta: NewMetadata(nil, nil)}, nil
	}

	bookings, err := b.source.ListBookings(ctx, recommend.RecordFilter{UserIDs: meta.UserIDs, VenueIDs: meta.VenueIDs})
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	weights := aggregateWeights(meta, interactions, interests, bookings)

	g := &Graph{Meta: meta}
	g.Edges = pairEdges(meta, weights)

	if cfg.IncludeFriendships {
		friendships, err := b.source.ListFriendships(ctx, recommend.FriendshipFilter{UserIDs: meta.UserIDs, FriendIDs: meta.UserIDs})
		if err != nil {
			return nil, fmt.Errorf("list friendships: %w", err)
		}
		before := len(g.Edges)
		g.Edges = appendFriendshipEdges(g.Edges, meta, friendships)
		meta.FriendshipEdges = len(g.Edges) - before
	}
	meta.EdgeCount = len(g.Edges)

	b.logger.Info().
		Int("users", meta.NumUsers).
		Int("venues", meta.NumVenues).
		Int("pairs", len(weights)).
		Int("edges", meta.EdgeCount).
		Int("friendship_edges", meta.FriendshipEdges).
		Msg("graph built")

	return g, nil
}

// activeEntities returns the users and venues that reach the interaction
// threshold or carry any interest record.
func activeEntities(interactions []recommend.Interaction, interests []recommend.VenueInterest, minInteractions int) (users, venues []int64) {
	userCounts := make(map[int64]int)
	venueCounts := make(map[int64]int)
	for i := range interactions {
		userCounts[interactions[i].UserID]++
		venueCounts[interactions[i].VenueID]++
	}

	userSet := make(map[int64]struct{})
	venueSet := make(map[int64]struct{})
	for id, n := range userCounts {
		if n >= minInteractions {
			userSet[id] = struct{}{}
		}
	}
	for id, n := range venueCounts {
		if n >= minInteractions {
			venueSet[id] = struct{}{}
		}
	}
	for i := range interests {
		userSet[interests[i].UserID] = struct{}{}
		venueSet[interests[i].VenueID] = struct{}{}
	}

	users = make([]int64, 0, len(userSet))
	for id := range userSet {
		users = append(users, id)
	}
	venues = make([]int64, 0, len(venueSet))
	for id := range venueSet {
		venues = append(venues, id)
	}
	return users, venues
}

// InteractionWeight returns the graph weight of a single interaction,
// including the view dwell-time bonus.
func InteractionWeight(in recommend.Interaction) float64 {
	w := in.Type.Weight()
	if in.Type == recommend.InteractionView && in.DurationSeconds != nil {
		w += math.Min(float64(*in.DurationSeconds)/60.0, maxViewDurationBonus)
	}
	return w
}

// InterestWeight returns the graph weight of an interest record.
func InterestWeight(vi recommend.VenueInterest) float64 {
	if vi.Explicit {
		return explicitInterestWeight
	}
	return vi.InterestScore * implicitInterestScale
}

func aggregateWeights(meta *Metadata, interactions []recommend.Interaction, interests []recommend.VenueInterest, bookings []recommend.Booking) map[pairKey]float64 {
	weights := make(map[pairKey]float64)
	active := func(user, venue int64) bool {
		_, okU := meta.UserIndex(user)
		_, okV := meta.VenueIndex(venue)
		return okU && okV
	}

	for i := range interactions {
		in := interactions[i]
		if !active(in.UserID, in.VenueID) {
			continue
		}
		weights[pairKey{in.UserID, in.VenueID}] += InteractionWeight(in)
	}
	for i := range interests {
		vi := interests[i]
		if !active(vi.UserID, vi.VenueID) {
			continue
		}
		weights[pairKey{vi.UserID, vi.VenueID}] += InterestWeight(vi)
	}
	for _, bk := range bookings {
		if !active(bk.UserID, bk.VenueID) {
			continue
		}
		weights[pairKey{bk.UserID, bk.VenueID}] += bookingWeight
	}
	return weights
}

// Multiplicity returns how many parallel edges a pair weight materializes.
func Multiplicity(weight float64) int {
	if weight <= 0 || math.IsNaN(weight) {
		return 0
	}
	n := int(math.Min(math.Floor(weight), MaxEdgesPerPair))
	return max(n, 1)
}

func pairEdges(meta *Metadata, weights map[pairKey]float64) []Edge {
	keys := make([]pairKey, 0, len(weights))
	for k := range weights {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b pairKey) int {
		if a.user != b.user {
			return cmp.Compare(a.user, b.user)
		}
		return cmp.Compare(a.venue, b.venue)
	})

	var edges []Edge
	for _, k := range keys {
		u, _ := meta.UserIndex(k.user)
		v, _ := meta.VenueIndex(k.venue)
		src, dst := u, meta.VenueNode(v)
		for range Multiplicity(weights[k]) {
			edges = append(edges, Edge{Src: src, Dst: dst})
		}
	}
	return edges
}

func appendFriendshipEdges(edges []Edge, meta *Metadata, friendships []recommend.Friendship) []Edge {
	for _, f := range friendships {
		if f.UserID == f.FriendID {
			continue
		}
		a, okA := meta.UserIndex(f.UserID)
		b, okB := meta.UserIndex(f.FriendID)
		if !okA || !okB {
			continue
		}
		edges = append(edges, Edge{Src: a, Dst: b}, Edge{Src: b, Dst: a})
	}
	return edges
}
