// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package graph

import (
	"fmt"
	"slices"
)

// Edge is a directed edge between two node indices. Users occupy node
// indices [0, NumUsers) and venues [NumUsers, NumUsers+NumVenues).
type Edge struct {
	Src int `json:"src"`
	Dst int `json:"dst"`
}

// Metadata describes the node index space of a built graph.
//
// UserIDs and VenueIDs are sorted ascending and map local index to entity
// ID. The lookup maps are their exact inverses.
type Metadata struct {
	NumUsers        int     `json:"num_users"`
	NumVenues       int     `json:"num_venues"`
	EdgeCount       int     `json:"edge_count"`
	FriendshipEdges int     `json:"friendship_edges"`
	UserIDs         []int64 `json:"user_ids"`
	VenueIDs        []int64 `json:"venue_ids"`

	userIndex  map[int64]int
	venueIndex map[int64]int
}

// NewMetadata builds metadata from entity ID sets. The slices are copied,
// sorted, and deduplicated.
func NewMetadata(userIDs, venueIDs []int64) *Metadata {
	users := slices.Clone(userIDs)
	slices.Sort(users)
	users = slices.Compact(users)

	venues := slices.Clone(venueIDs)
	slices.Sort(venues)
	venues = slices.Compact(venues)

	m := &Metadata{
		NumUsers:  len(users),
		NumVenues: len(venues),
		UserIDs:   users,
		VenueIDs:  venues,
	}
	m.reindex()
	return m
}

func (m *Metadata) reindex() {
	m.userIndex = make(map[int64]int, len(m.UserIDs))
	for i, id := range m.UserIDs {
		m.userIndex[id] = i
	}
	m.venueIndex = make(map[int64]int, len(m.VenueIDs))
	for i, id := range m.VenueIDs {
		m.venueIndex[id] = i
	}
}

// Restore rebuilds the lookup maps after deserialization and checks that
// the counts agree with the ID lists.
func (m *Metadata) Restore() error {
	if m.NumUsers != len(m.UserIDs) {
		return fmt.Errorf("metadata num_users %d does not match %d user ids", m.NumUsers, len(m.UserIDs))
	}
	if m.NumVenues != len(m.VenueIDs) {
		return fmt.Errorf("metadata num_venues %d does not match %d venue ids", m.NumVenues, len(m.VenueIDs))
	}
	if !slices.IsSorted(m.UserIDs) || !slices.IsSorted(m.VenueIDs) {
		return fmt.Errorf("metadata ids are not sorted")
	}
	m.reindex()
	if len(m.userIndex) != m.NumUsers || len(m.venueIndex) != m.NumVenues {
		return fmt.Errorf("metadata ids are not unique")
	}
	return nil
}

// NumNodes returns the total node count.
func (m *Metadata) NumNodes() int {
	return m.NumUsers + m.NumVenues
}

// UserIndex returns the user's local index.
func (m *Metadata) UserIndex(id int64) (int, bool) {
	i, ok := m.userIndex[id]
	return i, ok
}

// VenueIndex returns the venue's local index in [0, NumVenues).
func (m *Metadata) VenueIndex(id int64) (int, bool) {
	i, ok := m.venueIndex[id]
	return i, ok
}

// VenueNode converts a local venue index into a node index.
func (m *Metadata) VenueNode(venueIndex int) int {
	return m.NumUsers + venueIndex
}

// IsUserNode reports whether node lies in the user range.
func (m *Metadata) IsUserNode(node int) bool {
	return node >= 0 && node < m.NumUsers
}

// IsVenueNode reports whether node lies in the venue range.
func (m *Metadata) IsVenueNode(node int) bool {
	return node >= m.NumUsers && node < m.NumNodes()
}

// Graph is a built edge list with its index metadata.
type Graph struct {
	Edges []Edge
	Meta  *Metadata
}

// Empty reports whether the graph has no edges.
func (g *Graph) Empty() bool {
	return g == nil || len(g.Edges) == 0
}

// UserVenuePairs returns the deduplicated (user, local venue) index pairs of
// all user to venue edges, in first-seen order.
func (g *Graph) UserVenuePairs() [][2]int {
	seen := make(map[[2]int]struct{})
	var pairs [][2]int
	for _, e := range g.Edges {
		if !g.Meta.IsUserNode(e.Src) || !g.Meta.IsVenueNode(e.Dst) {
			continue
		}
		p := [2]int{e.Src, e.Dst - g.Meta.NumUsers}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}
	return pairs
}

// Remap translates the edges of g into the index space of target, dropping
// edges whose endpoints target does not know.
func Remap(g *Graph, target *Metadata) []Edge {
	if g.Empty() {
		return nil
	}
	translate := func(node int) (int, bool) {
		if g.Meta.IsUserNode(node) {
			return target.UserIndex(g.Meta.UserIDs[node])
		}
		v, ok := target.VenueIndex(g.Meta.VenueIDs[node-g.Meta.NumUsers])
		return target.VenueNode(v), ok
	}

	out := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		src, okS := translate(e.Src)
		dst, okD := translate(e.Dst)
		if okS && okD {
			out = append(out, Edge{Src: src, Dst: dst})
		}
	}
	return out
}
