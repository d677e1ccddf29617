// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package group ranks venues for a set of users.
//
// The group is reduced to a profile: the centroid of known member
// locations, cuisine popularity counts, and averaged price and distance
// preferences. Each candidate venue scores the unweighted mean of five
// factors. Distance beyond the averaged radius and capacity below the group
// size are hard cutoffs that score exactly 0. The learned model is not
// consulted.
package group

import (
	"slices"

	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/geo"
)

const (
	priceMatch    = 1.0
	priceMismatch = 0.3

	// unseenCuisineScore applies when no member lists the venue's cuisine.
	unseenCuisineScore = 0.3

	defaultPriceMin = 1
	defaultPriceMax = 4

	maxRating  = 5.0
	numFactors = 5.0
)

// Profile is the aggregate preference of a group.
type Profile struct {
	Size     int
	Centroid recommend.Location

	// CentroidKnown is false when no member has a location and Centroid is
	// the configured fallback.
	CentroidKnown bool

	// CuisineCounts maps cuisine to the number of members listing it.
	CuisineCounts map[string]int

	PriceMin      float64
	PriceMax      float64
	MaxDistanceKm float64
}

// BoundingBox returns the prefilter box around the centroid.
func (p *Profile) BoundingBox() geo.BoundingBox {
	return geo.BoundingBoxAround(p.Centroid, p.MaxDistanceKm)
}

// Optimizer ranks venues for groups. It is stateless and safe for
// concurrent use.
type Optimizer struct {
	cfg recommend.GroupConfig
}

// New creates a group optimizer.
func New(cfg recommend.GroupConfig) *Optimizer {
	return &Optimizer{cfg: cfg}
}

// Aggregate builds the group profile. Members without preferences
// contribute to the size and centroid only. With no preferences at all the
// price range is [1, 4] and the radius is the configured default.
func (o *Optimizer) Aggregate(users []recommend.User) Profile {
	p := Profile{
		Size:          len(users),
		Centroid:      o.cfg.FallbackLocation,
		CuisineCounts: make(map[string]int),
		PriceMin:      defaultPriceMin,
		PriceMax:      defaultPriceMax,
		MaxDistanceKm: o.cfg.DefaultMaxDistanceKm,
	}

	locs := make([]recommend.Location, 0, len(users))
	var minSum, maxSum, distSum float64
	var withPrefs int
	for i := range users {
		u := &users[i]
		if u.Location != nil {
			locs = append(locs, *u.Location)
		}
		prefs := u.Preferences
		if prefs == nil {
			continue
		}
		for _, c := range dedupe(prefs.Cuisines) {
			p.CuisineCounts[c]++
		}
		minSum += float64(prefs.PriceMin)
		maxSum += float64(prefs.PriceMax)
		dist := prefs.MaxDistanceKm
		if dist <= 0 {
			dist = o.cfg.DefaultMaxDistanceKm
		}
		distSum += dist
		withPrefs++
	}

	if c, ok := geo.Centroid(locs); ok {
		p.Centroid = c
		p.CentroidKnown = true
	}
	if withPrefs > 0 {
		n := float64(withPrefs)
		p.PriceMin = minSum / n
		p.PriceMax = maxSum / n
		p.MaxDistanceKm = distSum / n
	}
	return p
}

// Score returns the group score of one venue in [0, 1].
func (p *Profile) Score(venue *recommend.Venue) float64 {
	if venue.Capacity < p.Size {
		return 0
	}
	d := geo.Haversine(p.Centroid, venue.Location)
	if d > p.MaxDistanceKm || p.MaxDistanceKm <= 0 {
		return 0
	}

	sum := 1 - d/p.MaxDistanceKm

	level := float64(venue.PriceLevel)
	if level >= p.PriceMin && level <= p.PriceMax {
		sum += priceMatch
	} else {
		sum += priceMismatch
	}

	if n, ok := p.CuisineCounts[venue.Cuisine]; ok && p.Size > 0 {
		sum += float64(n) / float64(p.Size)
	} else {
		sum += unseenCuisineScore
	}

	// Capacity already passed the cutoff above.
	sum += 1.0

	sum += venue.Rating / maxRating

	return sum / numFactors
}

// Candidates applies the bounding box and capacity prefilters.
func (p *Profile) Candidates(venues []recommend.Venue) []recommend.Venue {
	box := p.BoundingBox()
	out := make([]recommend.Venue, 0, len(venues))
	for i := range venues {
		if venues[i].Capacity >= p.Size && box.Contains(venues[i].Location) {
			out = append(out, venues[i])
		}
	}
	return out
}

// Rank prefilters venues for the group, scores them, and returns every
// candidate sorted by group score, descending. Ties keep input order.
// Empty input returns an empty result.
func (o *Optimizer) Rank(users []recommend.User, venues []recommend.Venue) []recommend.GroupVenueScore {
	if len(users) == 0 || len(venues) == 0 {
		return []recommend.GroupVenueScore{}
	}
	p := o.Aggregate(users)
	return p.Rank(venues)
}

// Rank scores venues against the profile.
func (p *Profile) Rank(venues []recommend.Venue) []recommend.GroupVenueScore {
	candidates := p.Candidates(venues)
	out := make([]recommend.GroupVenueScore, len(candidates))
	for i := range candidates {
		out[i] = recommend.GroupVenueScore{Venue: candidates[i], GroupScore: p.Score(&candidates[i])}
	}
	slices.SortStableFunc(out, func(a, b recommend.GroupVenueScore) int {
		switch {
		case a.GroupScore > b.GroupScore:
			return -1
		case a.GroupScore < b.GroupScore:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Top returns at most limit entries with a positive group score.
func Top(scores []recommend.GroupVenueScore, limit int) []recommend.GroupVenueScore {
	out := make([]recommend.GroupVenueScore, 0, min(limit, len(scores)))
	for _, s := range scores {
		if len(out) == limit {
			break
		}
		if s.GroupScore > 0 {
			out = append(out, s)
		}
	}
	return out
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
