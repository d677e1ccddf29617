// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package scoring implements the rule-based venue-fit and
// social-compatibility scores.
//
// Both scores are weighted averages over the factors that apply to the
// inputs at hand, renormalized by the total weight of those factors, so
// missing optional data never drags a score down. All functions are pure
// and safe for concurrent use.
package scoring

import (
	"slices"

	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/geo"
)

// NeutralScore is returned when no factor applies.
const NeutralScore = 0.5

const (
	priceMatch    = 1.0
	priceMismatch = 0.3

	cuisineMatch    = 1.0
	cuisineMismatch = 0.5

	trendingScore    = 1.0
	notTrendingScore = 0.5

	maxRating = 5.0
)

// Scorer computes rule-based scores with a fixed weight configuration.
type Scorer struct {
	cfg recommend.ScoringConfig
}

// New creates a scorer. Weights are expected to be validated by
// recommend.Config.Validate.
func New(cfg recommend.ScoringConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Config returns the scorer's configuration.
func (s *Scorer) Config() recommend.ScoringConfig {
	return s.cfg
}

// VenueFit is a venue-fit score with the distance it was computed from.
type VenueFit struct {
	Score float64

	// DistanceKm is nil when the user has no location.
	DistanceKm *float64
}

// weighted accumulates factor scores and the weight of applicable factors.
type weighted struct {
	sum, weight float64
}

func (w *weighted) add(score, weight float64) {
	w.sum += score * weight
	w.weight += weight
}

func (w *weighted) value() float64 {
	if w.weight == 0 {
		return NeutralScore
	}
	return clamp01(w.sum / w.weight)
}

// MaxDistanceKm returns the user's travel radius, falling back to the
// configured default.
func (s *Scorer) MaxDistanceKm(user *recommend.User) float64 {
	if user.Preferences != nil && user.Preferences.MaxDistanceKm > 0 {
		return user.Preferences.MaxDistanceKm
	}
	return s.cfg.DefaultMaxDistanceKm
}

// VenueFit scores how well a venue suits a user. A venue beyond the
// user's travel radius scores exactly 0.
func (s *Scorer) VenueFit(user *recommend.User, venue *recommend.Venue) VenueFit {
	w := s.cfg.VenueFit
	var acc weighted
	var fit VenueFit

	if user.Location != nil {
		d := geo.Haversine(*user.Location, venue.Location)
		fit.DistanceKm = &d
		maxDist := s.MaxDistanceKm(user)
		if d > maxDist {
			return fit
		}
		acc.add(1-d/maxDist, w.Distance)
	}

	if prefs := user.Preferences; prefs != nil {
		acc.add(PriceFit(venue.PriceLevel, prefs.PriceMin, prefs.PriceMax), w.Price)
		if len(prefs.Cuisines) > 0 {
			score := cuisineMismatch
			if slices.Contains(prefs.Cuisines, venue.Cuisine) {
				score = cuisineMatch
			}
			acc.add(score, w.Cuisine)
		}
	}

	acc.add(venue.Rating/maxRating, w.Rating)
	acc.add(venue.Popularity, w.Popularity)
	if venue.Trending {
		acc.add(trendingScore, w.Trending)
	} else {
		acc.add(notTrendingScore, w.Trending)
	}

	fit.Score = acc.value()
	return fit
}

// PriceFit returns 1 when level lies in [minLevel, maxLevel] and 0.3
// otherwise.
func PriceFit(level, minLevel, maxLevel int) float64 {
	if level >= minLevel && level <= maxLevel {
		return priceMatch
	}
	return priceMismatch
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}
