// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package scoring

import (
	"fmt"
	"math"

	"github.com/tomtom215/tablemates/internal/recommend"
)

const (
	friendScore       = 1.0
	strangerScore     = 0.3
	mutualFriendsFull = 5.0

	sharedInterestScore   = 1.0
	noSharedInterestScore = 0.3

	openScore   = 1.0
	closedScore = 0.5

	// similarTasteThreshold is the preference similarity above which
	// "Similar taste" is reported.
	similarTasteThreshold = 0.7
)

// Reason strings attached to companion results.
const (
	ReasonFriend         = "Friend"
	ReasonSimilarTaste   = "Similar taste"
	ReasonSameVenue      = "Interested in same venue"
	ReasonOpenToMeeting  = "Open to meeting"
	reasonMutualTemplate = "%d mutual friend(s)"
)

// SocialContext carries the relationship facts between a requester A and a
// candidate B.
type SocialContext struct {
	// IsFriend is true when B is a direct friend of A.
	IsFriend bool

	// MutualFriends is the number of B's friendships whose target is one
	// of A's friends.
	MutualFriends int

	// HasTargetVenue is true when the query names a venue.
	HasTargetVenue bool

	// SharedInterest is true when B is explicitly interested in the
	// target venue.
	SharedInterest bool
}

// Compatibility is a social-compatibility score with its explanation.
type Compatibility struct {
	Score                float64
	PreferenceSimilarity float64
	Reasons              []string
}

// Compatibility scores how well candidate b suits requester a.
func (s *Scorer) Compatibility(a, b *recommend.User, sc SocialContext) Compatibility {
	w := s.cfg.Compatibility
	var acc weighted
	reasons := make([]string, 0, 4)

	switch {
	case sc.IsFriend:
		acc.add(friendScore, w.Relationship)
		reasons = append(reasons, ReasonFriend)
	case sc.MutualFriends > 0:
		acc.add(math.Min(float64(sc.MutualFriends)/mutualFriendsFull, 1), w.Relationship)
		reasons = append(reasons, fmt.Sprintf(reasonMutualTemplate, sc.MutualFriends))
	default:
		acc.add(strangerScore, w.Relationship)
	}

	sim := PreferenceSimilarity(a.Preferences, b.Preferences)
	acc.add(sim, w.Preference)
	if sim > similarTasteThreshold {
		reasons = append(reasons, ReasonSimilarTaste)
	}

	if sc.HasTargetVenue {
		if sc.SharedInterest {
			acc.add(sharedInterestScore, w.SharedInterest)
			reasons = append(reasons, ReasonSameVenue)
		} else {
			acc.add(noSharedInterestScore, w.SharedInterest)
		}
	}

	acc.add(1-math.Abs(a.ActivityScore-b.ActivityScore), w.Activity)

	if b.OpenToMeet {
		acc.add(openScore, w.Openness)
		reasons = append(reasons, ReasonOpenToMeeting)
	} else {
		acc.add(closedScore, w.Openness)
	}

	return Compatibility{
		Score:                acc.value(),
		PreferenceSimilarity: sim,
		Reasons:              reasons,
	}
}

// PreferenceSimilarity averages the cuisine Jaccard overlap, the price
// range overlap ratio, and the ambiance Jaccard overlap. Set overlaps
// count only when both sides are non-empty. Missing preferences on either
// side yield NeutralScore.
func PreferenceSimilarity(a, b *recommend.Preferences) float64 {
	if a == nil || b == nil {
		return NeutralScore
	}

	var sum float64
	var n int
	if len(a.Cuisines) > 0 && len(b.Cuisines) > 0 {
		sum += Jaccard(a.Cuisines, b.Cuisines)
		n++
	}
	sum += PriceOverlap(a.PriceMin, a.PriceMax, b.PriceMin, b.PriceMax)
	n++
	if len(a.Ambiance) > 0 && len(b.Ambiance) > 0 {
		sum += Jaccard(a.Ambiance, b.Ambiance)
		n++
	}
	return sum / float64(n)
}

// Jaccard returns |a ∩ b| / |a ∪ b| over string sets, 0 when both are empty.
func Jaccard(a, b []string) float64 {
	setA := make(map[string]struct{}, len(a))
	for _, s := range a {
		setA[s] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, s := range b {
		setB[s] = struct{}{}
	}

	intersection := 0
	for s := range setA {
		if _, ok := setB[s]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// PriceOverlap returns the intersection length of two price ranges over
// their union length, or 1 when the union has zero length.
func PriceOverlap(minA, maxA, minB, maxB int) float64 {
	intersection := max(0, min(maxA, maxB)-max(minA, minB))
	union := max(maxA, maxB) - min(minA, minB)
	if union <= 0 {
		return 1
	}
	return float64(intersection) / float64(union)
}

// MutualFriendCount counts candidate friendships that point at one of the
// requester's friends.
func MutualFriendCount(requesterFriends map[int64]struct{}, candidateFriendIDs []int64) int {
	n := 0
	for _, id := range candidateFriendIDs {
		if _, ok := requesterFriends[id]; ok {
			n++
		}
	}
	return n
}
