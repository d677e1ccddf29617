// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package recommend

import (
	"context"
	"math"
	"time"
)

const (
	// NewInterestScore is the score of a first explicit interest.
	NewInterestScore = 0.8

	// InterestBoost is added to the score when interest is repeated.
	InterestBoost = 0.1
)

// InterestUpdate is an explicit expression of interest in a venue.
type InterestUpdate struct {
	UserID  int64
	VenueID int64

	// PreferredTimeSlot and OpenToInvites replace the stored values when set.
	PreferredTimeSlot string
	OpenToInvites     *bool
}

// ApplyInterest returns the interest record after u. A new pair starts at
// NewInterestScore. An existing pair becomes explicit and its score rises
// by InterestBoost, capped at 1.
func ApplyInterest(existing *VenueInterest, u InterestUpdate, now time.Time) VenueInterest {
	if existing == nil {
		vi := VenueInterest{
			UserID:            u.UserID,
			VenueID:           u.VenueID,
			InterestScore:     NewInterestScore,
			Explicit:          true,
			PreferredTimeSlot: u.PreferredTimeSlot,
			OpenToInvites:     true,
			CreatedAt:         now,
		}
		if u.OpenToInvites != nil {
			vi.OpenToInvites = *u.OpenToInvites
		}
		return vi
	}

	vi := *existing
	vi.Explicit = true
	vi.InterestScore = math.Min(vi.InterestScore+InterestBoost, 1)
	if u.PreferredTimeSlot != "" {
		vi.PreferredTimeSlot = u.PreferredTimeSlot
	}
	if u.OpenToInvites != nil {
		vi.OpenToInvites = *u.OpenToInvites
	}
	return vi
}

// InteractionWriter appends interaction log entries.
type InteractionWriter interface {
	RecordInteraction(ctx context.Context, in Interaction) error
}

// InterestWriter upserts interest records. Implementations apply
// ApplyInterest atomically against the stored record and append a save
// interaction for the pair.
type InterestWriter interface {
	ExpressInterest(ctx context.Context, u InterestUpdate) (*VenueInterest, error)
}
