// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package recommend

import (
	"context"
	"time"
)

// InteractionType classifies an interaction log entry.
type InteractionType string

const (
	InteractionView   InteractionType = "view"
	InteractionSave   InteractionType = "save"
	InteractionShare  InteractionType = "share"
	InteractionLike   InteractionType = "like"
	InteractionReview InteractionType = "review"
)

// Valid reports whether t is a known interaction type.
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionSave, InteractionShare, InteractionLike, InteractionReview:
		return true
	default:
		return false
	}
}

// Weight returns the graph weight contributed by one interaction of this type.
func (t InteractionType) Weight() float64 {
	switch t {
	case InteractionView:
		return 1.0
	case InteractionSave:
		return 3.0
	case InteractionShare:
		return 2.0
	case InteractionLike:
		return 2.5
	case InteractionReview:
		return 4.0
	default:
		return 0.0
	}
}

// Location is a WGS84 coordinate pair in degrees.
type Location struct {
	Latitude  float64 `koanf:"latitude" json:"latitude"`
	Longitude float64 `koanf:"longitude" json:"longitude"`
}

// Preferences is a user's dining preference snapshot.
type Preferences struct {
	// Cuisines is the set of preferred cuisine types.
	Cuisines []string `json:"cuisines"`

	// PriceMin and PriceMax bound the preferred price level, both in [1, 4].
	PriceMin int `json:"price_min"`
	PriceMax int `json:"price_max"`

	// Ambiance is the set of preferred ambiance tags.
	Ambiance []string `json:"ambiance"`

	// MaxDistanceKm is the furthest the user is willing to travel.
	MaxDistanceKm float64 `json:"max_distance_km"`
}

// User is the attribute snapshot of a user.
type User struct {
	ID            int64        `json:"id"`
	Name          string       `json:"name"`
	Location      *Location    `json:"location,omitempty"`
	ActivityScore float64      `json:"activity_score"`
	OpenToMeet    bool         `json:"open_to_meet"`
	Preferences   *Preferences `json:"preferences,omitempty"`
}

// Venue is the attribute snapshot of a venue.
type Venue struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Category   string   `json:"category"`
	Location   Location `json:"location"`
	Cuisine    string   `json:"cuisine"`
	PriceLevel int      `json:"price_level"`
	Rating     float64  `json:"rating"`
	Popularity float64  `json:"popularity"`
	Trending   bool     `json:"trending"`
	Capacity   int      `json:"capacity"`
}

// Interaction is an immutable interaction log entry.
type Interaction struct {
	UserID  int64           `json:"user_id"`
	VenueID int64           `json:"venue_id"`
	Type    InteractionType `json:"type"`

	// DurationSeconds is set for views that reported a dwell time.
	DurationSeconds *int `json:"duration_seconds,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// VenueInterest is the single active interest record for a (user, venue) pair.
type VenueInterest struct {
	UserID            int64     `json:"user_id"`
	VenueID           int64     `json:"venue_id"`
	InterestScore     float64   `json:"interest_score"`
	Explicit          bool      `json:"explicit"`
	PreferredTimeSlot string    `json:"preferred_time_slot,omitempty"`
	OpenToInvites     bool      `json:"open_to_invites"`
	CreatedAt         time.Time `json:"created_at"`
}

// Booking records that a user booked a venue, whatever its status.
type Booking struct {
	UserID  int64 `json:"user_id"`
	VenueID int64 `json:"venue_id"`
}

// Friendship is a directed friendship edge.
type Friendship struct {
	UserID   int64 `json:"user_id"`
	FriendID int64 `json:"friend_id"`
}

// RecordFilter restricts record reads. Empty slices mean no restriction.
type RecordFilter struct {
	UserIDs  []int64
	VenueIDs []int64
}

// FriendshipFilter restricts friendship reads. Empty slices mean no restriction.
type FriendshipFilter struct {
	UserIDs   []int64
	FriendIDs []int64
}

// BoundingBox is an axis-aligned lat/lon rectangle. A box with
// MinLon > MaxLon crosses the antimeridian and covers [MinLon, 180] and
// [-180, MaxLon].
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// CrossesAntimeridian reports whether the longitude range wraps past ±180.
func (b BoundingBox) CrossesAntimeridian() bool {
	return b.MinLon > b.MaxLon
}

// Contains reports whether loc lies inside the box.
func (b BoundingBox) Contains(loc Location) bool {
	if loc.Latitude < b.MinLat || loc.Latitude > b.MaxLat {
		return false
	}
	if b.CrossesAntimeridian() {
		return loc.Longitude >= b.MinLon || loc.Longitude <= b.MaxLon
	}
	return loc.Longitude >= b.MinLon && loc.Longitude <= b.MaxLon
}

// VenueFilter restricts venue listings. Zero fields mean no restriction.
type VenueFilter struct {
	Category    string
	MinRating   float64
	MinCapacity int
	Within      *BoundingBox
}

// InteractionReader lists interaction log entries with a non-null venue.
type InteractionReader interface {
	ListInteractions(ctx context.Context, f RecordFilter) ([]Interaction, error)
}

// InterestReader lists venue interest records.
type InterestReader interface {
	ListVenueInterests(ctx context.Context, f RecordFilter) ([]VenueInterest, error)
}

// BookingReader lists bookings.
type BookingReader interface {
	ListBookings(ctx context.Context, f RecordFilter) ([]Booking, error)
}

// FriendshipReader lists friendships.
type FriendshipReader interface {
	ListFriendships(ctx context.Context, f FriendshipFilter) ([]Friendship, error)
}

// RecordSource is everything the graph builder reads.
type RecordSource interface {
	InteractionReader
	InterestReader
	BookingReader
	FriendshipReader
}

// EntityReader returns user and venue attribute snapshots. Get methods
// return an error wrapping ErrNotFound for unknown IDs.
type EntityReader interface {
	GetUser(ctx context.Context, id int64) (*User, error)
	GetVenue(ctx context.Context, id int64) (*Venue, error)
	ListUsers(ctx context.Context) ([]User, error)
	ListVenues(ctx context.Context, f VenueFilter) ([]Venue, error)
}

// VenueRecommendation is one entry of a personalized venue ranking.
type VenueRecommendation struct {
	Venue     Venue   `json:"venue"`
	RuleScore float64 `json:"rule_score"`

	// GNNScore is nil when the learned model could not score the pair.
	GNNScore *float64 `json:"gnn_score,omitempty"`

	FinalScore float64 `json:"final_score"`

	// DistanceKm is set when the user has a location.
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// CompatibleUser is one entry of a companion ranking.
type CompatibleUser struct {
	User               User     `json:"user"`
	CompatibilityScore float64  `json:"compatibility_score"`
	Reasons            []string `json:"reasons"`
	IsFriend           bool     `json:"is_friend"`
}

// InterestedUser is a user with an explicit interest in a venue.
type InterestedUser struct {
	User              User     `json:"user"`
	InterestScore     float64  `json:"interest_score"`
	PreferredTimeSlot string   `json:"preferred_time_slot,omitempty"`
	OpenToInvites     bool     `json:"open_to_invites"`
	Compatibility     *float64 `json:"compatibility,omitempty"`
}

// GroupVenueScore is one entry of a group venue ranking.
type GroupVenueScore struct {
	Venue      Venue   `json:"venue"`
	GroupScore float64 `json:"group_score"`
}
