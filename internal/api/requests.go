// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// VenuesQuery is GET /api/v1/users/{id}/venues.
type VenuesQuery struct {
	UserID    int64   `json:"user_id" validate:"gt=0"`
	Limit     int     `json:"limit" validate:"omitempty,min=1,max=50"`
	Category  string  `json:"category" validate:"omitempty,max=64"`
	MinRating float64 `json:"min_rating" validate:"gte=0,lte=5"`
}

// CompanionsQuery is GET /api/v1/users/{id}/companions.
type CompanionsQuery struct {
	UserID  int64  `json:"user_id" validate:"gt=0"`
	VenueID *int64 `json:"venue_id" validate:"omitempty,gt=0"`
	Limit   int    `json:"limit" validate:"omitempty,min=1,max=50"`
}

// InterestedQuery is GET /api/v1/venues/{id}/interested.
type InterestedQuery struct {
	VenueID int64  `json:"venue_id" validate:"gt=0"`
	UserID  *int64 `json:"user_id" validate:"omitempty,gt=0"`
	Limit   int    `json:"limit" validate:"omitempty,min=1,max=50"`
}

// InterestRequest is the body of POST /api/v1/venues/{id}/interest.
type InterestRequest struct {
	UserID            int64  `json:"user_id" validate:"required,gt=0"`
	PreferredTimeSlot string `json:"preferred_time_slot" validate:"omitempty,oneof=breakfast brunch lunch dinner late"`
	OpenToInvites     *bool  `json:"open_to_invites"`
}

// InteractionRequest is the body of POST /api/v1/interactions.
type InteractionRequest struct {
	UserID          int64  `json:"user_id" validate:"required,gt=0"`
	VenueID         int64  `json:"venue_id" validate:"required,gt=0"`
	Type            string `json:"interaction_type" validate:"required,interaction_type"`
	DurationSeconds *int   `json:"duration_seconds" validate:"omitempty,gte=0,lte=86400"`
}

// GroupRequest is the body of POST /api/v1/groups/venues.
type GroupRequest struct {
	UserIDs []int64 `json:"user_ids" validate:"min=1,max=50,dive,gt=0"`
}

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// pathID parses a positive int64 URL parameter.
func pathID(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}

// queryInt parses an optional integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return v, nil
}

// queryInt64Ptr parses an optional int64 query parameter.
func queryInt64Ptr(r *http.Request, key string) (*int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%s must be an integer", key)
	}
	return &v, nil
}

// queryFloat parses an optional float query parameter.
func queryFloat(r *http.Request, key string) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return v, nil
}
