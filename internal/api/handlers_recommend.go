// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/recommend/engine"
)

// VenueRecommendations handles GET /api/v1/users/{id}/venues.
// Query: limit, category, min_rating.
func (h *Handler) VenueRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	minRating, err := queryFloat(r, "min_rating")
	if err != nil {
		badRequest(w, r, err)
		return
	}

	q := VenuesQuery{UserID: userID, Limit: limit, Category: r.URL.Query().Get("category"), MinRating: minRating}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	recs, err := h.engine.RecommendVenues(r.Context(), engine.VenueRequest{
		UserID:    q.UserID,
		Limit:     q.Limit,
		Category:  q.Category,
		MinRating: q.MinRating,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]any{
		"user_id":         q.UserID,
		"recommendations": roundVenueRecommendations(recs),
		"count":           len(recs),
		"model_loaded":    h.engine.HasModel(),
	}, start)
}

// CompatibleUsers handles GET /api/v1/users/{id}/companions.
// Query: venue_id, limit.
func (h *Handler) CompatibleUsers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	venueID, err := queryInt64Ptr(r, "venue_id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, r, err)
		return
	}

	q := CompanionsQuery{UserID: userID, VenueID: venueID, Limit: limit}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	users, err := h.engine.CompatibleUsers(r.Context(), engine.CompanionRequest{UserID: q.UserID, VenueID: q.VenueID, Limit: q.Limit})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]any{
		"user_id":    q.UserID,
		"venue_id":   q.VenueID,
		"companions": roundCompatibleUsers(users),
		"count":      len(users),
	}, start)
}

// InterestedUsers handles GET /api/v1/venues/{id}/interested.
// Query: user_id (the requester, for compatibility), limit.
func (h *Handler) InterestedUsers(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	venueID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	requester, err := queryInt64Ptr(r, "user_id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		badRequest(w, r, err)
		return
	}

	q := InterestedQuery{VenueID: venueID, UserID: requester, Limit: limit}
	if apiErr := validateRequest(&q); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	users, err := h.engine.InterestedUsers(r.Context(), q.VenueID, q.UserID, q.Limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]any{
		"venue_id": q.VenueID,
		"users":    roundInterestedUsers(users),
		"count":    len(users),
	}, start)
}

// ExpressInterest handles POST /api/v1/venues/{id}/interest.
func (h *Handler) ExpressInterest(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	venueID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}

	var req InterestRequest
	if apiErr := decodeBody(w, r, &req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	interest, others, err := h.engine.ExpressInterest(r.Context(), recommend.InterestUpdate{
		UserID:            req.UserID,
		VenueID:           venueID,
		PreferredTimeSlot: req.PreferredTimeSlot,
		OpenToInvites:     req.OpenToInvites,
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	vi := *interest
	vi.InterestScore = roundTo(vi.InterestScore, scorePlaces)
	respondSuccess(w, r, http.StatusOK, map[string]any{
		"interest":         vi,
		"interested_users": roundInterestedUsers(others),
	}, start)
}

// RecordInteraction handles POST /api/v1/interactions.
func (h *Handler) RecordInteraction(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req InteractionRequest
	if apiErr := decodeBody(w, r, &req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	in := recommend.Interaction{
		UserID:          req.UserID,
		VenueID:         req.VenueID,
		Type:            recommend.InteractionType(req.Type),
		DurationSeconds: req.DurationSeconds,
		CreatedAt:       time.Now().UTC(),
	}
	if err := h.engine.RecordInteraction(r.Context(), in); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondSuccess(w, r, http.StatusCreated, in, start)
}

// GroupVenues handles POST /api/v1/groups/venues.
func (h *Handler) GroupVenues(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req GroupRequest
	if apiErr := decodeBody(w, r, &req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, r, http.StatusBadRequest, apiErr, nil)
		return
	}

	res, err := h.engine.GroupVenues(r.Context(), req.UserIDs)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	out := *res
	out.Venues = roundGroupVenues(res.Venues)
	respondSuccess(w, r, http.StatusOK, out, start)
}
