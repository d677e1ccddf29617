// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tablemates/internal/logging"
	"github.com/tomtom215/tablemates/internal/recommend"
	"github.com/tomtom215/tablemates/internal/validation"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status   string    `json:"status"`
	Data     any       `json:"data"`
	Metadata Metadata  `json:"metadata"`
	Error    *APIError `json:"error,omitempty"`
}

// Metadata carries response timing.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError is a machine-readable error code with a human message.
//
// Codes:
//   - VALIDATION_ERROR: invalid input parameters
//   - NOT_FOUND: unknown user or venue
//   - TRAINING_IN_PROGRESS: a training run is already active
//   - RATE_LIMITED: too many requests or training triggers
//   - MODEL_UNAVAILABLE: no trained model is serving
//   - INTERNAL_ERROR: anything else
type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// sanitizeLogValue escapes control characters to prevent log injection.
func sanitizeLogValue(s string) string {
	var result strings.Builder
	result.Grow(len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7F {
			fmt.Fprintf(&result, "\\x%02x", r)
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, response *APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess wraps data in a success envelope.
func respondSuccess(w http.ResponseWriter, r *http.Request, status int, data any, start time.Time) {
	respondJSON(w, status, &APIResponse{
		Status: "success",
		Data:   data,
		Metadata: Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: time.Since(start).Milliseconds(),
			RequestID:   logging.RequestIDFromContext(r.Context()),
		},
	})
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, r *http.Request, status int, apiErr *APIError, err error) {
	if err != nil {
		event := logging.Ctx(r.Context()).Warn()
		if status >= http.StatusInternalServerError {
			event = logging.Ctx(r.Context()).Error()
		}
		event.Str("code", sanitizeLogValue(apiErr.Code)).Str("error", sanitizeLogValue(err.Error())).Msg("API error")
	}

	respondJSON(w, status, &APIResponse{
		Status: "error",
		Metadata: Metadata{
			Timestamp: time.Now().UTC(),
			RequestID: logging.RequestIDFromContext(r.Context()),
		},
		Error: apiErr,
	})
}

// respondServiceError maps recommendation errors to HTTP status codes.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, recommend.ErrNotFound):
		respondError(w, r, http.StatusNotFound, &APIError{Code: "NOT_FOUND", Message: err.Error()}, err)
	case errors.Is(err, recommend.ErrInvalidConfig):
		respondError(w, r, http.StatusBadRequest, &APIError{Code: "VALIDATION_ERROR", Message: err.Error()}, err)
	case errors.Is(err, recommend.ErrTrainingInProgress):
		respondError(w, r, http.StatusConflict, &APIError{Code: "TRAINING_IN_PROGRESS", Message: err.Error()}, err)
	case errors.Is(err, recommend.ErrTrainingThrottled):
		respondError(w, r, http.StatusTooManyRequests, &APIError{Code: "RATE_LIMITED", Message: err.Error()}, err)
	case errors.Is(err, recommend.ErrModelUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, &APIError{Code: "MODEL_UNAVAILABLE", Message: err.Error()}, err)
	default:
		respondError(w, r, http.StatusInternalServerError, &APIError{Code: "INTERNAL_ERROR", Message: "internal server error"}, err)
	}
}

// validateRequest validates a struct using go-playground/validator.
// Returns nil if validation passes.
func validateRequest(v any) *APIError {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return nil
	}
	apiErr := verr.ToAPIError()
	return &APIError{Code: apiErr.Code, Message: apiErr.Message, Details: apiErr.Details}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}

func roundPtr(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	r := roundTo(*v, places)
	return &r
}

const (
	scorePlaces    = 3
	distancePlaces = 2
)

func roundVenueRecommendations(recs []recommend.VenueRecommendation) []recommend.VenueRecommendation {
	out := make([]recommend.VenueRecommendation, len(recs))
	for i, rec := range recs {
		rec.RuleScore = roundTo(rec.RuleScore, scorePlaces)
		rec.GNNScore = roundPtr(rec.GNNScore, scorePlaces)
		rec.FinalScore = roundTo(rec.FinalScore, scorePlaces)
		rec.DistanceKm = roundPtr(rec.DistanceKm, distancePlaces)
		out[i] = rec
	}
	return out
}

func roundCompatibleUsers(users []recommend.CompatibleUser) []recommend.CompatibleUser {
	out := make([]recommend.CompatibleUser, len(users))
	for i, u := range users {
		u.CompatibilityScore = roundTo(u.CompatibilityScore, scorePlaces)
		out[i] = u
	}
	return out
}

func roundInterestedUsers(users []recommend.InterestedUser) []recommend.InterestedUser {
	out := make([]recommend.InterestedUser, len(users))
	for i, u := range users {
		u.InterestScore = roundTo(u.InterestScore, scorePlaces)
		u.Compatibility = roundPtr(u.Compatibility, scorePlaces)
		out[i] = u
	}
	return out
}

func roundGroupVenues(venues []recommend.GroupVenueScore) []recommend.GroupVenueScore {
	out := make([]recommend.GroupVenueScore, len(venues))
	for i, v := range venues {
		v.GroupScore = roundTo(v.GroupScore, scorePlaces)
		out[i] = v
	}
	return out
}
