// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tablemates/internal/recommend/engine"
)

// ModelTrainer starts a training run. Implementations may run it in the
// background and may refuse it with recommend.ErrTrainingInProgress or
// recommend.ErrTrainingThrottled.
type ModelTrainer interface {
	Trigger(ctx context.Context) error
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the recommendation API.
type Handler struct {
	engine    *engine.Engine
	trainer   ModelTrainer
	db        Pinger
	startTime time.Time
	version   string
}

// NewHandler creates a handler. trainer may be nil, in which case
// POST /model/train runs training synchronously on the engine.
func NewHandler(eng *engine.Engine, trainer ModelTrainer, db Pinger, version string) *Handler {
	return &Handler{
		engine:    eng,
		trainer:   trainer,
		db:        db,
		startTime: time.Now(),
		version:   version,
	}
}

// decodeBody decodes a JSON body into dst, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) *APIError {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &APIError{Code: "VALIDATION_ERROR", Message: "request body too large"}
		}
		return &APIError{Code: "VALIDATION_ERROR", Message: "invalid JSON body: " + err.Error()}
	}
	return nil
}

func badRequest(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, http.StatusBadRequest, &APIError{Code: "VALIDATION_ERROR", Message: err.Error()}, nil)
}
