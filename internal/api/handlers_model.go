// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package api

import (
	"net/http"
	"time"
)

// TrainModel handles POST /api/v1/model/train. With a background trainer
// the run is queued and 202 is returned; without one the handler trains
// synchronously and returns the resulting status.
func (h *Handler) TrainModel(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.trainer == nil {
		status, err := h.engine.Train(r.Context())
		if err != nil {
			respondServiceError(w, r, err)
			return
		}
		respondSuccess(w, r, http.StatusOK, status, start)
		return
	}

	if err := h.trainer.Trigger(r.Context()); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusAccepted, map[string]any{
		"queued": true,
		"status": h.engine.Status(),
	}, start)
}

// ModelStatus handles GET /api/v1/model/status.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.engine.Status(), time.Now())
}
