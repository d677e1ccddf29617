// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the body of the health endpoints.
type HealthStatus struct {
	Status            string  `json:"status"`
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	ModelLoaded       bool    `json:"model_loaded"`
	ModelVersion      int     `json:"model_version"`
	Training          bool    `json:"training"`
	Uptime            float64 `json:"uptime_seconds"`
}

func (h *Handler) health(r *http.Request) HealthStatus {
	dbConnected := h.db != nil && h.db.Ping(r.Context()) == nil
	st := h.engine.Status()

	status := "healthy"
	if !dbConnected {
		status = "degraded"
	}
	return HealthStatus{
		Status:            status,
		Version:           h.version,
		DatabaseConnected: dbConnected,
		ModelLoaded:       st.HasModel,
		ModelVersion:      st.Version,
		Training:          st.Training,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
}

// Health handles GET /api/v1/health. It always returns 200; a missing
// model still serves rule-based scores.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, h.health(r), time.Now())
}

// HealthLive handles GET /api/v1/health/live.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, r, http.StatusOK, map[string]string{"status": "alive"}, time.Now())
}

// HealthReady handles GET /api/v1/health/ready. It returns 503 while the
// database is unreachable.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	hs := h.health(r)
	if !hs.DatabaseConnected {
		respondError(w, r, http.StatusServiceUnavailable, &APIError{Code: "NOT_READY", Message: "database unreachable"}, nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, hs, time.Now())
}
