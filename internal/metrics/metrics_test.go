// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"
)

var (
	errInvalid    = errors.New("invalid")
	errInProgress = errors.New("in progress")
)

func TestTrainingResult(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "success"},
		{"in progress", errInProgress, "in_progress"},
		{"wrapped invalid", fmt.Errorf("fit: %w", errInvalid), "invalid_config"},
		{"other", errors.New("disk full"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrainingResult(tt.err, errInvalid, errInProgress); got != tt.want {
				t.Errorf("TrainingResult() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRecordTrainingRun(t *testing.T) {
	before := testutil.ToFloat64(TrainingRuns.WithLabelValues("success"))
	RecordTrainingRun("success", 2*time.Second)
	if got := testutil.ToFloat64(TrainingRuns.WithLabelValues("success")); got != before+1 {
		t.Errorf("training runs = %v, want %v", got, before+1)
	}
}

func TestRecordGraph(t *testing.T) {
	RecordGraph(3, 5, 17)
	if got := testutil.ToFloat64(GraphNodes.WithLabelValues("user")); got != 3 {
		t.Errorf("user nodes = %v, want 3", got)
	}
	if got := testutil.ToFloat64(GraphNodes.WithLabelValues("venue")); got != 5 {
		t.Errorf("venue nodes = %v, want 5", got)
	}
	if got := testutil.ToFloat64(GraphEdges); got != 17 {
		t.Errorf("edges = %v, want 17", got)
	}
}

func TestRecordFallback(t *testing.T) {
	before := testutil.ToFloat64(HybridFallbacks.WithLabelValues("cold_start"))
	RecordFallback("cold_start", 4)
	RecordFallback("cold_start", 0)
	if got := testutil.ToFloat64(HybridFallbacks.WithLabelValues("cold_start")); got != before+4 {
		t.Errorf("fallbacks = %v, want %v", got, before+4)
	}
}

func TestBreakerStateValue(t *testing.T) {
	tests := []struct {
		state gobreaker.State
		want  float64
	}{
		{gobreaker.StateClosed, 0},
		{gobreaker.StateHalfOpen, 1},
		{gobreaker.StateOpen, 2},
	}
	for _, tt := range tests {
		if got := BreakerStateValue(tt.state); got != tt.want {
			t.Errorf("BreakerStateValue(%v) = %v, want %v", tt.state, got, tt.want)
		}
	}

	RecordBreakerTransition("test-breaker", gobreaker.StateClosed, gobreaker.StateOpen)
	if got := testutil.ToFloat64(CircuitBreakerState.WithLabelValues("test-breaker")); got != 2 {
		t.Errorf("breaker state = %v, want 2", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/health", "200"))
	RecordAPIRequest("GET", "/api/v1/health", "200", 5*time.Millisecond)
	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/health", "200")); got != before+1 {
		t.Errorf("requests = %v, want %v", got, before+1)
	}

	TrackActiveRequest(true)
	TrackActiveRequest(false)
}
