// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

package recommend

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig indicates a configuration or input precondition failure.
var ErrInvalidConfig = errors.New("invalid recommender configuration")

var (
	// ErrEmptyGraph is returned when training finds a graph with no edges.
	ErrEmptyGraph = fmt.Errorf("%w: graph has no edges", ErrInvalidConfig)

	// ErrNoPositivePairs is returned when no user-venue pairs can be derived
	// from the graph.
	ErrNoPositivePairs = fmt.Errorf("%w: no positive user-venue pairs", ErrInvalidConfig)

	// ErrTrainingDiverged is returned when training produces a non-finite
	// loss or weight, typically from a learning rate that is too large.
	ErrTrainingDiverged = fmt.Errorf("%w: training diverged", ErrInvalidConfig)
)

var (
	// ErrIndexOutOfRange is returned by model lookups with an index outside
	// the entity's range.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrModelUnavailable indicates that no trained model is loaded.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrTrainingInProgress is returned when a training run is requested
	// while another one holds the lock.
	ErrTrainingInProgress = errors.New("training already in progress")

	// ErrTrainingThrottled is returned when on-demand training triggers
	// exceed the configured rate.
	ErrTrainingThrottled = errors.New("training trigger rate exceeded")

	// ErrNotFound indicates an unknown user or venue.
	ErrNotFound = errors.New("not found")
)
