// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

/*
Package api provides the HTTP API for Tablemates using the chi router.

Endpoints:

	GET  /api/v1/users/{id}/venues        personalized venue ranking (limit, category, min_rating)
	GET  /api/v1/users/{id}/companions    compatible dining companions (venue_id, limit)
	GET  /api/v1/venues/{id}/interested   users explicitly interested in a venue (user_id, limit)
	POST /api/v1/venues/{id}/interest     express interest in a venue
	POST /api/v1/interactions             record an interaction
	POST /api/v1/groups/venues            venues for a group of users
	POST /api/v1/model/train              start a training run
	GET  /api/v1/model/status             serving model and last run
	GET  /api/v1/health[/live|/ready]     health checks
	GET  /metrics                         Prometheus metrics

Every JSON response uses the APIResponse envelope. Scores are rounded to
three decimals and distances to two; the engine keeps full precision.

Error mapping:

	recommend.ErrInvalidConfig, validation  400 VALIDATION_ERROR
	recommend.ErrNotFound                   404 NOT_FOUND
	recommend.ErrTrainingInProgress         409 TRAINING_IN_PROGRESS
	recommend.ErrTrainingThrottled          429 RATE_LIMITED
	recommend.ErrModelUnavailable           503 MODEL_UNAVAILABLE
	anything else                           500 INTERNAL_ERROR
*/
package api
