// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

/*
Package middleware provides HTTP middleware for the Tablemates API.

All middleware uses the func(http.Handler) http.Handler shape so it plugs
into chi's r.Use directly.

Key Components:

  - RequestID: X-Request-ID propagation and a request-scoped logger
  - RequestLogger: one structured log line per request
  - PrometheusMetrics: request counts, latency, and in-flight gauge

Metrics are labelled with the chi route pattern rather than the raw path,
so /api/v1/users/42/venues and /api/v1/users/7/venues share one series.

Middleware Stack:

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors)
	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(rateLimit)
	    r.Use(middleware.PrometheusMetrics)
	    ...
	})
*/
package middleware
