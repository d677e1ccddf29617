// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are package-level and registered with the default registry
through promauto, so importing the package is enough to expose them.

# Overview

The package provides metrics for:
  - HTTP request latency and throughput
  - DuckDB query performance
  - Model training runs, duration, and per-epoch loss
  - Interaction graph size
  - Hybrid recommendation fallbacks and latency
  - Circuit breaker state transitions
  - Recommendation cache hit/miss rates

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:8080/metrics

# Example Queries

Training failure rate:

	sum(rate(recommend_training_runs_total{result!="success"}[1h]))

Share of venue scores served without the learned model:

	sum(rate(recommend_hybrid_fallbacks_total[5m]))
*/
package metrics
