// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package database is the DuckDB-backed record store for Tablemates.
//
// # Overview
//
// DB implements engine.Store: the graph builder reads interactions, venue
// interests, bookings, and friendships through it, and the social and
// group components read user and venue snapshots.
//
// # Files
//
//   - database.go: connection lifecycle and pool configuration
//   - database_schema.go: table, sequence, and index creation
//   - entities.go: users and venues (preferences stored as JSON text)
//   - records.go: interaction log, venue interests, bookings, friendships
//   - query_builder.go: WHERE clause construction with IN lists
//   - seed.go: deterministic demo data for empty databases
//
// # Concurrency
//
// ExpressInterest runs the interest upsert and its save interaction in one
// transaction. DuckDB uses optimistic concurrency control, so a conflicting
// concurrent upsert is retried a bounded number of times.
package database
