// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package recommend holds the shared domain types, configuration, and
// errors for the venue and dining companion recommender.
//
// # Architecture
//
// Recommendations fuse two signal sources:
//
//   - A rule-based multi-factor scorer over spatial, price, rating, and
//     preference data (package scoring)
//   - A LightGCN-style embedding propagation model trained with BPR on the
//     bipartite user-venue interaction graph (packages graph, model, trainer)
//
// Package hybrid combines the two into one ranked list and degrades to
// rule-only scores whenever the learned model cannot answer. Package group
// ranks venues for a set of users without consulting the model. Package
// engine owns the serving model and the training lifecycle.
//
// # Data Flow
//
//	records -> graph.Builder -> (edges, metadata) -> trainer.Trainer
//	        -> model + metadata -> hybrid.Recommender -> ranked results
//
// # Determinism
//
// Graph index assignment sorts entity IDs ascending. Model initialization,
// negative sampling, and epoch shuffling use a seeded RNG, so identical
// records and configuration produce identical models.
//
// # Thread Safety
//
// Scoring is pure and safe for concurrent use. The engine swaps trained
// models in with an atomic pointer and serializes training runs.
package recommend
