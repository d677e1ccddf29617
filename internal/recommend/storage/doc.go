// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package storage persists trained embedding models.
//
// A trained model is saved as two artifacts:
//
//   - Weights: the embedding table, its dimensions, and the edge list it was
//     trained on, written by WeightStore as a gob-encoded, gzip-compressed
//     file with a SHA-256 checksum
//   - Metadata: ID mappings, loss history, and training provenance, written
//     by MetadataStore as JSON values in BadgerDB
//
// Both artifacts are keyed by a monotonically increasing version. The
// metadata store also records which version is active.
//
// # Storage Format
//
//	filename: lightgcn_v{version}.gob.gz
//	badger:   model/meta/{version:010d} -> JSON Metadata
//	          model/active              -> version
package storage
