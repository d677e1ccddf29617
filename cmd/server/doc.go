// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

/*
Package main is the entry point for the Tablemates server.

Tablemates recommends venues to diners and diners to each other. A
LightGCN-style graph model trained with BPR on the interaction log is
blended with rule-based scoring (distance, price, cuisine, rating,
popularity, social signals) to rank venues, find compatible companions,
and pick venues for groups.

# Application Architecture

The server runs under Suture v4 supervision:

	RootSupervisor ("tablemates")
	├── ModelSupervisor ("model-layer")
	│   └── TrainingService: startup, scheduled, and on-demand training
	└── APISupervisor ("api-layer")
	    └── HTTPServerService: chi router with the REST API

Startup order:

 1. Configuration (koanf: defaults, config.yaml, environment)
 2. Logging (zerolog)
 3. DuckDB record store, optionally seeded with demo data
 4. Model stores: gob weight files and BadgerDB metadata under recommend.storage.model_path
 5. Recommendation engine, restoring the latest persisted model
 6. Supervisor tree

# Configuration

Common environment variables:

	HTTP_PORT            listen port (default 8080)
	DUCKDB_PATH          database file (default /data/tablemates.duckdb)
	SEED_DEMO_DATA       seed an empty database with a demo city
	LOG_LEVEL            trace, debug, info, warn, error
	TRAIN_INTERVAL       scheduled retraining interval (default 24h)
	TRAIN_ON_STARTUP     train at start when no model is persisted
	RECOMMEND_MODEL_PATH model artifact directory

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains
in-flight requests, the training loop stops, and the database is
checkpointed and closed.
*/
package main
