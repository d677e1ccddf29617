// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

/*
Package config loads application configuration with Koanf v2.

Sources are layered with clear precedence:

 1. Defaults: defaultConfig(), including recommend.DefaultConfig()
 2. Config file: config.yaml (or the path in CONFIG_PATH)
 3. Environment variables: mapped explicitly by envTransformFunc

Unmapped environment variables are ignored so unrelated process state never
leaks into configuration.

Example:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	db, err := database.New(&cfg.Database)

Config is immutable after Load and safe for concurrent reads.
*/
package config
