// Tablemates - Venue and Dining Companion Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tablemates

// Package supervisor provides suture-based process supervision.
//
// The tree has two layers under a root named "tablemates":
//
//	tablemates
//	├── model-layer  services.TrainingService
//	└── api-layer    services.HTTPServerService
//
// Supervisor events are logged through sutureslog on a slog.Logger backed
// by the zerolog global logger (logging.NewSlogLogger).
//
// Example:
//
//	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(logging.Logger()), supervisor.DefaultTreeConfig())
//	tree.AddModelService(trainingSvc)
//	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
//	err = tree.Serve(ctx)
package supervisor
