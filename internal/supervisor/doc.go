// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

/*
Package supervisor runs DobbySense's long-lived services under a suture v4
supervisor tree.

The tree has two layers so a failing consumer never takes the API down:

	RootSupervisor ("dobbysense")
	├── MessagingSupervisor ("messaging-layer")
	│   ├── EventRouterService (rating consumer)
	│   └── DrainService (waits for in-flight event publishes)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Crashed services restart with backoff. Supervisor events are logged through
sutureslog. Cancelling the context passed to Serve stops every service, each
bounded by TreeConfig.ShutdownTimeout.
*/
package supervisor
