// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

/*
Package events moves rating and embedding notifications through a
Watermill message bus.

Transports:
  - channel: in-process gochannel pub/sub (default, single instance)
  - nats: core NATS via watermill-nats, optionally against an embedded
    nats-server for self-contained deployments

Flow:

	POST /movies/{id}/rate
	  -> Dispatcher.DispatchRating (rate limited, detached goroutine)
	  -> topic sense.ratings
	  -> Router (ack, recover, dedup) -> RatingHandler -> sense.Updater
	  -> Dispatcher.EmbeddingUpdated -> topic sense.embedding.updated

Delivery is best effort. Handler errors are logged and the message is
acknowledged; a failed update is not retried.
*/
package events
