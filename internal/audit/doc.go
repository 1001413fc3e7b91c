// DobbySense - Taste Embedding Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dobbysense

/*
Package audit records security-relevant actions: genre layer publications
and authorization denials.

Events are written asynchronously through a buffered channel so request
handlers never wait on the store. A full buffer drops the event and counts
it in dobbysense_audit_events_total{result="dropped"}.

	logger := audit.NewLogger(audit.NewMemoryStore(10000), audit.DefaultConfig())
	defer logger.Close()

	logger.Log(ctx, &audit.Event{
		Type:     audit.TypeLayerPublished,
		Outcome:  audit.OutcomeSuccess,
		ActorID:  subject.ID,
		Resource: "genres-v2",
	})

Recent events are served to administrators at GET /admin/audit.
*/
package audit
