// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

// Package audit provides an append-only ledger of issued grants and
// introspection calls, independent of the opaque token store.
//
// # Event Types
//
//   - grant.issued: a successful token-endpoint grant
//   - grant.rejected: a grant the Provider or dispatcher rejected
//   - authorization.granted: a successful authorization-endpoint response
//   - introspection.performed: an introspection call
//
// # Architecture
//
//	Logger.Log() -> Event Buffer (chan) -> Async Writer -> Store
//
// Log never blocks the HTTP response path: events are buffered in a
// channel and a background goroutine persists them to the store. A full
// buffer drops the event with a warning log rather than stalling the
// caller.
//
// # Usage
//
//	store := audit.NewDuckDBStore(db)
//	logger := audit.NewLogger(store, audit.DefaultConfig())
//	defer logger.Close()
//	logger.StartCleanupRoutine(ctx)
//
//	logger.LogGrantIssued(ctx, clientID, "authorization_code")
//	logger.LogIntrospection(ctx, clientID, active)
//
//	events, err := logger.Query(ctx, audit.QueryFilter{
//		ClientID:  clientID,
//		Limit:     100,
//		OrderDesc: true,
//	})
package audit
