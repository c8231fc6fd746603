// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

// Package events fans out a narrow set of domain events — token issued,
// authorization granted, token introspected — to any interested
// subscriber a hosting application chooses to attach, without the core
// depending on what that subscriber does with them.
//
// # Transport
//
// By default the Bus publishes over an in-process Watermill gochannel:
// there is no external broker, and publishes with no subscriber attached
// are simply dropped. Setting Config.NATSURL switches the Bus to a NATS
// transport, wrapped in a circuit breaker so a degraded broker adds no
// latency to request handling once it trips open.
//
// # Usage
//
//	bus, err := events.NewBus(events.Config{Enabled: true})
//	defer bus.Close()
//
//	bus.PublishTokenIssued(ctx, clientID, "authorization_code", subject, scope)
//	bus.PublishAuthorizationGranted(ctx, clientID, "code", subject, scope)
//	bus.PublishTokenIntrospected(ctx, clientID, active)
//
// A nil *Bus, or one built with Config.Enabled false, turns every
// Publish* call into a no-op, so callers never need a nil check of
// their own.
package events
