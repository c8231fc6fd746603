// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"context"

	"github.com/tomtom215/connectid/internal/ticket"
)

type ticketContextKey struct{}

// ContextWithTicket attaches an already-authenticated Ticket to ctx. A
// host's own sign-in middleware, running in front of ServeAuthorize, calls
// this once it has established who the user is; the default
// (Provider.AuthorizationEndpoint returning Skipped or Validated) behavior
// is to complete the authorization response using this ticket — this is
// the "hosts that run their own middleware in front" case spec.md §4.7
// describes for the endpoint-level hook default.
func ContextWithTicket(ctx context.Context, tk *ticket.Ticket) context.Context {
	return context.WithValue(ctx, ticketContextKey{}, tk)
}

// TicketFromContext returns the ticket attached by ContextWithTicket, or
// nil if none was attached.
func TicketFromContext(ctx context.Context) *ticket.Ticket {
	tk, _ := ctx.Value(ticketContextKey{}).(*ticket.Ticket)
	return tk
}
