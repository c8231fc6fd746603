// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

// Package audit provides an append-only ledger of issued grants and
// introspection calls, independent of the opaque token store, so an
// operator can answer "who requested this grant, and did it succeed"
// without depending on a hosting application's own logging pipeline.
// It never records the tokens or refresh tokens themselves.
package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes a ledger entry.
type EventType string

const (
	// EventGrantIssued records a successful grant at the token endpoint.
	EventGrantIssued EventType = "grant.issued"
	// EventGrantRejected records a grant the Provider or the dispatcher
	// rejected before any artifact was minted.
	EventGrantRejected EventType = "grant.rejected"
	// EventAuthorizationGranted records a successful authorization-endpoint
	// response (an authorization code, or an implicit/hybrid token set).
	EventAuthorizationGranted EventType = "authorization.granted"
	// EventIntrospectionPerformed records an introspection call.
	EventIntrospectionPerformed EventType = "introspection.performed"
)

// Outcome indicates whether the recorded operation succeeded.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Event is one ledger entry.
type Event struct {
	// ID is a unique identifier for this entry.
	ID string `json:"id"`

	// Timestamp when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type categorizes the event.
	Type EventType `json:"type"`

	// ClientID is the OAuth client this event pertains to.
	ClientID string `json:"client_id"`

	// GrantType is the grant_type involved, or the response_type for an
	// authorization-endpoint entry. Empty for introspection entries.
	GrantType string `json:"grant_type,omitempty"`

	// Outcome indicates success or failure.
	Outcome Outcome `json:"outcome"`

	// Detail carries event-specific context (e.g. rejection reason).
	Detail json.RawMessage `json:"detail,omitempty"`

	// RequestID from the originating HTTP request.
	RequestID string `json:"request_id,omitempty"`
}

// Store defines the interface for ledger persistence.
type Store interface {
	// Save persists an event.
	Save(ctx context.Context, event *Event) error

	// Query retrieves events matching the filter.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Count returns the number of events matching the filter.
	Count(ctx context.Context, filter QueryFilter) (int64, error)

	// Delete removes events older than olderThan, returning the count
	// deleted.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter defines filtering options for ledger queries.
type QueryFilter struct {
	Types     []EventType `json:"types,omitempty"`
	Outcomes  []Outcome   `json:"outcomes,omitempty"`
	ClientID  string      `json:"client_id,omitempty"`
	GrantType string      `json:"grant_type,omitempty"`
	StartTime *time.Time  `json:"start_time,omitempty"`
	EndTime   *time.Time  `json:"end_time,omitempty"`
	Limit     int         `json:"limit,omitempty"`
	Offset    int         `json:"offset,omitempty"`
	OrderDesc bool        `json:"order_desc,omitempty"`
}

// DefaultQueryFilter returns a sensible default filter.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{
		Limit:     100,
		OrderDesc: true,
	}
}

// mustJSON converts a value to JSON, returning an empty object on error.
func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}
