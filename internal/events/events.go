// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

// Package events publishes a narrow, best-effort fan-out of three event
// types — TokenIssued, AuthorizationGranted, TokenIntrospected — so a
// hosting application can build its own session tracking without the
// core depending on the host's logging pipeline. Publish failures are
// logged and swallowed: this bus never blocks, and never fails, an HTTP
// response.
//
// This is narrower than the OpenID Connect Session Management spec's
// front-channel logout notifications, which spec.md rules out as a
// Non-goal: there is no subscriber contract, no iframe, no RP-initiated
// notification wire format here, just a publish-side fan-out a host may
// or may not be listening to.
package events

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Topic names, grounded on the teacher's MediaEvent.Topic() convention
// of a stable, dot-separated subject per event kind.
const (
	TopicTokenIssued          = "connectid.token_issued"
	TopicAuthorizationGranted = "connectid.authorization_granted"
	TopicTokenIntrospected    = "connectid.token_introspected"
)

// TokenIssuedEvent reports a successful token-endpoint grant.
type TokenIssuedEvent struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	ClientID  string    `json:"client_id"`
	GrantType string    `json:"grant_type"`
	Subject   string    `json:"subject,omitempty"`
	Scope     string    `json:"scope,omitempty"`
}

// NewTokenIssuedEvent builds a TokenIssuedEvent with a fresh ID and the
// current timestamp.
func NewTokenIssuedEvent(clientID, grantType, subject, scope string) TokenIssuedEvent {
	return TokenIssuedEvent{
		EventID:   uuid.New().String(),
		Timestamp: time.Now().UTC(),
		ClientID:  clientID,
		GrantType: grantType,
		Subject:   subject,
		Scope:     scope,
	}
}

// AuthorizationGrantedEvent reports a successful authorization-endpoint
// response (an authorization code, or an implicit/hybrid token set).
type AuthorizationGrantedEvent struct {
	EventID      string    `json:"event_id"`
	Timestamp    time.Time `json:"timestamp"`
	ClientID     string    `json:"client_id"`
	ResponseType string    `json:"response_type"`
	Subject      string    `json:"subject,omitempty"`
	Scope        string    `json:"scope,omitempty"`
}

// NewAuthorizationGrantedEvent builds an AuthorizationGrantedEvent with a
// fresh ID and the current timestamp.
func NewAuthorizationGrantedEvent(clientID, responseType, subject, scope string) AuthorizationGrantedEvent {
	return AuthorizationGrantedEvent{
		EventID:      uuid.New().String(),
		Timestamp:    time.Now().UTC(),
		ClientID:     clientID,
		ResponseType: responseType,
		Subject:      subject,
		Scope:        scope,
	}
}

// TokenIntrospectedEvent reports an introspection call outcome.
type TokenIntrospectedEvent struct {
	EventID   string    `json:"event_id"`
	Timestamp time.Time `json:"timestamp"`
	ClientID  string    `json:"client_id,omitempty"`
	Active    bool      `json:"active"`
}

// NewTokenIntrospectedEvent builds a TokenIntrospectedEvent with a fresh
// ID and the current timestamp.
func NewTokenIntrospectedEvent(clientID string, active bool) TokenIntrospectedEvent {
	return TokenIntrospectedEvent{
		EventID:   uuid.New().String(),
		Timestamp: time.Now().UTC(),
		ClientID:  clientID,
		Active:    active,
	}
}

func marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}
