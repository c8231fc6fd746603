// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package protocol

// Wire-visible error codes, normative per spec.md §7.
const (
	ErrInvalidRequest          = "invalid_request"
	ErrInvalidClient           = "invalid_client"
	ErrInvalidGrant            = "invalid_grant"
	ErrUnauthorizedClient      = "unauthorized_client"
	ErrUnsupportedGrantType    = "unsupported_grant_type"
	ErrUnsupportedResponseType = "unsupported_response_type"
	ErrServerError             = "server_error"
)

// Error is a wire error: the taxonomy in spec.md §7, carried as a typed
// value so handler code builds redirect/JSON error responses from one
// shape instead of ad hoc strings. It is a value type, not a Go `error` —
// internal collaborator failures are wrapped as regular errors and
// translated into an Error only at the point a response is written.
type Error struct {
	Code        string
	Description string
	URI         string
}

// NewError builds an Error with only a code; Description/URI are optional.
func NewError(code string) *Error {
	return &Error{Code: code}
}

// WithDescription returns a copy of e with Description set.
func (e *Error) WithDescription(desc string) *Error {
	c := *e
	c.Description = desc
	return &c
}

// WithURI returns a copy of e with URI set.
func (e *Error) WithURI(uri string) *Error {
	c := *e
	c.URI = uri
	return &c
}

func (e *Error) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

// Params returns the error's wire representation as name/value pairs,
// suitable for appending to a query string, a fragment, or a JSON body.
// Empty fields are omitted.
func (e *Error) Params() map[string]string {
	p := map[string]string{ParamError: e.Code}
	if e.Description != "" {
		p[ParamErrorDescription] = e.Description
	}
	if e.URI != "" {
		p[ParamErrorURI] = e.URI
	}
	return p
}
