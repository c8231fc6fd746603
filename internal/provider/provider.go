// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

// Package provider implements the extension-point contract that lets a
// hosting application validate clients, accept or reject grants, and
// override endpoint responses without touching the core flow.
//
// Per spec.md §9, the three/four-state decision is modeled as a tagged sum
// type (Result), not boolean flags, closing the door on invalid
// combinations such as Validated+Rejected simultaneously set. The
// extensibility surface itself is a single interface (Provider) backed by
// a struct of function values (Hooks): methods not overridden by the host
// fall back to the defaults spec.md §4.7 prescribes.
package provider

import (
	"context"

	"github.com/tomtom215/connectid/internal/protocol"
	"github.com/tomtom215/connectid/internal/ticket"
)

// kind is the private tag backing Result; it is never exported so callers
// cannot construct an invalid combination.
type kind int

const (
	kindSkipped kind = iota
	kindValidated
	kindRejected
	kindHandled
)

// Result is the outcome of a provider hook invocation. Validation hooks use
// Skipped/Validated/Rejected; endpoint-level hooks additionally use
// Handled, meaning the provider itself wrote the HTTP response and the core
// must not.
type Result struct {
	kind kind
	err  *protocol.Error
}

// Skip returns the default, non-committal result: let core default
// behavior run.
func Skip() Result { return Result{kind: kindSkipped} }

// Validate returns a result that approves the request.
func Validate() Result { return Result{kind: kindValidated} }

// Reject returns a result that aborts the request with the given wire
// error.
func Reject(err *protocol.Error) Result { return Result{kind: kindRejected, err: err} }

// Handle returns a result meaning the provider itself wrote the response;
// valid only for the endpoint-level hooks that document support for it
// (MatchEndpoint, AuthorizationEndpoint).
func Handle() Result { return Result{kind: kindHandled} }

func (r Result) IsSkipped() bool   { return r.kind == kindSkipped }
func (r Result) IsValidated() bool { return r.kind == kindValidated }
func (r Result) IsRejected() bool  { return r.kind == kindRejected }
func (r Result) IsHandled() bool   { return r.kind == kindHandled }

// Err returns the wire error attached to a Rejected result, or nil.
func (r Result) Err() *protocol.Error { return r.err }

// GrantResult is the outcome of a grant hook: a Result plus an optional
// replacement ticket. Per spec.md §4.3, GrantAuthorizationCode and
// GrantRefreshToken "MAY replace the ticket" — a nil Ticket means the
// original, as materialized from the token, is used unchanged.
type GrantResult struct {
	Result Result
	Ticket *ticket.Ticket
}

// Provider is the full extension-point surface. A hosting application
// implements it (directly, or via New with a Hooks value) to customize
// client validation, grant decisions, and endpoint behavior.
type Provider interface {
	// MatchEndpoint lets the host reclassify a request path — e.g. to treat
	// an "accept"/"deny" sub-path as the authorization endpoint. Default:
	// Skip (use the dispatcher's own path match).
	MatchEndpoint(ctx context.Context, method, path string) Result

	// ValidateClientRedirectUri must Validate or the request is rejected
	// with invalid_client (spec.md §4.2 step 4). Default: Skip.
	ValidateClientRedirectUri(ctx context.Context, clientID, redirectURI string) Result

	// ValidateClientAuthentication validates client_id/client_secret (or
	// their Basic-auth equivalents). Default: Skip.
	ValidateClientAuthentication(ctx context.Context, clientID, clientSecret string, hasSecret bool) Result

	// ValidateClientLogoutRedirectUri validates post_logout_redirect_uri.
	// Default: Skip.
	ValidateClientLogoutRedirectUri(ctx context.Context, clientID, uri string) Result

	// ValidateAuthorizationRequest runs after all structural checks pass;
	// rejection propagates as a redirect error. Default: Skip.
	ValidateAuthorizationRequest(ctx context.Context, msg *protocol.Message) Result

	// ValidateTokenRequest runs with the materialized ticket attached, for
	// authorization_code and refresh_token grants. Default: Skip.
	ValidateTokenRequest(ctx context.Context, msg *protocol.Message, tk *ticket.Ticket) Result

	// GrantAuthorizationCode decides whether to honor an authorization_code
	// grant. Default: reject (not-Validated).
	GrantAuthorizationCode(ctx context.Context, msg *protocol.Message, tk *ticket.Ticket) GrantResult

	// GrantRefreshToken decides whether to honor a refresh_token grant.
	// Default: reject.
	GrantRefreshToken(ctx context.Context, msg *protocol.Message, tk *ticket.Ticket) GrantResult

	// GrantResourceOwnerCredentials implements the password grant. Default:
	// reject — hosts must opt in explicitly.
	GrantResourceOwnerCredentials(ctx context.Context, msg *protocol.Message) GrantResult

	// GrantClientCredentials implements the client_credentials grant.
	// Default: reject with unauthorized_client.
	GrantClientCredentials(ctx context.Context, msg *protocol.Message) GrantResult

	// GrantCustomExtension handles any grant_type not otherwise recognized.
	// Default: reject with unsupported_grant_type.
	GrantCustomExtension(ctx context.Context, msg *protocol.Message) GrantResult

	// AuthorizationEndpoint is invoked once an authorization request has
	// been cached and validated; it is the hand-off to the host's sign-in
	// UI. Handled means the provider wrote the response itself. Default:
	// Skip (core continues as if the user is already signed in, which only
	// makes sense for hosts that run their own middleware in front).
	AuthorizationEndpoint(ctx context.Context, msg *protocol.Message) Result
}

// Hooks is a struct of function values, one per Provider method. A nil
// field falls back to the default prescribed by spec.md §4.7. This is the
// "struct of function values" rendering of the re-architected
// extensibility surface: the core always calls through the Provider
// interface; hookProvider's methods are the "default methods" that
// delegate to whichever callbacks the host actually supplied.
type Hooks struct {
	MatchEndpoint                   func(ctx context.Context, method, path string) Result
	ValidateClientRedirectUri       func(ctx context.Context, clientID, redirectURI string) Result
	ValidateClientAuthentication    func(ctx context.Context, clientID, clientSecret string, hasSecret bool) Result
	ValidateClientLogoutRedirectUri func(ctx context.Context, clientID, uri string) Result
	ValidateAuthorizationRequest    func(ctx context.Context, msg *protocol.Message) Result
	ValidateTokenRequest            func(ctx context.Context, msg *protocol.Message, tk *ticket.Ticket) Result
	GrantAuthorizationCode          func(ctx context.Context, msg *protocol.Message, tk *ticket.Ticket) GrantResult
	GrantRefreshToken               func(ctx context.Context, msg *protocol.Message, tk *ticket.Ticket) GrantResult
	GrantResourceOwnerCredentials   func(ctx context.Context, msg *protocol.Message) GrantResult
	GrantClientCredentials          func(ctx context.Context, msg *protocol.Message) GrantResult
	GrantCustomExtension            func(ctx context.Context, msg *protocol.Message) GrantResult
	AuthorizationEndpoint           func(ctx context.Context, msg *protocol.Message) Result
}

type hookProvider struct{ h Hooks }

// New builds a Provider from a Hooks value. Any unset field uses the
// spec.md §4.7 default.
func New(h Hooks) Provider { return &hookProvider{h: h} }

func (p *hookProvider) MatchEndpoint(ctx context.Context, method, path string) Result {
	if p.h.MatchEndpoint != nil {
		return p.h.MatchEndpoint(ctx, method, path)
	}
	return Skip()
}

func (p *hookProvider) ValidateClientRedirectUri(ctx context.Context, clientID, redirectURI string) Result {
	if p.h.ValidateClientRedirectUri != nil {
		return p.h.ValidateClientRedirectUri(ctx, clientID, redirectURI)
	}
	return Skip()
}

func (p *hookProvider) ValidateClientAuthentication(ctx context.Context, clientID, clientSecret string, hasSecret bool) Result {
	if p.h.ValidateClientAuthentication != nil {
		return p.h.ValidateClientAuthentication(ctx, clientID, clientSecret, hasSecret)
	}
	return Skip()
}

func (p *hookProvider) ValidateClientLogoutRedirectUri(ctx context.Context, clientID, uri string) Result {
	if p.h.ValidateClientLogoutRedirectUri != nil {
		return p.h.ValidateClientLogoutRedirectUri(ctx, clientID, uri)
	}
	return Skip()
}

func (p *hookProvider) ValidateAuthorizationRequest(ctx context.Context, msg *protocol.Message) Result {
	if p.h.ValidateAuthorizationRequest != nil {
		return p.h.ValidateAuthorizationRequest(ctx, msg)
	}
	return Skip()
}

func (p *hookProvider) ValidateTokenRequest(ctx context.Context, msg *protocol.Message, tk *ticket.Ticket) Result {
	if p.h.ValidateTokenRequest != nil {
		return p.h.ValidateTokenRequest(ctx, msg, tk)
	}
	return Skip()
}

func (p *hookProvider) GrantAuthorizationCode(ctx context.Context, msg *protocol.Message, tk *ticket.Ticket) GrantResult {
	if p.h.GrantAuthorizationCode != nil {
		return p.h.GrantAuthorizationCode(ctx, msg, tk)
	}
	return GrantResult{Result: Reject(protocol.NewError(protocol.ErrInvalidGrant))}
}

func (p *hookProvider) GrantRefreshToken(ctx context.Context, msg *protocol.Message, tk *ticket.Ticket) GrantResult {
	if p.h.GrantRefreshToken != nil {
		return p.h.GrantRefreshToken(ctx, msg, tk)
	}
	return GrantResult{Result: Reject(protocol.NewError(protocol.ErrInvalidGrant))}
}

func (p *hookProvider) GrantResourceOwnerCredentials(ctx context.Context, msg *protocol.Message) GrantResult {
	if p.h.GrantResourceOwnerCredentials != nil {
		return p.h.GrantResourceOwnerCredentials(ctx, msg)
	}
	return GrantResult{Result: Reject(protocol.NewError(protocol.ErrInvalidGrant))}
}

func (p *hookProvider) GrantClientCredentials(ctx context.Context, msg *protocol.Message) GrantResult {
	if p.h.GrantClientCredentials != nil {
		return p.h.GrantClientCredentials(ctx, msg)
	}
	return GrantResult{Result: Reject(protocol.NewError(protocol.ErrUnauthorizedClient))}
}

func (p *hookProvider) GrantCustomExtension(ctx context.Context, msg *protocol.Message) GrantResult {
	if p.h.GrantCustomExtension != nil {
		return p.h.GrantCustomExtension(ctx, msg)
	}
	return GrantResult{Result: Reject(protocol.NewError(protocol.ErrUnsupportedGrantType))}
}

func (p *hookProvider) AuthorizationEndpoint(ctx context.Context, msg *protocol.Message) Result {
	if p.h.AuthorizationEndpoint != nil {
		return p.h.AuthorizationEndpoint(ctx, msg)
	}
	return Skip()
}
