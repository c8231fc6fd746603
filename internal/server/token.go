// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/connectid/internal/logging"
	"github.com/tomtom215/connectid/internal/protocol"
	"github.com/tomtom215/connectid/internal/provider"
	"github.com/tomtom215/connectid/internal/ticket"
	"github.com/tomtom215/connectid/internal/token"
)

const responseTypeRefreshToken = "refresh_token"

// ServeToken implements the token endpoint, spec.md §4.3.
func (h *Handler) ServeToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeJSONError(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("method not allowed"))
		return
	}
	if !isFormURLEncoded(r.Header.Get("Content-Type")) {
		writeJSONError(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("unsupported content type"))
		return
	}

	msg, err := parseTokenMessage(r)
	if err != nil {
		writeJSONError(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("malformed request"))
		return
	}

	grantType := msg.GrantType()
	if grantType == "" {
		writeJSONError(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("grant_type is missing"))
		return
	}

	clientID, clientSecret, hasSecret := resolveClientCredentials(r, msg)
	msg.Set(protocol.ParamClientID, clientID)
	authResult := h.opts.Provider.ValidateClientAuthentication(ctx, clientID, clientSecret, hasSecret)
	if authResult.IsRejected() {
		writeTokenError(w, authResult.Err(), protocol.ErrInvalidClient)
		return
	}
	clientAuthenticated := authResult.IsValidated()

	if grantType == "client_credentials" && !clientAuthenticated {
		writeJSONError(w, protocol.NewError(protocol.ErrUnauthorizedClient))
		return
	}

	switch grantType {
	case "authorization_code":
		h.grantFromToken(w, r, msg, clientID, clientAuthenticated, receiveKindCode)
	case "refresh_token":
		h.grantFromToken(w, r, msg, clientID, clientAuthenticated, receiveKindRefresh)
	case "password":
		h.grantPassword(w, r, msg)
	case "client_credentials":
		h.grantClientCredentials(w, r, msg)
	default:
		h.grantCustom(w, r, msg)
	}
}

func writeTokenError(w http.ResponseWriter, wireErr *protocol.Error, fallback string) {
	if wireErr != nil {
		writeJSONError(w, wireErr)
		return
	}
	writeJSONError(w, protocol.NewError(fallback))
}

type receiveKind int

const (
	receiveKindCode receiveKind = iota
	receiveKindRefresh
)

// grantFromToken implements the shared authorization_code/refresh_token
// prelude of spec.md §4.3: materialize the ticket, enforce binding
// checks, run ValidateTokenRequest, then the per-grant Grant* hook.
func (h *Handler) grantFromToken(w http.ResponseWriter, r *http.Request, msg *protocol.Message, clientID string, clientAuthenticated bool, kind receiveKind) {
	ctx := r.Context()

	var tk *ticket.Ticket
	var err error
	switch kind {
	case receiveKindCode:
		tk, err = h.receiveAuthorizationCode(ctx, msg.Code())
	case receiveKindRefresh:
		tk, err = h.receiveRefreshToken(msg.RefreshToken())
	}
	if err != nil {
		writeJSONError(w, protocol.NewError(protocol.ErrInvalidGrant))
		return
	}
	if !tk.ExpiresAt.IsZero() && !tk.ExpiresAt.After(time.Now()) {
		writeJSONError(w, protocol.NewError(protocol.ErrInvalidGrant))
		return
	}

	if kind == receiveKindCode {
		if tk.RedirectURI() != msg.RedirectURI() {
			writeJSONError(w, protocol.NewError(protocol.ErrInvalidGrant))
			return
		}
		delete(tk.Properties, ticket.PropRedirectURI)
	}
	if kind == receiveKindRefresh {
		if tk.ClientAuthenticated() && !clientAuthenticated {
			writeJSONError(w, protocol.NewError(protocol.ErrInvalidGrant))
			return
		}
	}
	if ticketClientID := tk.ClientID(); ticketClientID != "" && ticketClientID != clientID {
		writeJSONError(w, protocol.NewError(protocol.ErrInvalidGrant))
		return
	}
	if resource := msg.Resource(); resource != "" {
		if tk.Resource() == "" || !isSubsetOfSpaceList(resource, tk.Resource()) {
			writeJSONError(w, protocol.NewError(protocol.ErrInvalidGrant))
			return
		}
	}
	if scope := msg.GetOr(protocol.ParamScope, ""); scope != "" {
		if tk.Scope() == "" || !isSubsetOfSpaceList(scope, tk.Scope()) {
			writeJSONError(w, protocol.NewError(protocol.ErrInvalidGrant))
			return
		}
	}

	if result := h.opts.Provider.ValidateTokenRequest(ctx, msg, tk); result.IsRejected() {
		h.recordGrantRejected(ctx, clientID, msg.GrantType(), "token request validation rejected")
		writeTokenError(w, result.Err(), protocol.ErrInvalidGrant)
		return
	}

	var grantResult provider.GrantResult
	if kind == receiveKindCode {
		grantResult = h.opts.Provider.GrantAuthorizationCode(ctx, msg, tk)
	} else {
		grantResult = h.opts.Provider.GrantRefreshToken(ctx, msg, tk)
	}
	if !grantResult.Result.IsValidated() {
		h.recordGrantRejected(ctx, clientID, msg.GrantType(), "grant hook rejected")
		writeTokenError(w, grantResult.Result.Err(), protocol.ErrInvalidGrant)
		return
	}
	finalTicket := tk
	if grantResult.Ticket != nil {
		finalTicket = grantResult.Ticket
	}

	var clampTo *time.Time
	if kind == receiveKindRefresh && !h.opts.UseSlidingExpiration {
		clampTo = &tk.ExpiresAt
	}
	h.writeTokenResponse(w, r, msg, finalTicket, clientAuthenticated, clampTo)
}

func (h *Handler) grantPassword(w http.ResponseWriter, r *http.Request, msg *protocol.Message) {
	if msg.Username() == "" || msg.Password() == "" {
		writeJSONError(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("username and password are required"))
		return
	}
	result := h.opts.Provider.GrantResourceOwnerCredentials(r.Context(), msg)
	h.finishGrant(w, r, msg, result, false)
}

func (h *Handler) grantClientCredentials(w http.ResponseWriter, r *http.Request, msg *protocol.Message) {
	result := h.opts.Provider.GrantClientCredentials(r.Context(), msg)
	h.finishGrant(w, r, msg, result, true)
}

func (h *Handler) grantCustom(w http.ResponseWriter, r *http.Request, msg *protocol.Message) {
	result := h.opts.Provider.GrantCustomExtension(r.Context(), msg)
	h.finishGrant(w, r, msg, result, false)
}

func (h *Handler) finishGrant(w http.ResponseWriter, r *http.Request, msg *protocol.Message, result provider.GrantResult, clientAuthenticated bool) {
	if !result.Result.IsValidated() {
		h.recordGrantRejected(r.Context(), msg.ClientID(), msg.GrantType(), "grant hook rejected")
		writeTokenError(w, result.Result.Err(), protocol.ErrInvalidGrant)
		return
	}
	if result.Ticket == nil {
		writeJSONError(w, protocol.NewError(protocol.ErrServerError))
		return
	}
	h.writeTokenResponse(w, r, msg, result.Ticket, clientAuthenticated, nil)
}

// writeTokenResponse mints the artifacts spec.md §4.3 prescribes and
// writes the JSON success body.
func (h *Handler) writeTokenResponse(w http.ResponseWriter, r *http.Request, msg *protocol.Message, tk *ticket.Ticket, clientAuthenticated bool, clampTo *time.Time) {
	ctx := r.Context()
	now := time.Now().UTC()
	responseType := msg.ResponseType()
	body := map[string]any{}

	lifetime := func(base time.Duration) time.Time {
		exp := now.Add(base)
		if clampTo != nil && exp.After(*clampTo) {
			exp = *clampTo
		}
		return exp
	}

	audiences := audiencesFor(tk, tk.ClientID())
	var accessToken string

	if responseType.Len() == 0 || responseType.Contains(protocol.ResponseTypeToken) {
		accessTicket := tk.Clone()
		accessTicket.IssuedAt = now
		accessTicket.ExpiresAt = lifetime(h.opts.AccessTokenLifetime)
		at, err := h.signer().MintAccessToken(accessTicket, audiences)
		if err != nil {
			logging.CtxErr(ctx, err).Msg("server: mint access token")
			writeJSONError(w, protocol.NewError(protocol.ErrServerError))
			return
		}
		accessToken = at
		body[protocol.ParamAccessToken] = accessToken
		body["token_type"] = "Bearer"
		body["expires_in"] = token.ExpiresIn(accessTicket.ExpiresAt, now)
	}

	if (responseType.Len() == 0 || responseType.Contains(protocol.ResponseTypeIDToken)) && tk.HasScope(protocol.ScopeOpenID) {
		idTicket := tk.Clone()
		idTicket.IssuedAt = now
		idTicket.ExpiresAt = lifetime(h.opts.IdentityTokenLifetime)
		idToken, err := h.signer().MintIdentityToken(idTicket, audiences, tk.Nonce(), msg.Code(), accessToken)
		if err != nil {
			logging.CtxErr(ctx, err).Msg("server: mint identity token")
			writeJSONError(w, protocol.NewError(protocol.ErrServerError))
			return
		}
		body[protocol.ParamIDToken] = idToken
	}

	if (responseType.Len() == 0 || responseType.Contains(responseTypeRefreshToken)) && tk.HasScope(protocol.ScopeOfflineAccess) {
		refreshTicket := tk.Clone()
		refreshTicket.IssuedAt = now
		refreshTicket.ExpiresAt = lifetime(h.opts.RefreshTokenLifetime)
		refreshTicket.SetClientAuthenticated(clientAuthenticated)
		rt, err := h.opts.OpaqueSerializer.Protect(refreshTicket)
		if err != nil {
			logging.CtxErr(ctx, err).Msg("server: protect refresh token")
			writeJSONError(w, protocol.NewError(protocol.ErrServerError))
			return
		}
		body[protocol.ParamRefreshToken] = rt
	}

	h.recordGrantIssued(ctx, tk.ClientID(), grantTypeFor(msg), tk.Subject(), tk.Scope())

	setNoCacheHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.CtxErr(ctx, err).Msg("server: encode token response")
	}
}

// grantTypeFor recovers the grant_type that produced a token response,
// falling back to the response_type when the message carries no
// grant_type.
func grantTypeFor(msg *protocol.Message) string {
	if gt := msg.GrantType(); gt != "" {
		return gt
	}
	return msg.ResponseType().String()
}

// recordGrantIssued appends to the audit ledger and publishes a
// TokenIssued event, both optional and both best-effort: a nil Audit or
// Events collaborator turns this into a no-op.
func (h *Handler) recordGrantIssued(ctx context.Context, clientID, grantType, subject, scope string) {
	if h.opts.Audit != nil {
		h.opts.Audit.LogGrantIssued(ctx, clientID, grantType)
	}
	if h.opts.Events != nil {
		h.opts.Events.PublishTokenIssued(ctx, clientID, grantType, subject, scope)
	}
}

// recordGrantRejected appends a failure entry to the audit ledger.
// Best-effort: a nil Audit collaborator turns this into a no-op.
func (h *Handler) recordGrantRejected(ctx context.Context, clientID, grantType, reason string) {
	if h.opts.Audit != nil {
		h.opts.Audit.LogGrantRejected(ctx, clientID, grantType, reason)
	}
}

// receiveAuthorizationCode takes the opaque ciphertext stored under code
// out of the Request Cache (single-use: TakeAuthorizationCode removes it
// atomically) and unprotects it into a Ticket.
func (h *Handler) receiveAuthorizationCode(ctx context.Context, code string) (*ticket.Ticket, error) {
	ciphertext, err := h.opts.Cache.TakeAuthorizationCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return h.opts.OpaqueSerializer.Unprotect(string(ciphertext))
}

// receiveRefreshToken unprotects a refresh token directly: unlike an
// authorization code, the refresh token itself is the opaque ciphertext —
// there is no Request Cache indirection (spec.md Non-goals: "persistent
// storage of long-lived refresh tokens across process restarts" is left
// to a pluggable data-protection collaborator, not the core).
func (h *Handler) receiveRefreshToken(refreshToken string) (*ticket.Ticket, error) {
	return h.opts.OpaqueSerializer.Unprotect(refreshToken)
}

func isSubsetOfSpaceList(requested, granted string) bool {
	grantedSet := protocol.ParseTokenSet(granted)
	for _, tok := range protocol.ParseTokenSet(requested).Tokens() {
		if !grantedSet.Contains(tok) {
			return false
		}
	}
	return true
}
