// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/tomtom215/connectid/internal/logging"
	"github.com/tomtom215/connectid/internal/protocol"
	"github.com/tomtom215/connectid/internal/ticket"
	"github.com/tomtom215/connectid/internal/token"
)

// ServeAuthorize implements the authorization endpoint, spec.md §4.2. It
// is re-entrant: a request carrying unique_id is treated as a return trip
// from the host's sign-in UI, and the cached message is rehydrated before
// validation resumes.
func (h *Handler) ServeAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeNativeErrorPage(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("method not allowed"))
		return
	}
	if r.Method == http.MethodPost && !isFormURLEncoded(r.Header.Get("Content-Type")) {
		writeNativeErrorPage(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("unsupported content type"))
		return
	}

	msg, err := parseAuthorizationMessage(r)
	if err != nil {
		writeNativeErrorPage(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("malformed request"))
		return
	}

	// Step 1: unique_id rehydration.
	if uid := msg.UniqueID(); uid != "" {
		cached, err := h.opts.Cache.GetRequest(ctx, uid)
		if err != nil {
			writeNativeErrorPage(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("timeout expired"))
			return
		}
		cached.Merge(msg)
		msg = cached
	}

	// Step 2: client_id.
	clientID := msg.ClientID()
	if clientID == "" {
		writeNativeErrorPage(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("client_id is missing"))
		return
	}

	// Step 3: redirect_uri shape.
	redirectURI := msg.RedirectURI()
	scope := msg.Scope()
	if redirectURI == "" {
		if scope.Contains(protocol.ScopeOpenID) {
			writeNativeErrorPage(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("redirect_uri is missing"))
			return
		}
	} else if err := validateRedirectURIShape(redirectURI, h.opts.AllowInsecureHttp); err != nil {
		writeNativeErrorPage(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription(err.Error()))
		return
	}

	// Step 4: Provider must Validate the (client_id, redirect_uri) pair.
	clientResult := h.opts.Provider.ValidateClientRedirectUri(ctx, clientID, redirectURI)
	if !clientResult.IsValidated() {
		writeNativeErrorPage(w, protocol.NewError(protocol.ErrInvalidClient))
		return
	}

	state := msg.State()
	responseMode := msg.ResponseMode()
	responseType := msg.ResponseType()

	// From here on, redirect_uri is trusted, so failures redirect rather
	// than render a native page.
	fail := func(wireErr *protocol.Error) {
		writeAuthorizationError(w, r, redirectURI, responseMode, state, wireErr)
	}

	// Step 5: response_type presence.
	if responseType.Len() == 0 {
		fail(protocol.NewError(protocol.ErrInvalidRequest).WithDescription("response_type is missing"))
		return
	}

	// Step 6: supported response_type / response_mode.
	if !isSupportedResponseType(responseType) {
		fail(protocol.NewError(protocol.ErrUnsupportedResponseType))
		return
	}
	if responseMode != "" && !isSupportedResponseMode(responseMode) {
		fail(protocol.NewError(protocol.ErrInvalidRequest).WithDescription("unsupported response_mode"))
		return
	}
	if responseMode == "" {
		responseMode = defaultResponseMode(responseType)
	}

	// Step 7: query response_mode combined with id_token/token is the
	// fragment-vs-query confused-deputy rule.
	if responseMode == protocol.ResponseModeQuery &&
		(responseType.Contains(protocol.ResponseTypeIDToken) || responseType.Contains(protocol.ResponseTypeToken)) {
		fail(protocol.NewError(protocol.ErrInvalidRequest).WithDescription("response_mode=query is not allowed with an id_token or token response_type"))
		return
	}

	isImplicitOrHybrid := responseType.Contains(protocol.ResponseTypeIDToken) || responseType.Contains(protocol.ResponseTypeToken)

	// Step 8: nonce required for implicit/hybrid + openid.
	if isImplicitOrHybrid && scope.Contains(protocol.ScopeOpenID) && msg.Nonce() == "" {
		fail(protocol.NewError(protocol.ErrInvalidRequest).WithDescription("nonce parameter missing"))
		return
	}

	// Step 9: id_token response_type requires openid scope.
	if responseType.Contains(protocol.ResponseTypeIDToken) && !scope.Contains(protocol.ScopeOpenID) {
		fail(protocol.NewError(protocol.ErrInvalidRequest).WithDescription("openid scope is required for an id_token response_type"))
		return
	}

	// Step 10: code response_type requires the token endpoint.
	if responseType.Contains(protocol.ResponseTypeCode) && !h.opts.tokenEndpointEnabled() {
		fail(protocol.NewError(protocol.ErrUnsupportedResponseType))
		return
	}

	// Step 11: id_token response_type requires a signing credential.
	if responseType.Contains(protocol.ResponseTypeIDToken) && !h.opts.hasSigningCredential() {
		fail(protocol.NewError(protocol.ErrUnsupportedResponseType))
		return
	}

	// Step 12: Provider.ValidateAuthorizationRequest.
	if result := h.opts.Provider.ValidateAuthorizationRequest(ctx, msg); result.IsRejected() {
		if err := result.Err(); err != nil {
			fail(err)
		} else {
			fail(protocol.NewError(protocol.ErrInvalidRequest))
		}
		return
	}

	// Validation complete. Assign a unique_id if this request doesn't
	// already carry one from a prior pass, then (re-)cache the message.
	uid := msg.UniqueID()
	if uid == "" {
		var err error
		uid, err = token.NewCodeKey()
		if err != nil {
			fail(protocol.NewError(protocol.ErrServerError))
			return
		}
		msg.Set(protocol.ParamUniqueID, uid)
	}
	if err := h.opts.Cache.PutRequest(ctx, uid, msg); err != nil {
		logging.CtxErr(ctx, err).Msg("server: cache authorization request")
		fail(protocol.NewError(protocol.ErrServerError))
		return
	}

	endpointResult := h.opts.Provider.AuthorizationEndpoint(ctx, msg)
	if endpointResult.IsHandled() {
		return
	}
	if endpointResult.IsRejected() {
		if err := endpointResult.Err(); err != nil {
			fail(err)
		} else {
			fail(protocol.NewError(protocol.ErrInvalidRequest))
		}
		return
	}

	// Skipped or Validated: per spec.md §4.7, the core continues as if
	// the user is already signed in — this only makes sense for hosts
	// whose own middleware has attached a ticket to the context ahead of
	// this handler.
	tk := TicketFromContext(ctx)
	if tk == nil {
		// Nothing further the core can do within this request; the host
		// is expected to redirect the user to its sign-in UI and bring
		// them back with the same unique_id once authenticated.
		return
	}
	h.completeAuthorization(w, r, msg, tk)
}

// completeAuthorization is the response-assembly teardown of spec.md
// §4.2: mint the requested artifacts in code -> access-token -> identity-
// token order, assemble the response per response_mode, and delete the
// cached request entry.
func (h *Handler) completeAuthorization(w http.ResponseWriter, r *http.Request, msg *protocol.Message, tk *ticket.Ticket) {
	ctx := r.Context()
	redirectURI := msg.RedirectURI()
	responseMode := msg.ResponseMode()
	if responseMode == "" {
		responseMode = defaultResponseMode(msg.ResponseType())
	}
	state := msg.State()

	fail := func(wireErr *protocol.Error) {
		writeAuthorizationError(w, r, redirectURI, responseMode, state, wireErr)
	}

	if err := tk.SetClientID(msg.ClientID()); err != nil {
		fail(protocol.NewError(protocol.ErrServerError))
		return
	}
	tk.Properties[ticket.PropRedirectURI] = redirectURI
	if resource := msg.Resource(); resource != "" {
		tk.Properties[ticket.PropResource] = resource
	}
	tk.Properties[ticket.PropScope] = msg.Scope().String()
	nonce := msg.Nonce()
	if nonce != "" {
		tk.Properties[ticket.PropNonce] = nonce
	}

	responseType := msg.ResponseType()
	params := map[string]string{}
	if state != "" {
		params[protocol.ParamState] = state
	}

	now := time.Now().UTC()
	var code, accessToken string

	if responseType.Contains(protocol.ResponseTypeCode) {
		codeTicket := tk.WithCodeLifetime(now, now.Add(h.opts.AuthorizationCodeLifetime))
		ciphertext, err := h.opts.OpaqueSerializer.Protect(codeTicket)
		if err != nil {
			logging.CtxErr(ctx, err).Msg("server: protect authorization code")
			fail(protocol.NewError(protocol.ErrServerError))
			return
		}
		key, err := token.NewCodeKey()
		if err != nil {
			fail(protocol.NewError(protocol.ErrServerError))
			return
		}
		if err := h.opts.Cache.PutAuthorizationCode(ctx, key, []byte(ciphertext), codeTicket.ExpiresAt); err != nil {
			logging.CtxErr(ctx, err).Msg("server: store authorization code")
			fail(protocol.NewError(protocol.ErrServerError))
			return
		}
		code = key
		params[protocol.ParamCode] = code
	}

	audiences := audiencesFor(tk, msg.ClientID())

	if responseType.Contains(protocol.ResponseTypeToken) {
		accessTicket := tk.Clone()
		accessTicket.IssuedAt = now
		accessTicket.ExpiresAt = now.Add(h.opts.AccessTokenLifetime)
		at, err := h.signer().MintAccessToken(accessTicket, audiences)
		if err != nil {
			logging.CtxErr(ctx, err).Msg("server: mint access token")
			fail(protocol.NewError(protocol.ErrServerError))
			return
		}
		accessToken = at
		params[protocol.ParamAccessToken] = accessToken
		params["token_type"] = "Bearer"
		params["expires_in"] = formatExpiresIn(token.ExpiresIn(accessTicket.ExpiresAt, now))
	}

	if responseType.Contains(protocol.ResponseTypeIDToken) {
		idTicket := tk.Clone()
		idTicket.IssuedAt = now
		idTicket.ExpiresAt = now.Add(h.opts.IdentityTokenLifetime)
		idToken, err := h.signer().MintIdentityToken(idTicket, audiences, nonce, code, accessToken)
		if err != nil {
			logging.CtxErr(ctx, err).Msg("server: mint identity token")
			fail(protocol.NewError(protocol.ErrServerError))
			return
		}
		params[protocol.ParamIDToken] = idToken
	}

	if err := h.opts.Cache.DeleteRequest(ctx, msg.UniqueID()); err != nil {
		logging.CtxErr(ctx, err).Msg("server: delete cached authorization request")
	}

	if h.opts.Audit != nil {
		h.opts.Audit.LogAuthorizationGranted(ctx, msg.ClientID(), responseType.String())
	}
	if h.opts.Events != nil {
		h.opts.Events.PublishAuthorizationGranted(ctx, msg.ClientID(), responseType.String(), tk.Subject(), tk.Scope())
	}

	writeAuthorizationResponse(w, r, redirectURI, responseMode, params)
}

func audiencesFor(tk *ticket.Ticket, clientID string) []string {
	if aud := tk.Audiences(); aud != "" {
		return protocol.ParseTokenSet(aud).Tokens()
	}
	if clientID != "" {
		return []string{clientID}
	}
	return nil
}

func formatExpiresIn(v int64) string {
	return intToString(v)
}

func isFormURLEncoded(contentType string) bool {
	mediaType, _, err := parseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/x-www-form-urlencoded"
}

func validateRedirectURIShape(redirectURI string, allowInsecure bool) error {
	u, err := url.Parse(redirectURI)
	if err != nil || !u.IsAbs() {
		return errInvalidRedirectURI
	}
	if u.Fragment != "" {
		return errRedirectURIHasFragment
	}
	if !allowInsecure && u.Scheme != "https" {
		return errRedirectURIRequiresTLS
	}
	return nil
}

func isSupportedResponseType(rt protocol.TokenSet) bool {
	if rt.Len() == 0 {
		return false
	}
	for _, tok := range rt.Tokens() {
		switch tok {
		case protocol.ResponseTypeCode, protocol.ResponseTypeToken, protocol.ResponseTypeIDToken:
		default:
			return false
		}
	}
	return true
}

func isSupportedResponseMode(mode string) bool {
	switch mode {
	case protocol.ResponseModeQuery, protocol.ResponseModeFragment, protocol.ResponseModeFormPost:
		return true
	default:
		return false
	}
}

func defaultResponseMode(rt protocol.TokenSet) string {
	if rt.Contains(protocol.ResponseTypeIDToken) || rt.Contains(protocol.ResponseTypeToken) {
		return protocol.ResponseModeFragment
	}
	return protocol.ResponseModeQuery
}
