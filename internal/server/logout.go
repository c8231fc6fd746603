// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"net/http"

	"github.com/tomtom215/connectid/internal/protocol"
)

// ServeLogout implements the end-session (logout) endpoint, spec.md §4.6.
//
// The handler does not itself destroy any host session — that is the
// host's concern, typically via its own middleware observing this request
// — it validates post_logout_redirect_uri against the client ID carried
// by id_token_hint's ticket (left to the host through
// ValidateClientLogoutRedirectUri) and redirects back with state echoed.
func (h *Handler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		writeNativeErrorPage(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("method not allowed"))
		return
	}

	msg, err := parseLogoutMessage(r)
	if err != nil {
		writeNativeErrorPage(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("malformed request"))
		return
	}

	postLogoutRedirectURI := msg.PostLogoutRedirectURI()
	if postLogoutRedirectURI == "" {
		setNoCacheHeaders(w)
		w.WriteHeader(http.StatusOK)
		return
	}

	var clientID string
	if hint := msg.IDTokenHint(); hint != "" {
		if tk, err := h.validateJWT(hint); err == nil {
			clientID = tk.ClientID()
		}
	}

	if result := h.opts.Provider.ValidateClientLogoutRedirectUri(ctx, clientID, postLogoutRedirectURI); !result.IsValidated() {
		writeNativeErrorPage(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("post_logout_redirect_uri is not registered for this client"))
		return
	}

	target, err := buildRedirectURL(postLogoutRedirectURI, protocol.ResponseModeQuery, logoutRedirectParams(msg))
	if err != nil {
		writeNativeErrorPage(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("post_logout_redirect_uri is malformed"))
		return
	}
	setNoCacheHeaders(w)
	http.Redirect(w, r, target, http.StatusFound)
}

func logoutRedirectParams(msg *protocol.Message) map[string]string {
	params := map[string]string{}
	if state := msg.State(); state != "" {
		params[protocol.ParamState] = state
	}
	return params
}
