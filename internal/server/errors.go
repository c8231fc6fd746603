// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/tomtom215/connectid/internal/logging"
	"github.com/tomtom215/connectid/internal/protocol"
)

// setNoCacheHeaders applies the Cache-Control/Pragma/Expires triple
// spec.md §4.3 requires on every token- and introspection-endpoint
// response, success or failure.
func setNoCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "-1")
}

// writeJSONError writes a wire error as a JSON body with HTTP 400, the
// shape spec.md §6 prescribes for the token and introspection endpoints.
func writeJSONError(w http.ResponseWriter, wireErr *protocol.Error) {
	setNoCacheHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	if err := json.NewEncoder(w).Encode(wireErr.Params()); err != nil {
		logging.Error().Err(err).Msg("server: encode json error response")
	}
}

// writeNativeErrorPage renders a plain-text 400 page for authorization-
// endpoint failures that have no usable redirect_uri to carry the error
// back to the client (spec.md §6).
func writeNativeErrorPage(w http.ResponseWriter, wireErr *protocol.Error) {
	http.Error(w, wireErr.Error(), http.StatusBadRequest)
}

// buildRedirectURL appends params to redirectURI per responseMode:
// query-string for "query", fragment for "fragment". form_post is handled
// separately by writeFormPost, since it is not a redirect at all.
func buildRedirectURL(redirectURI, responseMode string, params map[string]string) (string, error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", err
	}
	values := make(url.Values, len(params))
	for k, v := range params {
		values.Set(k, v)
	}
	encoded := values.Encode()
	if encoded == "" {
		return u.String(), nil
	}
	if responseMode == protocol.ResponseModeFragment {
		u.Fragment = encoded
		return u.String(), nil
	}
	if u.RawQuery == "" {
		u.RawQuery = encoded
	} else {
		u.RawQuery = u.RawQuery + "&" + encoded
	}
	return u.String(), nil
}

// writeAuthorizationResponse assembles and writes the final authorization-
// endpoint response for the given response_mode, per spec.md §4.2:
// redirect_uri is never included among the emitted parameters, and state
// is echoed iff the original request carried one.
func writeAuthorizationResponse(w http.ResponseWriter, r *http.Request, redirectURI, responseMode string, params map[string]string) {
	if responseMode == protocol.ResponseModeFormPost {
		writeFormPost(w, redirectURI, params)
		return
	}
	dest, err := buildRedirectURL(redirectURI, responseMode, params)
	if err != nil {
		writeNativeErrorPage(w, protocol.NewError(protocol.ErrServerError).WithDescription("malformed redirect_uri"))
		return
	}
	http.Redirect(w, r, dest, http.StatusFound)
}

// writeAuthorizationError sends a failed authorization-endpoint request's
// error back to the client: as a redirect when redirectURI is set, or as a
// native plain-text error page when it is empty. It does not consult
// Options.ApplicationCanDisplayErrors.
func writeAuthorizationError(w http.ResponseWriter, r *http.Request, redirectURI, responseMode, state string, wireErr *protocol.Error) {
	if redirectURI == "" {
		writeNativeErrorPage(w, wireErr)
		return
	}
	params := wireErr.Params()
	if state != "" {
		params[protocol.ParamState] = state
	}
	writeAuthorizationResponse(w, r, redirectURI, responseMode, params)
}
