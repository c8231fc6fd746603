// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/connectid/internal/logging"
	"github.com/tomtom215/connectid/internal/protocol"
)

// discoveryDocument is the OpenID Connect Discovery 1.0 metadata document,
// assembled conditionally per spec.md §4.6: fields describing a disabled
// endpoint or an unconfigured capability are omitted rather than emitted
// empty.
type discoveryDocument struct {
	Issuer                           string   `json:"issuer"`
	AuthorizationEndpoint            string   `json:"authorization_endpoint"`
	TokenEndpoint                    string   `json:"token_endpoint,omitempty"`
	IntrospectionEndpoint            string   `json:"introspection_endpoint,omitempty"`
	EndSessionEndpoint               string   `json:"end_session_endpoint,omitempty"`
	JWKSURI                          string   `json:"jwks_uri"`
	GrantTypesSupported              []string `json:"grant_types_supported,omitempty"`
	ResponseModesSupported           []string `json:"response_modes_supported"`
	ResponseTypesSupported           []string `json:"response_types_supported"`
	SubjectTypesSupported            []string `json:"subject_types_supported"`
	ScopesSupported                  []string `json:"scopes_supported"`
	IDTokenSigningAlgValuesSupported []string `json:"id_token_signing_alg_values_supported,omitempty"`
}

// ServeDiscovery implements the discovery endpoint, spec.md §4.6.
func (h *Handler) ServeDiscovery(w http.ResponseWriter, r *http.Request) {
	doc := discoveryDocument{
		Issuer:                 h.opts.Issuer,
		AuthorizationEndpoint:  h.absoluteURL(r, h.opts.AuthorizationEndpointPath),
		JWKSURI:                h.absoluteURL(r, h.opts.CryptographyEndpointPath),
		ResponseModesSupported: []string{protocol.ResponseModeQuery, protocol.ResponseModeFragment, protocol.ResponseModeFormPost},
		SubjectTypesSupported:  []string{"public"},
		ScopesSupported:        []string{protocol.ScopeOpenID, protocol.ScopeOfflineAccess},
		ResponseTypesSupported: []string{protocol.ResponseTypeCode},
	}

	tokenEndpointEnabled := h.opts.tokenEndpointEnabled()
	if tokenEndpointEnabled {
		doc.TokenEndpoint = h.absoluteURL(r, h.opts.TokenEndpointPath)
		doc.GrantTypesSupported = []string{"authorization_code", "refresh_token", "client_credentials", "password"}
	}
	if h.opts.TokenValidationEndpointPath != "" {
		doc.IntrospectionEndpoint = h.absoluteURL(r, h.opts.TokenValidationEndpointPath)
	}
	if h.opts.LogoutEndpointPath != "" {
		doc.EndSessionEndpoint = h.absoluteURL(r, h.opts.LogoutEndpointPath)
	}
	if h.opts.hasSigningCredential() {
		doc.IDTokenSigningAlgValuesSupported = []string{"RS256"}
		doc.ResponseTypesSupported = append(doc.ResponseTypesSupported, protocol.ResponseTypeIDToken)
		if tokenEndpointEnabled {
			doc.ResponseTypesSupported = append(doc.ResponseTypesSupported,
				"code id_token", "code token", "code id_token token",
				protocol.ResponseTypeToken, "id_token token")
		}
	}

	setNoCacheHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		logging.CtxErr(r.Context(), err).Msg("server: encode discovery document")
	}
}

// absoluteURL joins the configured issuer with path, falling back to the
// incoming request's scheme/host when Issuer has none of its own — the
// discovery document always advertises absolute URIs. An empty path means
// the endpoint is disabled and returns "".
func (h *Handler) absoluteURL(r *http.Request, path string) string {
	if path == "" {
		return ""
	}
	base := strings.TrimSuffix(h.opts.Issuer, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + path
}
