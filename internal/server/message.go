// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/tomtom215/connectid/internal/protocol"
)

// parseAuthorizationMessage reads an authorization-endpoint request:
// query parameters for GET, form body for POST (spec.md §4.2). Any other
// method is rejected by the caller before this is reached.
func parseAuthorizationMessage(r *http.Request) (*protocol.Message, error) {
	msg := protocol.New(protocol.AuthenticationRequest)
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	setFromValues(msg, r.Form)
	return msg, nil
}

// parseTokenMessage reads a token-endpoint request: POST, form body only,
// per spec.md §4.3.
func parseTokenMessage(r *http.Request) (*protocol.Message, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	msg := protocol.New(protocol.TokenRequest)
	setFromValues(msg, r.PostForm)
	return msg, nil
}

// parseLogoutMessage reads a logout-endpoint request: GET query or POST
// form, per spec.md §4.6.
func parseLogoutMessage(r *http.Request) (*protocol.Message, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	msg := protocol.New(protocol.LogoutRequest)
	setFromValues(msg, r.Form)
	return msg, nil
}

func setFromValues(msg *protocol.Message, values map[string][]string) {
	for k, v := range values {
		if len(v) == 0 {
			continue
		}
		msg.Set(k, v[0])
	}
}

// basicAuthClientCredentials parses the Authorization header's Basic
// scheme as UTF-8(base64-decode(value)) split at the first colon, per
// spec.md §4.3. It returns ok=false when no usable Basic header is
// present.
func basicAuthClientCredentials(r *http.Request) (clientID, clientSecret string, ok bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// resolveClientCredentials applies spec.md §4.3's fallback: if client_id/
// client_secret are absent from the form body and a Basic header is
// present, use it instead.
func resolveClientCredentials(r *http.Request, msg *protocol.Message) (clientID, clientSecret string, hasSecret bool) {
	clientID = msg.ClientID()
	clientSecret = msg.ClientSecret()
	if clientID != "" {
		return clientID, clientSecret, clientSecret != ""
	}
	if basicID, basicSecret, ok := basicAuthClientCredentials(r); ok {
		return basicID, basicSecret, true
	}
	return clientID, clientSecret, clientSecret != ""
}
