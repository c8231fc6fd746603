// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

// Package server implements the Endpoint Dispatcher and the four endpoint
// handlers (authorization, token, introspection, logout/discovery/JWKS)
// described in spec.md §4. It is grounded on the teacher's chi-based
// routing in internal/api/chi_router.go and the request/response-writing
// idiom of internal/auth/handlers.go, generalized from cartographus's own
// media-analytics API to the OIDC wire protocol.
package server

import (
	"errors"

	"github.com/tomtom215/connectid/internal/ticket"
	"github.com/tomtom215/connectid/internal/token"
)

// ErrTokenValidationFailed is returned when no configured signing
// credential can verify a JWT access or identity token.
var ErrTokenValidationFailed = errors.New("server: token signature could not be verified")

// Handler wires together the options surface, the token serializers it
// derives from the configured signing/opaque material, and the loggers
// every endpoint writes through. It is the receiver for every endpoint
// handler method in this package.
type Handler struct {
	opts Options
}

// New builds a Handler from an already-validated Options value. It does
// not itself validate opts — internal/config's Config.Validate checks the
// configuration before BuildOptions turns it into Options.
func New(opts Options) *Handler {
	return &Handler{opts: opts}
}

// jwtSerializer returns a serializer bound to the given signing credential
// and the configured issuer.
func (h *Handler) jwtSerializer(key token.SigningKey) *token.JWTSerializer {
	return &token.JWTSerializer{Key: key, Issuer: h.opts.Issuer}
}

// signer is the JWT serializer used to mint new tokens: always the first
// configured signing credential.
func (h *Handler) signer() *token.JWTSerializer {
	return h.jwtSerializer(h.opts.signingCredential())
}

// validateJWT tries every configured signing credential in order until one
// verifies tokenString, supporting key rotation where an older token may
// have been signed by a credential that is no longer first in the list.
func (h *Handler) validateJWT(tokenString string) (*ticket.Ticket, error) {
	for _, key := range h.opts.SigningCredentials {
		tk, err := h.jwtSerializer(key).Validate(tokenString)
		if err == nil {
			return tk, nil
		}
	}
	return nil, ErrTokenValidationFailed
}
