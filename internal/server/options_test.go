// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"testing"

	"github.com/tomtom215/connectid/internal/token"
)

func TestDefaultOptionsPaths(t *testing.T) {
	opts := DefaultOptions()
	if opts.AuthorizationEndpointPath != DefaultAuthorizationEndpointPath {
		t.Errorf("AuthorizationEndpointPath = %q, want %q", opts.AuthorizationEndpointPath, DefaultAuthorizationEndpointPath)
	}
	if opts.TokenEndpointPath != DefaultTokenEndpointPath {
		t.Errorf("TokenEndpointPath = %q, want %q", opts.TokenEndpointPath, DefaultTokenEndpointPath)
	}
	if !opts.UseSlidingExpiration {
		t.Error("UseSlidingExpiration = false, want true by default")
	}
	if opts.AuthorizationCodeLifetime != DefaultAuthorizationCodeLifetime {
		t.Errorf("AuthorizationCodeLifetime = %v, want %v", opts.AuthorizationCodeLifetime, DefaultAuthorizationCodeLifetime)
	}
}

func TestSigningCredentialEmpty(t *testing.T) {
	opts := DefaultOptions()
	if got := opts.signingCredential(); got.PrivateKey != nil {
		t.Errorf("signingCredential() = %+v, want zero value", got)
	}
	if opts.hasSigningCredential() {
		t.Error("hasSigningCredential() = true, want false with no configured key")
	}
}

func TestSigningCredentialFirstWins(t *testing.T) {
	opts := DefaultOptions()
	first := newTestSigningKey(t)
	second := newTestSigningKey(t)
	opts.SigningCredentials = []token.SigningKey{first, second}

	if got := opts.signingCredential(); got.KeyID != first.KeyID {
		t.Errorf("signingCredential().KeyID = %q, want %q", got.KeyID, first.KeyID)
	}
	if !opts.hasSigningCredential() {
		t.Error("hasSigningCredential() = false, want true")
	}
}

func TestTokenEndpointEnabled(t *testing.T) {
	opts := DefaultOptions()
	if !opts.tokenEndpointEnabled() {
		t.Error("tokenEndpointEnabled() = false, want true with default path")
	}
	opts.TokenEndpointPath = ""
	if opts.tokenEndpointEnabled() {
		t.Error("tokenEndpointEnabled() = true, want false with empty path")
	}
}
