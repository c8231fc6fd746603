// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"time"

	"github.com/tomtom215/connectid/internal/audit"
	"github.com/tomtom215/connectid/internal/cache"
	"github.com/tomtom215/connectid/internal/events"
	"github.com/tomtom215/connectid/internal/provider"
	"github.com/tomtom215/connectid/internal/token"
)

// Default endpoint paths, per spec.md §6.
const (
	DefaultAuthorizationEndpointPath   = "/connect/authorize"
	DefaultTokenEndpointPath           = "/connect/token"
	DefaultTokenValidationEndpointPath = "/connect/token_validation"
	DefaultLogoutEndpointPath          = "/connect/logout"
	DefaultConfigurationEndpointPath   = "/.well-known/openid-configuration"
	DefaultCryptographyEndpointPath    = "/.well-known/jwks"
)

// Default token lifetimes, per spec.md §6.
const (
	DefaultAuthorizationCodeLifetime = 5 * time.Minute
	DefaultAccessTokenLifetime       = time.Hour
	DefaultIdentityTokenLifetime     = 20 * time.Minute
	DefaultRefreshTokenLifetime      = 6 * time.Hour
)

// Options is the Options surface of spec.md §6: every knob the core
// reads to decide endpoint availability, token lifetimes, and which
// external collaborators (Cache, Provider, signing material) back it.
//
// An empty *EndpointPath disables that endpoint, per spec.md §4.1.
type Options struct {
	// Issuer is an absolute URI with no query or fragment, used as the
	// iss claim and the discovery document's issuer.
	Issuer string

	AuthorizationEndpointPath   string
	TokenEndpointPath           string
	TokenValidationEndpointPath string
	LogoutEndpointPath          string
	ConfigurationEndpointPath   string
	CryptographyEndpointPath    string

	AuthorizationCodeLifetime time.Duration
	AccessTokenLifetime       time.Duration
	IdentityTokenLifetime     time.Duration
	RefreshTokenLifetime      time.Duration

	// UseSlidingExpiration, when false, clamps every token minted on a
	// refresh_token grant to the incoming refresh token's ExpiresAt
	// (spec.md §4.3).
	UseSlidingExpiration bool

	// AllowInsecureHttp permits plaintext HTTP requests and http://
	// redirect_uri values; it must never be set in production.
	AllowInsecureHttp bool

	// ApplicationCanDisplayErrors is carried over from configuration, but
	// no handler in this package reads it: an authorization-endpoint error
	// with no usable redirect_uri is always rendered as a native plain-text
	// error page and is not handed to the host application.
	ApplicationCanDisplayErrors bool

	// SigningCredentials is ordered; the first entry signs, every entry
	// is advertised on the JWKS document.
	SigningCredentials []token.SigningKey

	// Cache is the Request Cache backing store (spec.md Component 4).
	Cache *cache.Store

	// Provider is the extension-point implementation (spec.md Component 5).
	Provider provider.Provider

	// OpaqueSerializer protects authorization codes and refresh tokens
	// (spec.md §4.4's "Opaque" strategy, the only one this module ships).
	OpaqueSerializer *token.OpaqueSerializer

	// Audit, if non-nil, receives a ledger entry for every grant,
	// authorization response, and introspection call (SPEC_FULL.md
	// Supplemented Feature 1). Optional: a nil Audit disables the ledger.
	Audit *audit.Logger

	// Events, if non-nil, publishes a best-effort TokenIssued /
	// AuthorizationGranted / TokenIntrospected notification for every
	// successful call (SPEC_FULL.md Supplemented Feature 2). Optional: a
	// nil or disabled Events bus turns every publish into a no-op.
	Events *events.Bus
}

// DefaultOptions returns an Options value with every path and lifetime at
// its spec.md §6 default. Issuer, SigningCredentials, Cache, Provider, and
// OpaqueSerializer are left zero-valued; the caller must supply them.
func DefaultOptions() Options {
	return Options{
		AuthorizationEndpointPath:   DefaultAuthorizationEndpointPath,
		TokenEndpointPath:           DefaultTokenEndpointPath,
		TokenValidationEndpointPath: DefaultTokenValidationEndpointPath,
		LogoutEndpointPath:          DefaultLogoutEndpointPath,
		ConfigurationEndpointPath:   DefaultConfigurationEndpointPath,
		CryptographyEndpointPath:    DefaultCryptographyEndpointPath,

		AuthorizationCodeLifetime: DefaultAuthorizationCodeLifetime,
		AccessTokenLifetime:       DefaultAccessTokenLifetime,
		IdentityTokenLifetime:     DefaultIdentityTokenLifetime,
		RefreshTokenLifetime:      DefaultRefreshTokenLifetime,

		UseSlidingExpiration: true,
	}
}

// signingCredential returns the first configured signing credential, which
// spec.md §6 designates as the one used to sign new tokens. The zero value
// is returned when none is configured, which serializer calls turn into
// token.ErrNoSigningKey.
func (o *Options) signingCredential() token.SigningKey {
	if len(o.SigningCredentials) == 0 {
		return token.SigningKey{}
	}
	return o.SigningCredentials[0]
}

func (o *Options) hasSigningCredential() bool {
	return len(o.SigningCredentials) > 0 && o.SigningCredentials[0].PrivateKey != nil
}

func (o *Options) tokenEndpointEnabled() bool {
	return o.TokenEndpointPath != ""
}
