// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package token

import (
	"crypto/rsa"
	"crypto/sha1" //nolint:gosec // x5t is defined over SHA-1 by RFC 7517, not used for security here
	"crypto/x509"
	"encoding/base64"
	"errors"
	"strings"
)

// SigningKey is the material used to sign and identify RS256 tokens: an
// RSA key pair, a stable key identifier, and an optional X.509 certificate
// used to derive the JWT header's x5t thumbprint. Only RS256-capable keys
// are accepted; per spec.md §4.6 keys without RS256 support are skipped
// with a warning at the JWKS layer, not here.
type SigningKey struct {
	KeyID       string
	PrivateKey  *rsa.PrivateKey
	Certificate *x509.Certificate // optional
}

// NewSigningKey builds a SigningKey, deriving KeyID when not supplied.
// Per spec.md §3: "when [a certificate is] absent, the key identifier is
// derived as the first 40 uppercase characters of the base64url-encoded
// RSA modulus."
func NewSigningKey(keyID string, priv *rsa.PrivateKey, cert *x509.Certificate) SigningKey {
	if keyID == "" {
		keyID = deriveKeyID(priv)
	}
	return SigningKey{KeyID: keyID, PrivateKey: priv, Certificate: cert}
}

func deriveKeyID(priv *rsa.PrivateKey) string {
	if priv == nil {
		return ""
	}
	modulus := base64.RawURLEncoding.EncodeToString(priv.PublicKey.N.Bytes())
	upper := strings.ToUpper(modulus)
	if len(upper) > 40 {
		upper = upper[:40]
	}
	return upper
}

// ErrNoSigningKey is returned when a serializer is asked to sign without a
// configured key.
var ErrNoSigningKey = errors.New("token: no signing key configured")

// Thumbprint returns the base64url-encoded SHA-1 digest of the DER-encoded
// certificate, for the JWT header's x5t field. Returns "" when no
// certificate is attached.
func (k SigningKey) Thumbprint() string {
	if k.Certificate == nil {
		return ""
	}
	sum := sha1.Sum(k.Certificate.Raw)
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
