// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

// Package jwks builds the JSON Web Key Set document published at the
// cryptography endpoint (spec.md §4.6), one JWK per configured signing
// credential. X.509-backed keys expose x5t/x5c; RSA-only keys expose e/n.
// Keys without RS256 support are skipped with a warning, grounded on the
// teacher's JWKS-consuming internal/auth/jwks_cache.go (there the teacher
// fetches and caches a remote JWKS; here the server is the producer).
package jwks

import (
	"crypto/x509"
	"fmt"

	josejwk "github.com/go-jose/go-jose/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/connectid/internal/token"
)

// BuildDocument marshals signingKeys into a JSON Web Key Set, skipping any
// key lacking an RSA private key (the only algorithm this server exposes
// is RS256) and logging a warning for each skip.
func BuildDocument(signingKeys []token.SigningKey, log zerolog.Logger) josejwk.JSONWebKeySet {
	doc := josejwk.JSONWebKeySet{Keys: make([]josejwk.JSONWebKey, 0, len(signingKeys))}
	for _, sk := range signingKeys {
		jwk, err := toJWK(sk)
		if err != nil {
			log.Warn().Err(err).Str("kid", sk.KeyID).Msg("skipping signing key: not RS256-capable")
			continue
		}
		doc.Keys = append(doc.Keys, jwk)
	}
	return doc
}

func toJWK(sk token.SigningKey) (josejwk.JSONWebKey, error) {
	if sk.PrivateKey == nil {
		return josejwk.JSONWebKey{}, fmt.Errorf("jwks: signing key %q has no RSA key material", sk.KeyID)
	}
	jwk := josejwk.JSONWebKey{
		Key:       &sk.PrivateKey.PublicKey,
		KeyID:     sk.KeyID,
		Algorithm: string(josejwk.RS256),
		Use:       "sig",
	}
	if sk.Certificate != nil {
		jwk.Certificates = []*x509.Certificate{sk.Certificate}
	}
	if !jwk.Valid() {
		return josejwk.JSONWebKey{}, fmt.Errorf("jwks: signing key %q produced an invalid JWK", sk.KeyID)
	}
	return jwk, nil
}
