// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tomtom215/connectid/internal/ticket"
)

// JWTSerializer mints and reads RS256 JWTs for access and identity tokens,
// per spec.md §4.4's JWT strategy.
type JWTSerializer struct {
	Key    SigningKey
	Issuer string
}

// MintAccessToken produces a JWT access token carrying the ticket's
// access-token-destined claims.
func (s *JWTSerializer) MintAccessToken(tk *ticket.Ticket, audiences []string) (string, error) {
	return s.sign(s.baseClaims(tk, ticket.DestinationAccessToken, audiences))
}

// MintIdentityToken produces a JWT identity token. code and accessToken,
// when non-empty, yield the c_hash/at_hash claims binding the identity
// token to the co-issued authorization code and access token (spec.md
// §4.4). nonce, when non-empty, is copied verbatim from the authorization
// request.
func (s *JWTSerializer) MintIdentityToken(tk *ticket.Ticket, audiences []string, nonce, code, accessToken string) (string, error) {
	claims := s.baseClaims(tk, ticket.DestinationIDToken, audiences)
	if nonce != "" {
		claims["nonce"] = nonce
	}
	if code != "" {
		claims["c_hash"] = HashClaim(code)
	}
	if accessToken != "" {
		claims["at_hash"] = HashClaim(accessToken)
	}
	return s.sign(claims)
}

func (s *JWTSerializer) baseClaims(tk *ticket.Ticket, dest ticket.Destination, audiences []string) jwt.MapClaims {
	tk.DeduplicateNameIdentifier()
	claims := jwt.MapClaims{
		"iss": s.Issuer,
		"sub": tk.Subject(),
		"nbf": tk.IssuedAt.Unix(),
		"exp": tk.ExpiresAt.Unix(),
		"iat": tk.IssuedAt.Unix(),
	}
	switch len(audiences) {
	case 0:
	case 1:
		claims["aud"] = audiences[0]
	default:
		claims["aud"] = audiences
	}
	for _, c := range tk.ClaimsFor(dest) {
		if c.Type == ticket.ClaimSubject {
			continue
		}
		claims[c.Type] = c.Value
	}
	return claims
}

func (s *JWTSerializer) sign(claims jwt.MapClaims) (string, error) {
	if s.Key.PrivateKey == nil {
		return "", ErrNoSigningKey
	}
	t := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	t.Header["kid"] = s.Key.KeyID
	if x5t := s.Key.Thumbprint(); x5t != "" {
		t.Header["x5t"] = x5t
	}
	signed, err := t.SignedString(s.Key.PrivateKey)
	if err != nil {
		return "", fmt.Errorf("token: sign jwt: %w", err)
	}
	return signed, nil
}

// Validate parses and verifies a JWT access or identity token's signature
// and issuer, reconstructing a Ticket from its claims. Per spec.md §4.4,
// audience and lifetime checks are intentionally NOT performed here — the
// caller (introspection handler, token-request validation) applies those
// against request-specific context.
func (s *JWTSerializer) Validate(tokenString string) (*ticket.Ticket, error) {
	if s.Key.PrivateKey == nil {
		return nil, ErrNoSigningKey
	}
	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("token: unexpected signing method %v", t.Header["alg"])
		}
		return &s.Key.PrivateKey.PublicKey, nil
	},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(s.Issuer),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, fmt.Errorf("token: parse jwt: %w", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("token: unexpected claims type")
	}

	tk := ticket.New(stringClaim(claims, "sub"))
	if nbf, ok := numClaim(claims, "nbf"); ok {
		tk.IssuedAt = time.Unix(nbf, 0).UTC()
	}
	if exp, ok := numClaim(claims, "exp"); ok {
		tk.ExpiresAt = time.Unix(exp, 0).UTC()
	}
	if aud := audienceString(claims["aud"]); aud != "" {
		tk.Properties[ticket.PropAudiences] = aud
	}
	if nonce := stringClaim(claims, "nonce"); nonce != "" {
		tk.Properties[ticket.PropNonce] = nonce
	}

	reserved := map[string]struct{}{
		"iss": {}, "sub": {}, "aud": {}, "nbf": {}, "exp": {}, "iat": {},
		"c_hash": {}, "at_hash": {}, "nonce": {},
	}
	for k, v := range claims {
		if _, skip := reserved[k]; skip {
			continue
		}
		if sv, ok := v.(string); ok {
			tk.AddClaim(ticket.NewClaim(k, sv, ticket.DestinationAccessToken, ticket.DestinationIDToken))
		}
	}
	return tk, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}

func numClaim(claims jwt.MapClaims, key string) (int64, bool) {
	switch v := claims[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	default:
		return 0, false
	}
}

func audienceString(aud interface{}) string {
	switch a := aud.(type) {
	case string:
		return a
	case []string:
		return strings.Join(a, " ")
	case []interface{}:
		parts := make([]string, 0, len(a))
		for _, item := range a {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	default:
		return ""
	}
}
