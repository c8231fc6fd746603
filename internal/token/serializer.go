// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

// Package token implements the Token Serializer: minting and reading the
// JWT and opaque artifacts that carry an Authentication Ticket across the
// wire, per spec.md §4.4.
//
// Two independently selectable strategies exist per token kind: JWT
// (default for access and identity tokens, grounded on the teacher's
// golang-jwt/v5 usage in internal/auth/jwt.go and id_token.go) and Opaque
// (default for authorization codes and refresh tokens, grounded on the
// AES-256-GCM+HKDF pattern in internal/config/encryption.go's
// CredentialEncryptor).
package token

import (
	"crypto/sha256"
	"encoding/base64"
	"math"
	"time"
)

// ExpiresIn computes the expires_in value the source emits: half-up
// rounded seconds between now and expiresAt (spec.md §9 Open Question 2 —
// "the source emits expires_in as floor(seconds + 0.5); keep the
// half-up rounding").
func ExpiresIn(expiresAt, now time.Time) int64 {
	seconds := expiresAt.Sub(now).Seconds()
	if seconds < 0 {
		seconds = 0
	}
	return int64(math.Floor(seconds + 0.5))
}

// HashClaim derives a c_hash/at_hash value per spec.md §4.4:
// base64url(left-half(SHA-256(value))), with no padding.
func HashClaim(value string) string {
	sum := sha256.Sum256([]byte(value))
	half := sum[:len(sum)/2]
	return base64.RawURLEncoding.EncodeToString(half)
}
