// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package token

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/hkdf"

	"github.com/tomtom215/connectid/internal/ticket"
)

const (
	opaqueSerializerSalt = "connectid-opaque-token"
	opaqueSerializerInfo = "opaque-serializer-v1"
	opaqueKeySize        = 32
	opaqueNonceSize      = 12
)

// Opaque errors.
var (
	ErrOpaqueKeyMissing    = errors.New("token: opaque serializer master secret not configured")
	ErrOpaqueDecryptFailed = errors.New("token: opaque blob decryption failed")
	ErrOpaqueMalformed     = errors.New("token: opaque blob is malformed")
)

// OpaqueSerializer protects a Ticket as an AES-256-GCM ciphertext, the
// default strategy for authorization codes and refresh tokens (spec.md
// §4.4). The encryption key is derived from a master secret via
// HKDF-SHA256, grounded on internal/config/encryption.go's
// CredentialEncryptor.
type OpaqueSerializer struct {
	aead cipher.AEAD
}

// NewOpaqueSerializer derives an AES-256-GCM key from masterSecret via
// HKDF-SHA256.
func NewOpaqueSerializer(masterSecret []byte) (*OpaqueSerializer, error) {
	if len(masterSecret) == 0 {
		return nil, ErrOpaqueKeyMissing
	}
	reader := hkdf.New(sha256.New, masterSecret, []byte(opaqueSerializerSalt), []byte(opaqueSerializerInfo))
	key := make([]byte, opaqueKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("token: derive opaque key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("token: create aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("token: create gcm: %w", err)
	}
	return &OpaqueSerializer{aead: aead}, nil
}

// wireTicket is the JSON-serializable form of a Ticket, keeping the
// encrypted payload independent of the ticket package's in-memory
// representation (e.g. the Destinations set, which is keyed on an
// unexported map type unsuitable for direct marshaling).
type wireTicket struct {
	SubjectID  string            `json:"subject_id"`
	Claims     []wireClaim       `json:"claims"`
	Properties map[string]string `json:"properties"`
	IssuedAt   int64             `json:"issued_at"`
	ExpiresAt  int64             `json:"expires_at"`
}

type wireClaim struct {
	Type        string `json:"type"`
	Value       string `json:"value"`
	IDToken     bool   `json:"id_token"`
	AccessToken bool   `json:"access_token"`
}

func toWire(tk *ticket.Ticket) wireTicket {
	w := wireTicket{
		SubjectID:  tk.SubjectID,
		Claims:     make([]wireClaim, len(tk.Claims)),
		Properties: tk.Properties,
		IssuedAt:   tk.IssuedAt.Unix(),
		ExpiresAt:  tk.ExpiresAt.Unix(),
	}
	for i, c := range tk.Claims {
		w.Claims[i] = wireClaim{
			Type:        c.Type,
			Value:       c.Value,
			IDToken:     c.HasDestination(ticket.DestinationIDToken),
			AccessToken: c.HasDestination(ticket.DestinationAccessToken),
		}
	}
	return w
}

func fromWire(w wireTicket) *ticket.Ticket {
	tk := ticket.New(w.SubjectID)
	tk.Properties = w.Properties
	if tk.Properties == nil {
		tk.Properties = make(map[string]string)
	}
	for _, c := range w.Claims {
		var dest []ticket.Destination
		if c.IDToken {
			dest = append(dest, ticket.DestinationIDToken)
		}
		if c.AccessToken {
			dest = append(dest, ticket.DestinationAccessToken)
		}
		tk.AddClaim(ticket.NewClaim(c.Type, c.Value, dest...))
	}
	tk.IssuedAt = unixOrZero(w.IssuedAt)
	tk.ExpiresAt = unixOrZero(w.ExpiresAt)
	return tk
}

// Protect serializes and encrypts tk, returning a base64-encoded blob of
// nonce||ciphertext||tag.
func (s *OpaqueSerializer) Protect(tk *ticket.Ticket) (string, error) {
	if s == nil || s.aead == nil {
		return "", ErrOpaqueKeyMissing
	}
	plaintext, err := json.Marshal(toWire(tk))
	if err != nil {
		return "", fmt.Errorf("token: marshal ticket: %w", err)
	}
	nonce := make([]byte, opaqueNonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("token: generate nonce: %w", err)
	}
	ciphertext := s.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(ciphertext), nil
}

// Unprotect reverses Protect.
func (s *OpaqueSerializer) Unprotect(blob string) (*ticket.Ticket, error) {
	if s == nil || s.aead == nil {
		return nil, ErrOpaqueKeyMissing
	}
	data, err := base64.RawURLEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: base64 decode failed", ErrOpaqueMalformed)
	}
	if len(data) < opaqueNonceSize+1+s.aead.Overhead() {
		return nil, fmt.Errorf("%w: too short", ErrOpaqueMalformed)
	}
	nonce, ciphertext := data[:opaqueNonceSize], data[opaqueNonceSize:]
	plaintext, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrOpaqueDecryptFailed
	}
	var w wireTicket
	if err := json.Unmarshal(plaintext, &w); err != nil {
		return nil, fmt.Errorf("%w: unmarshal ticket: %v", ErrOpaqueMalformed, err)
	}
	return fromWire(w), nil
}

// NewCodeKey generates the 256-bit random key used to look up a
// Request-Cache-stored authorization code ciphertext (spec.md §4.4: "the
// ciphertext is stored under a 256-bit random key in the Request Cache and
// that key — not the ciphertext — is returned to the client").
func NewCodeKey() (string, error) {
	key := make([]byte, opaqueKeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("token: generate code key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(key), nil
}

func unixOrZero(sec int64) time.Time {
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0).UTC()
}
