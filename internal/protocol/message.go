// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

// Package protocol holds the typed representation of inbound and outbound
// OpenID Connect / OAuth 2.0 wire messages: a case-insensitive ordered
// parameter map plus typed accessors for the well-known parameters, and the
// versioned binary frame used to serialize a Message into the Request Cache.
package protocol

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// RequestType discriminates which endpoint a Message was parsed for.
type RequestType int

const (
	// UnknownRequest is the zero value; a Message has not been tagged yet.
	UnknownRequest RequestType = iota
	// AuthenticationRequest is an authorization-endpoint request.
	AuthenticationRequest
	// TokenRequest is a token-endpoint request.
	TokenRequest
	// LogoutRequest is an end-session-endpoint request.
	LogoutRequest
)

func (t RequestType) String() string {
	switch t {
	case AuthenticationRequest:
		return "AuthenticationRequest"
	case TokenRequest:
		return "TokenRequest"
	case LogoutRequest:
		return "LogoutRequest"
	default:
		return "UnknownRequest"
	}
}

// Well-known parameter names, per spec.md §3.
const (
	ParamClientID              = "client_id"
	ParamClientSecret          = "client_secret"
	ParamRedirectURI           = "redirect_uri"
	ParamResponseType          = "response_type"
	ParamResponseMode          = "response_mode"
	ParamScope                 = "scope"
	ParamState                 = "state"
	ParamNonce                 = "nonce"
	ParamCode                  = "code"
	ParamGrantType             = "grant_type"
	ParamUsername              = "username"
	ParamPassword              = "password"
	ParamRefreshToken          = "refresh_token"
	ParamIDTokenHint           = "id_token_hint"
	ParamResource              = "resource"
	ParamAudience              = "audience"
	ParamPostLogoutRedirectURI = "post_logout_redirect_uri"
	ParamError                 = "error"
	ParamErrorDescription      = "error_description"
	ParamErrorURI              = "error_uri"
	ParamUniqueID              = "unique_id"
	ParamAccessToken           = "access_token"
	ParamIDToken               = "id_token"
)

// ScopeOpenID and ScopeOfflineAccess are the two scope tokens the core
// branches on directly; every other scope token is opaque to the core.
const (
	ScopeOpenID        = "openid"
	ScopeOfflineAccess = "offline_access"
)

// ResponseType tokens.
const (
	ResponseTypeCode    = "code"
	ResponseTypeToken   = "token"
	ResponseTypeIDToken = "id_token"
)

// ResponseMode values.
const (
	ResponseModeQuery    = "query"
	ResponseModeFragment = "fragment"
	ResponseModeFormPost = "form_post"
)

// TokenSet is an unordered set of space-separated wire tokens (used for
// scope and response_type). Membership is exact-string-equal per token.
type TokenSet map[string]struct{}

// ParseTokenSet splits a space-separated parameter value into a TokenSet.
func ParseTokenSet(value string) TokenSet {
	ts := make(TokenSet)
	for _, tok := range strings.Fields(value) {
		ts[tok] = struct{}{}
	}
	return ts
}

// Contains reports whether tok is a member of the set.
func (ts TokenSet) Contains(tok string) bool {
	_, ok := ts[tok]
	return ok
}

// Len returns the number of distinct tokens.
func (ts TokenSet) Len() int {
	return len(ts)
}

// String renders the set back to its space-separated wire form. Order is
// not significant per spec.md §3, so the rendering is sorted for
// determinism rather than preserving insertion order.
func (ts TokenSet) String() string {
	toks := ts.Tokens()
	return strings.Join(toks, " ")
}

// Tokens returns the set's members, sorted for deterministic output.
func (ts TokenSet) Tokens() []string {
	toks := make([]string, 0, len(ts))
	for t := range ts {
		toks = append(toks, t)
	}
	// simple insertion sort; token sets are small (a handful of scopes)
	for i := 1; i < len(toks); i++ {
		for j := i; j > 0 && toks[j-1] > toks[j]; j-- {
			toks[j-1], toks[j] = toks[j], toks[j-1]
		}
	}
	return toks
}

// Message is a case-insensitive ordered mapping from parameter name to
// string value, tagged with a RequestType discriminant. Parameter names are
// canonicalized to lower-case internally; Keys() returns them in first-seen
// insertion order, which matters for deterministic cache-frame encoding.
type Message struct {
	Type   RequestType
	order  []string
	values map[string]string
}

// New creates an empty Message of the given type.
func New(t RequestType) *Message {
	return &Message{Type: t, values: make(map[string]string)}
}

// Get returns the value for name (case-insensitive) and whether it was set.
func (m *Message) Get(name string) (string, bool) {
	v, ok := m.values[strings.ToLower(name)]
	return v, ok
}

// GetOr returns the value for name, or def if unset.
func (m *Message) GetOr(name, def string) string {
	if v, ok := m.Get(name); ok {
		return v
	}
	return def
}

// Set stores value under name (case-insensitive), overwriting any prior
// value while preserving the parameter's original position in Keys().
func (m *Message) Set(name, value string) {
	key := strings.ToLower(name)
	if _, exists := m.values[key]; !exists {
		m.order = append(m.order, key)
	}
	m.values[key] = value
}

// Remove deletes name from the message, if present.
func (m *Message) Remove(name string) {
	key := strings.ToLower(name)
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Has reports whether name is present, case-insensitively.
func (m *Message) Has(name string) bool {
	_, ok := m.values[strings.ToLower(name)]
	return ok
}

// Keys returns parameter names in first-seen insertion order.
func (m *Message) Keys() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// Merge overlays other's parameters onto m; on conflict the value from
// other wins. Used to rehydrate a cached authorization request: parameters
// carried on the live request override the ones recorded at cache-write
// time (spec.md §4.2 step 1).
func (m *Message) Merge(other *Message) {
	for _, k := range other.Keys() {
		v, _ := other.Get(k)
		m.Set(k, v)
	}
}

// Clone returns a deep copy of m.
func (m *Message) Clone() *Message {
	c := New(m.Type)
	c.order = append([]string(nil), m.order...)
	for k, v := range m.values {
		c.values[k] = v
	}
	return c
}

// --- typed accessors -------------------------------------------------

func (m *Message) ClientID() string              { return m.GetOr(ParamClientID, "") }
func (m *Message) ClientSecret() string          { return m.GetOr(ParamClientSecret, "") }
func (m *Message) RedirectURI() string           { return m.GetOr(ParamRedirectURI, "") }
func (m *Message) State() string                 { return m.GetOr(ParamState, "") }
func (m *Message) Nonce() string                 { return m.GetOr(ParamNonce, "") }
func (m *Message) Code() string                  { return m.GetOr(ParamCode, "") }
func (m *Message) GrantType() string             { return m.GetOr(ParamGrantType, "") }
func (m *Message) Username() string              { return m.GetOr(ParamUsername, "") }
func (m *Message) Password() string              { return m.GetOr(ParamPassword, "") }
func (m *Message) RefreshToken() string          { return m.GetOr(ParamRefreshToken, "") }
func (m *Message) IDTokenHint() string           { return m.GetOr(ParamIDTokenHint, "") }
func (m *Message) Resource() string              { return m.GetOr(ParamResource, "") }
func (m *Message) Audience() string              { return m.GetOr(ParamAudience, "") }
func (m *Message) PostLogoutRedirectURI() string { return m.GetOr(ParamPostLogoutRedirectURI, "") }
func (m *Message) Error() string                 { return m.GetOr(ParamError, "") }
func (m *Message) ErrorDescription() string      { return m.GetOr(ParamErrorDescription, "") }
func (m *Message) ErrorURI() string              { return m.GetOr(ParamErrorURI, "") }
func (m *Message) UniqueID() string              { return m.GetOr(ParamUniqueID, "") }

// ResponseType returns the response_type parameter as an unordered TokenSet.
func (m *Message) ResponseType() TokenSet {
	return ParseTokenSet(m.GetOr(ParamResponseType, ""))
}

// ResponseMode returns the raw response_mode parameter (not a token set; it
// is a single enumerated value).
func (m *Message) ResponseMode() string {
	return m.GetOr(ParamResponseMode, "")
}

// Scope returns the scope parameter as an unordered TokenSet.
func (m *Message) Scope() TokenSet {
	return ParseTokenSet(m.GetOr(ParamScope, ""))
}

// SetScope stores a TokenSet back as scope's space-separated wire form.
func (m *Message) SetScope(ts TokenSet) {
	m.Set(ParamScope, ts.String())
}

// --- binary cache frame ------------------------------------------------

// frameVersion is the only version this codec understands; a future format
// change must bump this and keep DecodeFrame backward compatible or reject
// older frames outright.
const frameVersion uint8 = 1

// EncodeFrame serializes m into the versioned binary frame described in
// spec.md §3 "Cache Entry": version byte, a uint32 parameter count, then
// that many (key, value) pairs, each a uint32 length followed by UTF-8
// bytes. Encoding walks Keys() in insertion order so that re-decoding
// reproduces the original parameter order exactly.
func (m *Message) EncodeFrame() []byte {
	keys := m.Keys()
	// size estimate: 1 (version) + 4 (count) + per-pair overhead
	buf := make([]byte, 0, 64+16*len(keys))
	buf = append(buf, frameVersion)
	buf = appendUint32(buf, uint32(len(keys)))
	buf = appendUint32(buf, uint32(m.Type))
	for _, k := range keys {
		v, _ := m.Get(k)
		buf = appendLengthPrefixed(buf, k)
		buf = appendLengthPrefixed(buf, v)
	}
	return buf
}

// DecodeFrame reverses EncodeFrame. It rejects any version other than the
// one this build understands.
func DecodeFrame(data []byte) (*Message, error) {
	if len(data) < 1 {
		return nil, fmt.Errorf("protocol: empty cache frame")
	}
	if data[0] != frameVersion {
		return nil, fmt.Errorf("protocol: unsupported cache frame version %d", data[0])
	}
	off := 1
	count, off, err := readUint32(data, off)
	if err != nil {
		return nil, err
	}
	typ, off, err := readUint32(data, off)
	if err != nil {
		return nil, err
	}
	m := New(RequestType(typ))
	for i := uint32(0); i < count; i++ {
		var k, v string
		k, off, err = readLengthPrefixed(data, off)
		if err != nil {
			return nil, err
		}
		v, off, err = readLengthPrefixed(data, off)
		if err != nil {
			return nil, err
		}
		m.Set(k, v)
	}
	return m, nil
}

func appendUint32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

func appendLengthPrefixed(buf []byte, s string) []byte {
	buf = appendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

func readUint32(data []byte, off int) (uint32, int, error) {
	if off+4 > len(data) {
		return 0, off, fmt.Errorf("protocol: truncated cache frame at offset %d", off)
	}
	return binary.BigEndian.Uint32(data[off : off+4]), off + 4, nil
}

func readLengthPrefixed(data []byte, off int) (string, int, error) {
	n, off, err := readUint32(data, off)
	if err != nil {
		return "", off, err
	}
	if off+int(n) > len(data) {
		return "", off, fmt.Errorf("protocol: truncated cache frame string at offset %d", off)
	}
	s := string(data[off : off+int(n)])
	return s, off + int(n), nil
}
