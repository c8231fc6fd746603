// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

// Package ticket implements the Authentication Ticket: the identity and
// properties record passed from sign-in through token issuance and, on
// later requests, from token-receive back to validation.
//
// Per spec.md §9's re-architecture note, the ticket is a flat record —
// {subject_id, claims} — rather than a claims-principal object with an
// implicit "actor" concept for delegation; delegation, where needed, is one
// additional claim carrying a nested ticket rather than a distinct type.
package ticket

import (
	"errors"
	"time"
)

// Destination is where a claim is allowed to flow: into an identity token,
// an access token, or both.
type Destination int

const (
	// DestinationIDToken marks a claim as eligible for the identity token.
	DestinationIDToken Destination = iota
	// DestinationAccessToken marks a claim as eligible for the access token.
	DestinationAccessToken
)

// Well-known claim types.
const (
	ClaimSubject        = "sub"
	ClaimNameIdentifier = "name_id"
)

// Claim is a single (type, value) pair with the set of token kinds it is
// allowed to be copied into.
type Claim struct {
	Type         string
	Value        string
	Destinations map[Destination]struct{}
}

// NewClaim creates a Claim with the given destinations.
func NewClaim(typ, value string, destinations ...Destination) Claim {
	dst := make(map[Destination]struct{}, len(destinations))
	for _, d := range destinations {
		dst[d] = struct{}{}
	}
	return Claim{Type: typ, Value: value, Destinations: dst}
}

// HasDestination reports whether the claim is allowed to flow to d.
func (c Claim) HasDestination(d Destination) bool {
	_, ok := c.Destinations[d]
	return ok
}

// clone returns a deep copy of the claim (defensive-copy semantics, per
// spec.md §3: "every write during token minting operates on a defensive
// copy to prevent mutation leaks").
func (c Claim) clone() Claim {
	dst := make(map[Destination]struct{}, len(c.Destinations))
	for d := range c.Destinations {
		dst[d] = struct{}{}
	}
	return Claim{Type: c.Type, Value: c.Value, Destinations: dst}
}

// Reserved property keys, per spec.md §3.
const (
	PropIssuedAt            = "issued_at"
	PropExpiresAt           = "expires_at"
	PropClientID            = "client_id"
	PropRedirectURI         = "redirect_uri"
	PropResource            = "resource"
	PropScope               = "scope"
	PropNonce               = "nonce"
	PropAudiences           = "audiences"
	PropClientAuthenticated = "client_authenticated"
)

// ErrClientIDImmutable is returned by SetClientID when the caller attempts
// to change client_id after it has already been set once; spec.md §3:
// "the ticket's client_id property, once set, is immutable for the
// remainder of the flow."
var ErrClientIDImmutable = errors.New("ticket: client_id is immutable once set")

// Ticket is the pair (subject identity, properties) passed between
// endpoints. Claims is an ordered slice (not a map) so that duplicate
// name-identifier claims can be deterministically detected and removed per
// spec.md §4.4. Properties is a plain map; the handful of reserved keys are
// read/written through typed accessors below.
type Ticket struct {
	SubjectID  string
	Claims     []Claim
	Properties map[string]string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// New creates an empty Ticket for subjectID.
func New(subjectID string) *Ticket {
	return &Ticket{
		SubjectID:  subjectID,
		Properties: make(map[string]string),
	}
}

// Clone returns a deep, independent copy of t. Every write performed while
// minting a token (code copy, access-token copy, id-token copy) starts from
// a Clone so that mutating one artifact's view never leaks into another's.
func (t *Ticket) Clone() *Ticket {
	c := &Ticket{
		SubjectID:  t.SubjectID,
		Claims:     make([]Claim, len(t.Claims)),
		Properties: make(map[string]string, len(t.Properties)),
		IssuedAt:   t.IssuedAt,
		ExpiresAt:  t.ExpiresAt,
	}
	for i, cl := range t.Claims {
		c.Claims[i] = cl.clone()
	}
	for k, v := range t.Properties {
		c.Properties[k] = v
	}
	return c
}

// AddClaim appends a claim to the ticket.
func (t *Ticket) AddClaim(c Claim) {
	t.Claims = append(t.Claims, c)
}

// ClaimsFor returns the claims whose destination set includes d, plus the
// subject/name-identifier claims, which per spec.md §3 are always kept
// regardless of destination: "An access-token ticket never contains claims
// whose destination set excludes 'token' (except subject/name-identifier,
// which are always kept)."
func (t *Ticket) ClaimsFor(d Destination) []Claim {
	out := make([]Claim, 0, len(t.Claims))
	for _, c := range t.Claims {
		if c.Type == ClaimSubject || c.Type == ClaimNameIdentifier || c.HasDestination(d) {
			out = append(out, c)
		}
	}
	return out
}

// Subject returns the mandatory subject claim's value, synthesizing it from
// the name-identifier claim when no explicit "sub" claim was set (spec.md
// §4.4: "the sub claim is mandatory; when absent, it is synthesized from
// the name-identifier claim").
func (t *Ticket) Subject() string {
	for _, c := range t.Claims {
		if c.Type == ClaimSubject {
			return c.Value
		}
	}
	for _, c := range t.Claims {
		if c.Type == ClaimNameIdentifier {
			return c.Value
		}
	}
	return ""
}

// DeduplicateNameIdentifier removes name-identifier claims once a subject
// has been synthesized from one, per spec.md §4.4 ("duplicate
// name-identifier claims are then removed to avoid post-validation
// duplication"). It is a no-op if an explicit sub claim was already present.
func (t *Ticket) DeduplicateNameIdentifier() {
	hasSub := false
	for _, c := range t.Claims {
		if c.Type == ClaimSubject {
			hasSub = true
			break
		}
	}
	if hasSub {
		return
	}
	seen := false
	kept := t.Claims[:0]
	for _, c := range t.Claims {
		if c.Type == ClaimNameIdentifier {
			if seen {
				continue
			}
			seen = true
		}
		kept = append(kept, c)
	}
	t.Claims = kept
}

// SetClientID sets the client_id property. Returns ErrClientIDImmutable if
// client_id was already set to a different, non-empty value.
func (t *Ticket) SetClientID(clientID string) error {
	if existing, ok := t.Properties[PropClientID]; ok && existing != "" && existing != clientID {
		return ErrClientIDImmutable
	}
	t.Properties[PropClientID] = clientID
	return nil
}

func (t *Ticket) ClientID() string    { return t.Properties[PropClientID] }
func (t *Ticket) RedirectURI() string { return t.Properties[PropRedirectURI] }
func (t *Ticket) Resource() string    { return t.Properties[PropResource] }
func (t *Ticket) Scope() string       { return t.Properties[PropScope] }
func (t *Ticket) Nonce() string       { return t.Properties[PropNonce] }
func (t *Ticket) Audiences() string   { return t.Properties[PropAudiences] }

// ClientAuthenticated reports whether the flow that produced this ticket
// had an authenticated client attached (spec.md §4.3 refresh-token binding
// rule).
func (t *Ticket) ClientAuthenticated() bool {
	return t.Properties[PropClientAuthenticated] == "true"
}

// SetClientAuthenticated records whether the current flow authenticated
// the client.
func (t *Ticket) SetClientAuthenticated(v bool) {
	if v {
		t.Properties[PropClientAuthenticated] = "true"
	} else {
		delete(t.Properties, PropClientAuthenticated)
	}
}

// HasScope reports whether scope token s is present in the ticket's scope
// property.
func (t *Ticket) HasScope(s string) bool {
	scope := t.Scope()
	if scope == "" {
		return false
	}
	for _, tok := range splitSpace(scope) {
		if tok == s {
			return true
		}
	}
	return false
}

func splitSpace(s string) []string {
	var out []string
	start := -1
	for i, r := range s {
		if r == ' ' {
			if start >= 0 {
				out = append(out, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, s[start:])
	}
	return out
}

// WithCodeLifetime returns a clone whose IssuedAt/ExpiresAt are replaced
// by issuedAt/expiresAt, so an authorization code carries its own lifetime
// rather than the token lifetime of the original ticket. The original
// ticket is left unchanged.
func (t *Ticket) WithCodeLifetime(issuedAt, expiresAt time.Time) *Ticket {
	c := t.Clone()
	c.IssuedAt = issuedAt
	c.ExpiresAt = expiresAt
	return c
}
