// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/tomtom215/connectid/internal/provider"
	"github.com/tomtom215/connectid/internal/ticket"
)

func authorizeRequest(t *testing.T, query string) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodGet, "/connect/authorize?"+query, nil)
}

// acceptAnyClientProvider validates every (client_id, redirect_uri) pair,
// so tests can exercise the steps of ServeAuthorize past Provider's
// otherwise-mandatory client check.
func acceptAnyClientProvider() provider.Provider {
	return provider.New(provider.Hooks{
		ValidateClientRedirectUri: func(ctx context.Context, clientID, redirectURI string) provider.Result {
			return provider.Validate()
		},
	})
}

func TestServeAuthorize_MissingClientID(t *testing.T) {
	h := newTestHandler(t, nil)
	w := httptest.NewRecorder()
	h.ServeAuthorize(w, authorizeRequest(t, "response_type=code"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "client_id") {
		t.Errorf("body = %q, want mention of client_id", w.Body.String())
	}
}

func TestServeAuthorize_MissingRedirectURIWithOpenIDScope(t *testing.T) {
	h := newTestHandler(t, nil)
	w := httptest.NewRecorder()
	h.ServeAuthorize(w, authorizeRequest(t, "client_id=app1&response_type=code&scope=openid"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "redirect_uri") {
		t.Errorf("body = %q, want mention of redirect_uri", w.Body.String())
	}
}

func TestServeAuthorize_RejectedByDefaultClientValidation(t *testing.T) {
	// The default Provider (every hook at its spec.md §4.7 fallback) never
	// validates a client, so an unhooked host rejects every request here.
	h := newTestHandler(t, nil)
	w := httptest.NewRecorder()
	h.ServeAuthorize(w, authorizeRequest(t, "client_id=app1&redirect_uri=https://app.example.com/cb&response_type=code"))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	if !strings.Contains(w.Body.String(), "invalid_client") {
		t.Errorf("body = %q, want invalid_client", w.Body.String())
	}
}

func TestServeAuthorize_UnsupportedResponseType(t *testing.T) {
	h := newTestHandler(t, func(o *Options) { o.Provider = acceptAnyClientProvider() })
	w := httptest.NewRecorder()
	h.ServeAuthorize(w, authorizeRequest(t, "client_id=app1&redirect_uri=https://app.example.com/cb&response_type=bogus"))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Location header %q did not parse: %v", w.Header().Get("Location"), err)
	}
	if got := loc.Query().Get("error"); got != "unsupported_response_type" {
		t.Errorf("error = %q, want unsupported_response_type", got)
	}
}

func TestServeAuthorize_NonceRequiredForImplicit(t *testing.T) {
	h := newTestHandler(t, func(o *Options) { o.Provider = acceptAnyClientProvider() })
	w := httptest.NewRecorder()
	h.ServeAuthorize(w, authorizeRequest(t, "client_id=app1&redirect_uri=https://app.example.com/cb&response_type=id_token&scope=openid"))

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusFound)
	}
	loc := w.Header().Get("Location")
	hashIdx := strings.Index(loc, "#")
	if hashIdx < 0 {
		t.Fatalf("Location %q has no fragment", loc)
	}
	fragmentValues, err := url.ParseQuery(loc[hashIdx+1:])
	if err != nil {
		t.Fatalf("fragment did not parse: %v", err)
	}
	if got := fragmentValues.Get("error"); got != "invalid_request" {
		t.Errorf("error = %q, want invalid_request (missing nonce)", got)
	}
}

func TestServeAuthorize_CodeFlowCompletesWithTicketInContext(t *testing.T) {
	h := newTestHandler(t, func(o *Options) { o.Provider = acceptAnyClientProvider() })

	r := authorizeRequest(t, "client_id=app1&redirect_uri=https://app.example.com/cb&response_type=code&scope=openid&state=xyz")
	tk := ticket.New("user-1")
	tk.AddClaim(ticket.NewClaim(ticket.ClaimSubject, "user-1", ticket.DestinationIDToken, ticket.DestinationAccessToken))
	r = r.WithContext(ContextWithTicket(r.Context(), tk))

	w := httptest.NewRecorder()
	h.ServeAuthorize(w, r)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, http.StatusFound, w.Body.String())
	}
	loc, err := url.Parse(w.Header().Get("Location"))
	if err != nil {
		t.Fatalf("Location header did not parse: %v", err)
	}
	if loc.Query().Get("code") == "" {
		t.Error("redirect is missing a code parameter")
	}
	if loc.Query().Get("state") != "xyz" {
		t.Errorf("state = %q, want xyz", loc.Query().Get("state"))
	}
}

func TestServeAuthorize_NoTicketInContextDoesNotRespond(t *testing.T) {
	// Per spec.md §4.7, Skip/Validated from AuthorizationEndpoint with no
	// ticket attached means the core has nothing further to do: the host
	// is expected to redirect to its own sign-in UI out-of-band.
	h := newTestHandler(t, func(o *Options) { o.Provider = acceptAnyClientProvider() })
	w := httptest.NewRecorder()
	h.ServeAuthorize(w, authorizeRequest(t, "client_id=app1&redirect_uri=https://app.example.com/cb&response_type=code&scope=openid"))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 (no body written, ResponseRecorder defaults to 200)", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", w.Body.String())
	}
}
