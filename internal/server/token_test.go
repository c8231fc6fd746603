// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/connectid/internal/protocol"
	"github.com/tomtom215/connectid/internal/provider"
	"github.com/tomtom215/connectid/internal/ticket"
	"github.com/tomtom215/connectid/internal/token"
)

func tokenRequest(t *testing.T, form url.Values) *http.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/connect/token", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func decodeTokenBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestServeToken_MissingGrantType(t *testing.T) {
	h := newTestHandler(t, nil)
	w := httptest.NewRecorder()
	h.ServeToken(w, tokenRequest(t, url.Values{}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := decodeTokenBody(t, w)
	if body["error"] != protocol.ErrInvalidRequest {
		t.Errorf("error = %v, want %v", body["error"], protocol.ErrInvalidRequest)
	}
}

func TestServeToken_ClientCredentialsRequiresAuthentication(t *testing.T) {
	// Default Provider never authenticates a client, so client_credentials
	// is rejected unconditionally without a ValidateClientAuthentication hook.
	h := newTestHandler(t, nil)
	w := httptest.NewRecorder()
	h.ServeToken(w, tokenRequest(t, url.Values{"grant_type": {"client_credentials"}}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := decodeTokenBody(t, w)
	if body["error"] != protocol.ErrUnauthorizedClient {
		t.Errorf("error = %v, want %v", body["error"], protocol.ErrUnauthorizedClient)
	}
}

func TestServeToken_ClientCredentialsGrant(t *testing.T) {
	h := newTestHandler(t, func(o *Options) {
		o.Provider = provider.New(provider.Hooks{
			ValidateClientAuthentication: func(ctx context.Context, clientID, clientSecret string, hasSecret bool) provider.Result {
				return provider.Validate()
			},
			GrantClientCredentials: func(ctx context.Context, msg *protocol.Message) provider.GrantResult {
				tk := ticket.New("app1")
				tk.AddClaim(ticket.NewClaim(ticket.ClaimSubject, "app1", ticket.DestinationAccessToken))
				tk.Properties[ticket.PropClientID] = "app1"
				return provider.GrantResult{Result: provider.Validate(), Ticket: tk}
			},
		})
	})

	w := httptest.NewRecorder()
	h.ServeToken(w, tokenRequest(t, url.Values{
		"grant_type": {"client_credentials"},
		"client_id":  {"app1"},
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	body := decodeTokenBody(t, w)
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Error("response is missing access_token")
	}
	if body["token_type"] != "Bearer" {
		t.Errorf("token_type = %v, want Bearer", body["token_type"])
	}
}

func TestServeToken_AuthorizationCodeGrant(t *testing.T) {
	opts := testHandlerOpts(t, func(o *Options) {
		o.Provider = provider.New(provider.Hooks{
			GrantAuthorizationCode: func(ctx context.Context, msg *protocol.Message, tk *ticket.Ticket) provider.GrantResult {
				return provider.GrantResult{Result: provider.Validate()}
			},
		})
	})
	h := New(opts)

	tk := ticket.New("user-1")
	tk.AddClaim(ticket.NewClaim(ticket.ClaimSubject, "user-1", ticket.DestinationIDToken, ticket.DestinationAccessToken))
	tk.Properties[ticket.PropClientID] = "app1"
	tk.Properties[ticket.PropRedirectURI] = "https://app.example.com/cb"
	tk.Properties[ticket.PropScope] = "openid offline_access"
	tk.ExpiresAt = time.Now().Add(5 * time.Minute)

	ciphertext, err := opts.OpaqueSerializer.Protect(tk)
	if err != nil {
		t.Fatalf("Protect() error = %v", err)
	}
	codeKey, err := token.NewCodeKey()
	if err != nil {
		t.Fatalf("NewCodeKey() error = %v", err)
	}
	if err := opts.Cache.PutAuthorizationCode(context.Background(), codeKey, []byte(ciphertext), tk.ExpiresAt); err != nil {
		t.Fatalf("PutAuthorizationCode() error = %v", err)
	}

	w := httptest.NewRecorder()
	h.ServeToken(w, tokenRequest(t, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {codeKey},
		"redirect_uri": {"https://app.example.com/cb"},
		"client_id":    {"app1"},
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body=%s", w.Code, http.StatusOK, w.Body.String())
	}
	body := decodeTokenBody(t, w)
	if body["access_token"] == "" || body["access_token"] == nil {
		t.Error("response is missing access_token")
	}
	if body["id_token"] == "" || body["id_token"] == nil {
		t.Error("response is missing id_token for an openid-scoped grant")
	}
	if body["refresh_token"] == "" || body["refresh_token"] == nil {
		t.Error("response is missing refresh_token for an offline_access-scoped grant")
	}
}

func TestServeToken_AuthorizationCodeGrantRejectsRedirectURIMismatch(t *testing.T) {
	opts := testHandlerOpts(t, nil)
	h := New(opts)

	tk := ticket.New("user-1")
	tk.Properties[ticket.PropClientID] = "app1"
	tk.Properties[ticket.PropRedirectURI] = "https://app.example.com/cb"
	tk.ExpiresAt = time.Now().Add(5 * time.Minute)

	ciphertext, err := opts.OpaqueSerializer.Protect(tk)
	if err != nil {
		t.Fatalf("Protect() error = %v", err)
	}
	codeKey, err := token.NewCodeKey()
	if err != nil {
		t.Fatalf("NewCodeKey() error = %v", err)
	}
	if err := opts.Cache.PutAuthorizationCode(context.Background(), codeKey, []byte(ciphertext), tk.ExpiresAt); err != nil {
		t.Fatalf("PutAuthorizationCode() error = %v", err)
	}

	w := httptest.NewRecorder()
	h.ServeToken(w, tokenRequest(t, url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {codeKey},
		"redirect_uri": {"https://wrong.example.com/cb"},
		"client_id":    {"app1"},
	}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := decodeTokenBody(t, w)
	if body["error"] != protocol.ErrInvalidGrant {
		t.Errorf("error = %v, want %v", body["error"], protocol.ErrInvalidGrant)
	}
}

func TestServeToken_CustomExtensionGrantDefaultRejects(t *testing.T) {
	h := newTestHandler(t, nil)
	w := httptest.NewRecorder()
	h.ServeToken(w, tokenRequest(t, url.Values{"grant_type": {"urn:custom:extension"}}))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusBadRequest)
	}
	body := decodeTokenBody(t, w)
	if body["error"] != protocol.ErrUnsupportedGrantType {
		t.Errorf("error = %v, want %v", body["error"], protocol.ErrUnsupportedGrantType)
	}
}
