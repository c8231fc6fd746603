// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

// Package authz provides the default Provider policy store: an ACL over
// which redirect URIs, grant types, and scopes a registered client may
// use, enforced with Casbin.
//
// # Model
//
// ClientPolicy uses a plain ACL model — no role hierarchy, since there is
// no end-user role concept at the OIDC-core layer, only per-client rules:
//
//	[request_definition]
//	r = sub, obj, act
//
//	[policy_definition]
//	p = sub, obj, act
//
//	[policy_effect]
//	e = some(where (p.eft == allow))
//
//	[matchers]
//	m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
//
// Policy rows are (client_id, resource_type, value) triples. resource_type
// is one of the Resource* constants (redirect_uri_prefix, grant_type,
// scope, logout_redirect_uri_prefix):
//
//	p, demo, redirect_uri_prefix, https://localhost:8443/callback
//	p, demo, grant_type, authorization_code
//	p, demo, scope, openid
//
// Redirect URI checks (AllowsRedirectURI, AllowsLogoutRedirectURI) are
// prefix matches, done at the Go layer over GetFilteredPolicy results
// rather than pushed into the Casbin matcher expression. Grant type and
// scope checks (AllowsGrantType, AllowsScope) are exact matches via
// Enforce; AllowsScope requires every space-delimited token in the
// requested scope string to be individually permitted.
//
// # Usage
//
//	policy, err := authz.NewClientPolicy(authz.DefaultClientPolicyConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer policy.Close()
//
//	ok, err := policy.AllowsRedirectURI("demo", "https://localhost:8443/callback")
//
// # Configuration
//
// ClientPolicyConfig.PolicyPath, when set and the file exists, is loaded
// through a Casbin file adapter with optional periodic auto-reload;
// otherwise the embedded model.conf/policy.csv pair is used, which is
// enough to exercise the demo client locally with no external policy
// store. CacheEnabled keeps grant-type and scope decisions in a short-TTL
// cache keyed on the (client_id, resource_type, value) triple; redirect-URI
// and logout-redirect-URI prefix checks are not cached. The cache is
// cleared on AddPolicy/RemovePolicy; a reload by the auto-reload loop does
// not clear it.
package authz
