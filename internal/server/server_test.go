// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/connectid/internal/cache"
	"github.com/tomtom215/connectid/internal/provider"
	"github.com/tomtom215/connectid/internal/token"
)

// newTestCache opens a throwaway BadgerDB under t.TempDir(), grounded on
// internal/cache/cache_test.go's newTestStore helper.
func newTestCache(t *testing.T) *cache.Store {
	t.Helper()
	opts := badger.DefaultOptions(t.TempDir()).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		t.Fatalf("badger.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return cache.New(db)
}

func newTestSigningKey(t *testing.T) token.SigningKey {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey() error = %v", err)
	}
	return token.NewSigningKey("test-key-1", priv, nil)
}

func newTestOpaqueSerializer(t *testing.T) *token.OpaqueSerializer {
	t.Helper()
	s, err := token.NewOpaqueSerializer([]byte("0123456789abcdef0123456789abcdef"))
	if err != nil {
		t.Fatalf("NewOpaqueSerializer() error = %v", err)
	}
	return s
}

// testHandlerOpts returns a fully-wired Options with a fresh cache, a
// signing credential, and an opaque serializer. Provider defaults to
// provider.New(provider.Hooks{}) (every hook at its spec.md §4.7 default);
// callers override individual hooks via the mutate callback.
func testHandlerOpts(t *testing.T, mutate func(*Options)) Options {
	t.Helper()
	opts := DefaultOptions()
	opts.Issuer = "https://id.example.com"
	opts.AllowInsecureHttp = true
	opts.Cache = newTestCache(t)
	opts.SigningCredentials = []token.SigningKey{newTestSigningKey(t)}
	opts.OpaqueSerializer = newTestOpaqueSerializer(t)
	opts.Provider = provider.New(provider.Hooks{})
	if mutate != nil {
		mutate(&opts)
	}
	return opts
}

func newTestHandler(t *testing.T, mutate func(*Options)) *Handler {
	t.Helper()
	return New(testHandlerOpts(t, mutate))
}
