// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

// Package cache implements the Request Cache: a short-lived keyed store
// for in-flight authorization requests and opaque authorization codes
// (spec.md §3, §5). Grounded on the teacher's BadgerDB transaction
// pattern in internal/auth/session_badger.go, but — unlike that file's
// Delete, which reads in one db.View and deletes in a separate db.Update —
// TakeAuthorizationCode combines the read and the delete into a single
// db.Update transaction, which is what spec.md §3's invariant "a cached
// authorization code is single-use: consumption atomically removes the
// entry" actually requires.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/connectid/internal/protocol"
)

const (
	requestKeyPrefix = "req:"
	codeKeyPrefix    = "code:"

	// requestSlidingTTL is the sliding-expiration window for an in-flight
	// authorization request entry (spec.md §3).
	requestSlidingTTL = time.Hour
)

// ErrNotFound is returned when a cache entry is absent or has expired.
var ErrNotFound = errors.New("cache: entry not found")

// Store is the Request Cache, backed by an embedded BadgerDB instance and
// wrapped with a circuit breaker so a misbehaving disk does not cascade
// into every request handler.
type Store struct {
	db      *badger.DB
	breaker *gobreaker.CircuitBreaker[any]
}

// New wraps an already-open BadgerDB handle. The caller owns the
// database's lifecycle (open/close); Store only reads and writes it.
func New(db *badger.DB) *Store {
	settings := gobreaker.Settings{
		Name:        "request-cache",
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &Store{db: db, breaker: gobreaker.NewCircuitBreaker[any](settings)}
}

func (s *Store) guard(fn func() error) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, fn()
	})
	return err
}

// PutRequest stores msg's binary frame under key with the sliding
// expiration window. The window resets every time GetRequest is called
// (see below), so a multi-step flow — redirect out to a sign-in page, then
// back — keeps the entry alive as long as the user is actively moving
// through it.
func (s *Store) PutRequest(ctx context.Context, key string, msg *protocol.Message) error {
	frame := msg.EncodeFrame()
	return s.guard(func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			entry := badger.NewEntry([]byte(requestKeyPrefix+key), frame).WithTTL(requestSlidingTTL)
			if err := txn.SetEntry(entry); err != nil {
				return fmt.Errorf("cache: put request: %w", err)
			}
			return nil
		})
	})
}

// GetRequest reads the frame stored under key and, if present, rewrites it
// with a fresh sliding-expiration TTL in the same transaction before
// returning it decoded.
func (s *Store) GetRequest(ctx context.Context, key string) (*protocol.Message, error) {
	var frame []byte
	err := s.guard(func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			dbKey := []byte(requestKeyPrefix + key)
			item, err := txn.Get(dbKey)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("cache: get request: %w", err)
			}
			if err := item.Value(func(val []byte) error {
				frame = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return fmt.Errorf("cache: read request value: %w", err)
			}
			entry := badger.NewEntry(dbKey, frame).WithTTL(requestSlidingTTL)
			if err := txn.SetEntry(entry); err != nil {
				return fmt.Errorf("cache: renew request ttl: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	msg, err := protocol.DecodeFrame(frame)
	if err != nil {
		return nil, fmt.Errorf("cache: decode request frame: %w", err)
	}
	return msg, nil
}

// DeleteRequest removes the in-flight request entry, called once the
// authorization-endpoint handler has finished assembling its response
// (spec.md §4.2: "After successful assembly the cached request entry is
// deleted").
func (s *Store) DeleteRequest(ctx context.Context, key string) error {
	return s.guard(func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			if err := txn.Delete([]byte(requestKeyPrefix + key)); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("cache: delete request: %w", err)
			}
			return nil
		})
	})
}

// PutAuthorizationCode stores an opaque-serialized ticket ciphertext under
// code with an absolute expiration (spec.md §3: "absolute expiration =
// ticket's ExpiresAt").
func (s *Store) PutAuthorizationCode(ctx context.Context, code string, ciphertext []byte, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}
	return s.guard(func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			entry := badger.NewEntry([]byte(codeKeyPrefix+code), ciphertext).WithTTL(ttl)
			if err := txn.SetEntry(entry); err != nil {
				return fmt.Errorf("cache: put code: %w", err)
			}
			return nil
		})
	})
}

// TakeAuthorizationCode atomically reads and removes the ciphertext stored
// under code, in a single transaction, so that two concurrent redemption
// attempts can never both succeed (spec.md §3: "a cached authorization
// code is single-use: consumption atomically removes the entry").
func (s *Store) TakeAuthorizationCode(ctx context.Context, code string) ([]byte, error) {
	var ciphertext []byte
	err := s.guard(func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			dbKey := []byte(codeKeyPrefix + code)
			item, err := txn.Get(dbKey)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return fmt.Errorf("cache: get code: %w", err)
			}
			if err := item.Value(func(val []byte) error {
				ciphertext = append([]byte(nil), val...)
				return nil
			}); err != nil {
				return fmt.Errorf("cache: read code value: %w", err)
			}
			if err := txn.Delete(dbKey); err != nil {
				return fmt.Errorf("cache: delete code: %w", err)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return ciphertext, nil
}
