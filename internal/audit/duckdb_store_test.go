// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

//go:build integration

package audit

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/goccy/go-json"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory duckdb: %v", err)
	}
	return db, func() { db.Close() }
}

func TestDuckDBStore_CreateTable(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDuckDBStore(db)
	ctx := context.Background()

	if err := store.CreateTable(ctx); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	var tableName string
	err := db.QueryRowContext(ctx, "SELECT table_name FROM information_schema.tables WHERE table_name = 'audit_events'").Scan(&tableName)
	if err != nil {
		t.Fatalf("audit_events table does not exist: %v", err)
	}
}

func TestDuckDBStore_Save(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDuckDBStore(db)
	ctx := context.Background()
	if err := store.CreateTable(ctx); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	event := &Event{
		ID:        "event-1",
		Timestamp: time.Now().UTC(),
		Type:      EventGrantIssued,
		ClientID:  "client-a",
		GrantType: "authorization_code",
		Outcome:   OutcomeSuccess,
		Detail:    json.RawMessage(`{"scope":"openid profile"}`),
		RequestID: "req-1",
	}

	if err := store.Save(ctx, event); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_events WHERE id = ?", event.ID).Scan(&count); err != nil {
		t.Fatalf("failed to query saved event: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 event, got %d", count)
	}
}

func TestDuckDBStore_Save_NilEvent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDuckDBStore(db)
	ctx := context.Background()
	if err := store.CreateTable(ctx); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	if err := store.Save(ctx, nil); err == nil {
		t.Error("expected error for nil event, got nil")
	}
}

func TestDuckDBStore_Query(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDuckDBStore(db)
	ctx := context.Background()
	if err := store.CreateTable(ctx); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	now := time.Now().UTC()
	events := []*Event{
		{ID: "e1", Timestamp: now.Add(-2 * time.Hour), Type: EventGrantIssued, ClientID: "client-a", GrantType: "authorization_code", Outcome: OutcomeSuccess},
		{ID: "e2", Timestamp: now.Add(-1 * time.Hour), Type: EventGrantRejected, ClientID: "client-b", GrantType: "refresh_token", Outcome: OutcomeFailure},
		{ID: "e3", Timestamp: now, Type: EventIntrospectionPerformed, ClientID: "client-a", Outcome: OutcomeSuccess},
	}
	for _, e := range events {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	results, err := store.Query(ctx, QueryFilter{Types: []EventType{EventGrantIssued}})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}

	results, err = store.Query(ctx, QueryFilter{ClientID: "client-a"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results for client-a, got %d", len(results))
	}

	results, err = store.Query(ctx, QueryFilter{Limit: 2})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results with limit, got %d", len(results))
	}
}

func TestDuckDBStore_Count(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDuckDBStore(db)
	ctx := context.Background()
	if err := store.CreateTable(ctx); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	for i := 0; i < 5; i++ {
		event := &Event{
			ID:        "count-event-" + string(rune('A'+i)),
			Timestamp: time.Now().UTC(),
			Type:      EventGrantIssued,
			ClientID:  "client-a",
			GrantType: "client_credentials",
			Outcome:   OutcomeSuccess,
		}
		if err := store.Save(ctx, event); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	count, err := store.Count(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 5 {
		t.Errorf("expected count 5, got %d", count)
	}

	count, err = store.Count(ctx, QueryFilter{Types: []EventType{EventGrantIssued}})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 5 {
		t.Errorf("expected count 5 with type filter, got %d", count)
	}
}

func TestDuckDBStore_Delete(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDuckDBStore(db)
	ctx := context.Background()
	if err := store.CreateTable(ctx); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	now := time.Now().UTC()
	events := []*Event{
		{ID: "old-1", Timestamp: now.Add(-48 * time.Hour), Type: EventGrantIssued, ClientID: "client-a", Outcome: OutcomeSuccess},
		{ID: "old-2", Timestamp: now.Add(-36 * time.Hour), Type: EventGrantIssued, ClientID: "client-a", Outcome: OutcomeSuccess},
		{ID: "recent", Timestamp: now.Add(-1 * time.Hour), Type: EventGrantIssued, ClientID: "client-a", Outcome: OutcomeSuccess},
	}
	for _, e := range events {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	deleted, err := store.Delete(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 deleted, got %d", deleted)
	}

	count, err := store.Count(ctx, QueryFilter{})
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 remaining event, got %d", count)
	}
}

func TestDuckDBStore_Query_TimeRange(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewDuckDBStore(db)
	ctx := context.Background()
	if err := store.CreateTable(ctx); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	now := time.Now().UTC()
	events := []*Event{
		{ID: "t1", Timestamp: now.Add(-72 * time.Hour), Type: EventGrantIssued, ClientID: "client-a", Outcome: OutcomeSuccess},
		{ID: "t2", Timestamp: now.Add(-24 * time.Hour), Type: EventGrantIssued, ClientID: "client-a", Outcome: OutcomeSuccess},
		{ID: "t3", Timestamp: now.Add(-1 * time.Hour), Type: EventGrantIssued, ClientID: "client-a", Outcome: OutcomeSuccess},
	}
	for _, e := range events {
		if err := store.Save(ctx, e); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	startTime := now.Add(-48 * time.Hour)
	results, err := store.Query(ctx, QueryFilter{StartTime: &startTime})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 results for last 48 hours, got %d", len(results))
	}

	startTime = now.Add(-48 * time.Hour)
	endTime := now.Add(-12 * time.Hour)
	results, err = store.Query(ctx, QueryFilter{StartTime: &startTime, EndTime: &endTime})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result for 48-12 hours range, got %d", len(results))
	}
}
