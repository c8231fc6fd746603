// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package audit

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	"github.com/tomtom215/connectid/internal/logging"
)

// Config holds configuration for the ledger logger.
type Config struct {
	// Enabled controls whether ledger writes happen at all.
	Enabled bool `json:"enabled"`

	// RetentionDays is how long to keep ledger entries.
	RetentionDays int `json:"retention_days"`

	// CleanupInterval is how often to run retention cleanup.
	CleanupInterval time.Duration `json:"cleanup_interval"`

	// BufferSize is the size of the async write buffer.
	BufferSize int `json:"buffer_size"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		RetentionDays:   90,
		CleanupInterval: 24 * time.Hour,
		BufferSize:      1000,
	}
}

// Logger is the ledger-writing service sitting in front of a Store. Log
// calls never block the HTTP response path: writes are buffered and
// persisted by a background goroutine, and a full buffer drops the
// event with a warning rather than stalling the caller.
type Logger struct {
	config    *Config
	store     Store
	eventChan chan *Event
	mu        sync.RWMutex
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLogger creates a new ledger logger writing to store.
func NewLogger(store Store, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}

	l := &Logger{
		config:    config,
		store:     store,
		eventChan: make(chan *Event, config.BufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()

	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	if l.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Msg("failed to save audit ledger event")
	}
}

// Log records an event. Safe to call from a request handler: it never
// blocks on I/O.
func (l *Logger) Log(event *Event) {
	l.mu.RLock()
	enabled := l.config.Enabled
	l.mu.RUnlock()

	if !enabled {
		return
	}

	if event.ID == "" {
		event.ID = generateEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case l.eventChan <- event:
	default:
		logging.Warn().Str("event_id", event.ID).Msg("audit ledger buffer full, dropping event")
	}
}

// LogGrantIssued records a successful token-endpoint grant.
func (l *Logger) LogGrantIssued(ctx context.Context, clientID, grantType string) {
	l.Log(&Event{
		Type:      EventGrantIssued,
		ClientID:  clientID,
		GrantType: grantType,
		Outcome:   OutcomeSuccess,
		RequestID: requestIDFrom(ctx),
	})
}

// LogGrantRejected records a grant the Provider or dispatcher rejected.
func (l *Logger) LogGrantRejected(ctx context.Context, clientID, grantType, reason string) {
	l.Log(&Event{
		Type:      EventGrantRejected,
		ClientID:  clientID,
		GrantType: grantType,
		Outcome:   OutcomeFailure,
		Detail:    mustJSON(map[string]string{"reason": reason}),
		RequestID: requestIDFrom(ctx),
	})
}

// LogAuthorizationGranted records a successful authorization-endpoint
// response.
func (l *Logger) LogAuthorizationGranted(ctx context.Context, clientID, responseType string) {
	l.Log(&Event{
		Type:      EventAuthorizationGranted,
		ClientID:  clientID,
		GrantType: responseType,
		Outcome:   OutcomeSuccess,
		RequestID: requestIDFrom(ctx),
	})
}

// LogIntrospection records an introspection call outcome.
func (l *Logger) LogIntrospection(ctx context.Context, clientID string, active bool) {
	outcome := OutcomeFailure
	if active {
		outcome = OutcomeSuccess
	}
	l.Log(&Event{
		Type:      EventIntrospectionPerformed,
		ClientID:  clientID,
		Outcome:   outcome,
		RequestID: requestIDFrom(ctx),
	})
}

// Close drains the write buffer and stops the background goroutine.
func (l *Logger) Close() error {
	close(l.stopChan)
	l.wg.Wait()
	return nil
}

// StartCleanupRoutine periodically deletes entries older than
// RetentionDays, until ctx is cancelled.
func (l *Logger) StartCleanupRoutine(ctx context.Context) {
	l.mu.RLock()
	interval := l.config.CleanupInterval
	retention := l.config.RetentionDays
	l.mu.RUnlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().AddDate(0, 0, -retention)
				count, err := l.store.Delete(ctx, cutoff)
				if err != nil {
					logging.Error().Err(err).Msg("audit ledger cleanup error")
				} else if count > 0 {
					logging.Info().Int64("count", count).Msg("cleaned up old audit ledger entries")
				}
			}
		}
	}()
}

// Query retrieves events matching the filter.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Count returns the number of events matching the filter.
func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}

// SetEnabled enables or disables ledger writes.
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Enabled = enabled
}

// Enabled returns whether ledger writes are currently enabled.
func (l *Logger) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Enabled
}

func generateEventID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return time.Now().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(b)
}

type contextKey string

// requestIDContextKey is the context key a caller stores the request ID
// under, mirroring internal/server.ContextKeyRequestID's shape.
const requestIDContextKey contextKey = "request_id"

func requestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(requestIDContextKey).(string); ok {
		return id
	}
	return ""
}
