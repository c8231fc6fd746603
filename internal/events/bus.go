// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/connectid/internal/logging"
)

// Bus is a best-effort publisher for the three event types this package
// defines. A disabled or nil Bus is safe to call: every publish method
// becomes a no-op. Publish failures are logged and swallowed — the bus
// never returns an error to callers and never blocks the HTTP response
// path behind a slow or unreachable broker.
type Bus struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	mu             sync.RWMutex
	closed         bool
	enabled        bool
}

// NewBus builds a Bus from cfg. With cfg.NATSURL empty, messages fan out
// over an in-process Watermill gochannel publisher/subscriber pair —
// there is no external subscriber by default, so publishes are simply
// dropped once fanned out, which is exactly the "best effort, no one has
// to be listening" contract this package promises. With cfg.NATSURL set,
// the Bus dials NATS and wraps publishes in a circuit breaker so a
// degraded broker cannot add latency to token/authorize/introspect
// handling once it starts tripping open.
func NewBus(cfg Config) (*Bus, error) {
	if !cfg.Enabled {
		return &Bus{enabled: false}, nil
	}

	logger := watermill.NewStdLogger(false, false)

	if cfg.NATSURL == "" {
		pub := gochannel.NewGoChannel(gochannel.Config{}, logger)
		return &Bus{publisher: pub, enabled: true}, nil
	}

	wmConfig := wmNats.PublisherConfig{
		URL:       cfg.NATSURL,
		Marshaler: &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled: true,
		},
		NatsOptions: []natsgo.Option{
			natsgo.RetryOnFailedConnect(true),
			natsgo.MaxReconnects(5),
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("events: connect nats publisher: %w", err)
	}

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name: "events-nats-publish",
	})

	return &Bus{publisher: pub, circuitBreaker: cb, enabled: true}, nil
}

func (b *Bus) publish(topic string, payload interface{}, eventID string) {
	if b == nil || !b.enabled {
		return
	}
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return
	}

	data, err := marshal(payload)
	if err != nil {
		logging.Warn().Err(err).Str("topic", topic).Msg("events: failed to marshal event, dropping")
		return
	}

	msg := message.NewMessage(eventID, data)

	var pubErr error
	if b.circuitBreaker != nil {
		_, pubErr = b.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, b.publisher.Publish(topic, msg)
		})
	} else {
		pubErr = b.publisher.Publish(topic, msg)
	}

	if pubErr != nil {
		logging.Warn().Err(pubErr).Str("topic", topic).Msg("events: publish failed, dropping")
	}
}

// PublishTokenIssued publishes a TokenIssuedEvent. Safe to call with a
// nil or disabled Bus.
func (b *Bus) PublishTokenIssued(_ context.Context, clientID, grantType, subject, scope string) {
	evt := NewTokenIssuedEvent(clientID, grantType, subject, scope)
	b.publish(TopicTokenIssued, evt, evt.EventID)
}

// PublishAuthorizationGranted publishes an AuthorizationGrantedEvent.
// Safe to call with a nil or disabled Bus.
func (b *Bus) PublishAuthorizationGranted(_ context.Context, clientID, responseType, subject, scope string) {
	evt := NewAuthorizationGrantedEvent(clientID, responseType, subject, scope)
	b.publish(TopicAuthorizationGranted, evt, evt.EventID)
}

// PublishTokenIntrospected publishes a TokenIntrospectedEvent. Safe to
// call with a nil or disabled Bus.
func (b *Bus) PublishTokenIntrospected(_ context.Context, clientID string, active bool) {
	evt := NewTokenIntrospectedEvent(clientID, active)
	b.publish(TopicTokenIntrospected, evt, evt.EventID)
}

// Close releases the underlying publisher, if any.
func (b *Bus) Close() error {
	if b == nil || !b.enabled {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	if b.publisher == nil {
		return nil
	}
	return b.publisher.Close()
}
