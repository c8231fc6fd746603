// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package events

// Config controls how the Bus publishes events.
type Config struct {
	// Enabled controls whether events are published at all. Default: false.
	Enabled bool `json:"enabled"`

	// NATSURL selects the transport. Empty uses an in-process gochannel
	// publisher; non-empty dials a NATS server at the given URL.
	NATSURL string `json:"nats_url"`
}

// DefaultConfig returns a disabled, in-process configuration.
func DefaultConfig() Config {
	return Config{
		Enabled: false,
		NATSURL: "",
	}
}
