// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

/*
Package main is the entry point for the connectid authorization server.

connectid implements the OpenID Connect 1.0 / OAuth 2.0 core protocol
described in spec.md: the authorization, token, introspection, logout,
discovery, and JWKS endpoints, behind a single Provider extension point
that a hosting deployment uses to supply client validation and grant
decisions.

# Application Architecture

	RootSupervisor ("connectid")
	├── http                 HTTP listener (internal/server.Handler.Router)
	└── audit-cleanup        ledger retention sweep (only when audit is enabled)

Component initialization order:

 1. Configuration: Koanf v2, environment variables over a config file over defaults
 2. Logging: zerolog with JSON/console output modes
 3. Request Cache: BadgerDB-backed pending-request/authorization-code store
 4. Provider: Casbin-backed client policy (internal/authz)
 5. Audit ledger: DuckDB-backed grant/introspection log, if enabled
 6. Event bus: Watermill/NATS fan-out, if enabled
 7. Supervisor tree: Suture v4 process supervision
 8. HTTP server: chi router with the six spec endpoints

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest
priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables (see internal/config for the full set):

	CONNECTID_ISSUER=https://id.example.com
	CONNECTID_LISTEN_ADDR=:8443
	CONNECTID_TLS_CERT_FILE=/etc/connectid/tls.crt
	CONNECTID_TLS_KEY_FILE=/etc/connectid/tls.key
	CONNECTID_LOG_LEVEL=info
	CONNECTID_LOG_FORMAT=json
	CONNECTID_CACHE_PATH=/var/lib/connectid/cache
	CONNECTID_SIGNING_OPAQUE_MASTER_SECRET_FILE=/etc/connectid/opaque.key
	CONNECTID_AUDIT_ENABLED=false
	CONNECTID_EVENTS_ENABLED=false

CONFIG_PATH overrides the default config-file search (config.yaml,
config.yml, /etc/connectid/config.yaml, /etc/connectid/config.yml).

# Signal Handling

The server handles graceful shutdown on SIGINT and SIGTERM:

 1. Stops accepting new HTTP connections
 2. Waits for in-flight requests (10s timeout)
 3. Closes the request cache and, if open, the audit database

# See Also

  - internal/config: configuration loading and server.Options wiring
  - internal/server: endpoint dispatcher and handlers
  - internal/authz: default Casbin-backed Provider
  - internal/audit: grant/introspection ledger
  - internal/events: best-effort event fan-out
*/
package main
