// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package config

import "time"

// Config is the process-level configuration surface: everything needed to
// construct a server.Options plus the knobs that sit outside it (listen
// address, TLS material, signing key files, cache location). Field names
// mirror server.Options where there is a direct correspondence, so
// Config.BuildOptions (wire.go) maps one onto the other mostly field by
// field.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Endpoints EndpointsConfig `koanf:"endpoints"`
	Lifetimes LifetimesConfig `koanf:"lifetimes"`
	Signing   SigningConfig   `koanf:"signing"`
	Cache     CacheConfig     `koanf:"cache"`
	Logging   LoggingConfig   `koanf:"logging"`
	Audit     AuditConfig     `koanf:"audit"`
	Events    EventsConfig    `koanf:"events"`
}

// ServerConfig controls the listener and the handful of Options flags
// that are not endpoint paths, lifetimes, or collaborators.
type ServerConfig struct {
	ListenAddr                  string `koanf:"listen_addr"`
	Issuer                      string `koanf:"issuer"`
	TLSCertFile                 string `koanf:"tls_cert_file"`
	TLSKeyFile                  string `koanf:"tls_key_file"`
	AllowInsecureHttp           bool   `koanf:"allow_insecure_http"`
	UseSlidingExpiration        bool   `koanf:"use_sliding_expiration"`
	ApplicationCanDisplayErrors bool   `koanf:"application_can_display_errors"`
}

// EndpointsConfig holds the six endpoint paths of spec.md §6. An empty
// path disables that endpoint.
type EndpointsConfig struct {
	Authorization string `koanf:"authorization"`
	Token         string `koanf:"token"`
	Introspection string `koanf:"introspection"`
	Logout        string `koanf:"logout"`
	Configuration string `koanf:"configuration"`
	Cryptography  string `koanf:"cryptography"`
}

// LifetimesConfig holds the four token lifetimes of spec.md §6.
type LifetimesConfig struct {
	AuthorizationCode time.Duration `koanf:"authorization_code"`
	AccessToken       time.Duration `koanf:"access_token"`
	IdentityToken     time.Duration `koanf:"identity_token"`
	RefreshToken      time.Duration `koanf:"refresh_token"`
}

// SigningConfig lists the signing credentials to load, ordered — the
// first is the one new tokens are signed with; every entry is published
// to the JWKS document.
type SigningConfig struct {
	Keys []SigningKeyConfig `koanf:"keys"`
	// OpaqueMasterSecretFile points at a file holding the base64-encoded
	// master secret internal/token.NewOpaqueSerializer derives the
	// authorization-code/refresh-token protection key from.
	OpaqueMasterSecretFile string `koanf:"opaque_master_secret_file"`
}

// SigningKeyConfig names the files backing one token.SigningKey.
type SigningKeyConfig struct {
	KeyID           string `koanf:"key_id"`
	PrivateKeyFile  string `koanf:"private_key_file"`
	CertificateFile string `koanf:"certificate_file"`
}

// CacheConfig configures the Request Cache (internal/cache), a Badger
// database on disk.
type CacheConfig struct {
	Path string `koanf:"path"`
}

// LoggingConfig mirrors internal/logging.Config's shape, grounded on the
// teacher's own LoggingConfig.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// AuditConfig controls the grant/introspection ledger (internal/audit,
// SPEC_FULL.md Supplemented Feature 1). Disabled by default: this is an
// optional collaborator, not a core dependency.
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	DatabasePath    string        `koanf:"database_path"`
	RetentionDays   int           `koanf:"retention_days"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	BufferSize      int           `koanf:"buffer_size"`
}

// EventsConfig controls the best-effort TokenIssued/AuthorizationGranted/
// TokenIntrospected fan-out (internal/events, SPEC_FULL.md Supplemented
// Feature 2). Disabled by default. An empty NATSURL with Enabled true
// uses the in-process gochannel transport.
type EventsConfig struct {
	Enabled bool   `koanf:"enabled"`
	NATSURL string `koanf:"nats_url"`
}
