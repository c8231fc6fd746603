// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where a config file is searched, in
// order of priority. The first one found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/connectid/config.yaml",
	"/etc/connectid/config.yml",
}

// ConfigPathEnvVar overrides the config file search with an explicit path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns every spec.md §6 default, grounded on
// internal/server.DefaultOptions — the two must be kept in sync.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:           ":8443",
			UseSlidingExpiration: true,
		},
		Endpoints: EndpointsConfig{
			Authorization: "/connect/authorize",
			Token:         "/connect/token",
			Introspection: "/connect/token_validation",
			Logout:        "/connect/logout",
			Configuration: "/.well-known/openid-configuration",
			Cryptography:  "/.well-known/jwks",
		},
		Lifetimes: LifetimesConfig{
			AuthorizationCode: 5 * time.Minute,
			AccessToken:       time.Hour,
			IdentityToken:     20 * time.Minute,
			RefreshToken:      6 * time.Hour,
		},
		Cache: CacheConfig{
			Path: "/data/connectid/cache",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Audit: AuditConfig{
			Enabled:         false,
			DatabasePath:    "/data/connectid/audit.duckdb",
			RetentionDays:   90,
			CleanupInterval: 24 * time.Hour,
			BufferSize:      1000,
		},
		Events: EventsConfig{
			Enabled: false,
		},
	}
}

// Load reads configuration using Koanf with three layered sources, in
// ascending priority: built-in defaults, an optional YAML file, then
// environment variables. Grounded on the teacher's koanf.go three-layer
// LoadWithKoanf.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("CONNECTID_", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envPaths maps a CONNECTID_-stripped environment variable name to its
// koanf path. An explicit table, not a generic underscore-to-dot
// transform, because several field names (listen_addr, tls_cert_file,
// opaque_master_secret_file, ...) are themselves snake_case — a blind
// transform cannot tell a word separator from a path separator. Grounded
// on the teacher's koanf.go envTransformFunc, same shape, smaller table.
var envPaths = map[string]string{
	"LISTEN_ADDR":                    "server.listen_addr",
	"ISSUER":                         "server.issuer",
	"TLS_CERT_FILE":                  "server.tls_cert_file",
	"TLS_KEY_FILE":                   "server.tls_key_file",
	"ALLOW_INSECURE_HTTP":            "server.allow_insecure_http",
	"USE_SLIDING_EXPIRATION":         "server.use_sliding_expiration",
	"APPLICATION_CAN_DISPLAY_ERRORS": "server.application_can_display_errors",

	"ENDPOINT_AUTHORIZATION": "endpoints.authorization",
	"ENDPOINT_TOKEN":         "endpoints.token",
	"ENDPOINT_INTROSPECTION": "endpoints.introspection",
	"ENDPOINT_LOGOUT":        "endpoints.logout",
	"ENDPOINT_CONFIGURATION": "endpoints.configuration",
	"ENDPOINT_CRYPTOGRAPHY":  "endpoints.cryptography",

	"LIFETIME_AUTHORIZATION_CODE": "lifetimes.authorization_code",
	"LIFETIME_ACCESS_TOKEN":       "lifetimes.access_token",
	"LIFETIME_IDENTITY_TOKEN":     "lifetimes.identity_token",
	"LIFETIME_REFRESH_TOKEN":      "lifetimes.refresh_token",

	"SIGNING_OPAQUE_MASTER_SECRET_FILE": "signing.opaque_master_secret_file",

	"CACHE_PATH": "cache.path",

	"LOG_LEVEL":  "logging.level",
	"LOG_FORMAT": "logging.format",
	"LOG_CALLER": "logging.caller",

	"AUDIT_ENABLED":          "audit.enabled",
	"AUDIT_DATABASE_PATH":    "audit.database_path",
	"AUDIT_RETENTION_DAYS":   "audit.retention_days",
	"AUDIT_CLEANUP_INTERVAL": "audit.cleanup_interval",
	"AUDIT_BUFFER_SIZE":      "audit.buffer_size",

	"EVENTS_ENABLED":  "events.enabled",
	"EVENTS_NATS_URL": "events.nats_url",
}

func envTransformFunc(key string) string {
	key = strings.TrimPrefix(key, "CONNECTID_")
	if mapped, ok := envPaths[key]; ok {
		return mapped
	}
	return ""
}
