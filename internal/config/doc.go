// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

/*
Package config loads the process-level configuration surface: the
server.Options knobs of spec.md §6, the listener address and TLS
material, and the files backing the signing credentials and the opaque
serializer's master secret.

# Configuration Sources

Three layers, lowest to highest priority: built-in defaults, an optional
YAML file (CONFIG_PATH or one of DefaultConfigPaths), then
CONNECTID_-prefixed environment variables.

# Usage

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	opts, err := cfg.BuildOptions()
	if err != nil {
		log.Fatal(err)
	}
	opts.Cache = cache.New(db)
	opts.Provider = provider.New(hooks)
	h := server.New(opts)
*/
package config
