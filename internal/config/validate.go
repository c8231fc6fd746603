// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package config

import (
	"fmt"
	"net/url"
)

// Validate checks that the loaded configuration is internally consistent
// before it is turned into a server.Options, grounded on the teacher's
// config_validate.go per-section validation shape.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSigning(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return c.validateAudit()
}

func (c *Config) validateServer() error {
	if c.Server.Issuer == "" {
		return fmt.Errorf("server.issuer is required")
	}
	u, err := url.Parse(c.Server.Issuer)
	if err != nil || !u.IsAbs() {
		return fmt.Errorf("server.issuer must be an absolute URI: %q", c.Server.Issuer)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return fmt.Errorf("server.issuer must have no query or fragment: %q", c.Server.Issuer)
	}
	if !c.Server.AllowInsecureHttp && u.Scheme != "https" {
		return fmt.Errorf("server.issuer must use https unless server.allow_insecure_http is set")
	}
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr is required")
	}
	hasCert := c.Server.TLSCertFile != ""
	hasKey := c.Server.TLSKeyFile != ""
	if hasCert != hasKey {
		return fmt.Errorf("server.tls_cert_file and server.tls_key_file must both be set or both be empty")
	}
	if !hasCert && !c.Server.AllowInsecureHttp {
		return fmt.Errorf("server.tls_cert_file/tls_key_file are required unless server.allow_insecure_http is set")
	}
	return nil
}

func (c *Config) validateSigning() error {
	seen := make(map[string]bool, len(c.Signing.Keys))
	for _, k := range c.Signing.Keys {
		if k.PrivateKeyFile == "" {
			return fmt.Errorf("signing.keys: private_key_file is required")
		}
		if k.KeyID != "" {
			if seen[k.KeyID] {
				return fmt.Errorf("signing.keys: duplicate key_id %q", k.KeyID)
			}
			seen[k.KeyID] = true
		}
	}
	if c.Endpoints.Token != "" && c.Signing.OpaqueMasterSecretFile == "" {
		return fmt.Errorf("signing.opaque_master_secret_file is required when the token endpoint is enabled")
	}
	return nil
}

func (c *Config) validateCache() error {
	if c.Cache.Path == "" {
		return fmt.Errorf("cache.path is required")
	}
	return nil
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.DatabasePath == "" {
		return fmt.Errorf("audit.database_path is required when audit.enabled is set")
	}
	if c.Audit.RetentionDays <= 0 {
		return fmt.Errorf("audit.retention_days must be positive when audit.enabled is set")
	}
	return nil
}
