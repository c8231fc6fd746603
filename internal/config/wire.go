// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package config

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/tomtom215/connectid/internal/server"
	"github.com/tomtom215/connectid/internal/token"
)

// BuildOptions turns a validated Config into a server.Options, loading
// every signing key and the opaque master secret from disk. Provider and
// Cache are left unset — cmd/server wires those in, since they are live
// collaborators, not static configuration.
func (c *Config) BuildOptions() (server.Options, error) {
	opts := server.Options{
		Issuer:                      c.Server.Issuer,
		AuthorizationEndpointPath:   c.Endpoints.Authorization,
		TokenEndpointPath:           c.Endpoints.Token,
		TokenValidationEndpointPath: c.Endpoints.Introspection,
		LogoutEndpointPath:          c.Endpoints.Logout,
		ConfigurationEndpointPath:   c.Endpoints.Configuration,
		CryptographyEndpointPath:    c.Endpoints.Cryptography,

		AuthorizationCodeLifetime: c.Lifetimes.AuthorizationCode,
		AccessTokenLifetime:       c.Lifetimes.AccessToken,
		IdentityTokenLifetime:     c.Lifetimes.IdentityToken,
		RefreshTokenLifetime:      c.Lifetimes.RefreshToken,

		UseSlidingExpiration:        c.Server.UseSlidingExpiration,
		AllowInsecureHttp:           c.Server.AllowInsecureHttp,
		ApplicationCanDisplayErrors: c.Server.ApplicationCanDisplayErrors,
	}

	keys := make([]token.SigningKey, 0, len(c.Signing.Keys))
	for _, kc := range c.Signing.Keys {
		key, err := loadSigningKey(kc)
		if err != nil {
			return server.Options{}, fmt.Errorf("config: signing key %q: %w", kc.KeyID, err)
		}
		keys = append(keys, key)
	}
	opts.SigningCredentials = keys

	if c.Signing.OpaqueMasterSecretFile != "" {
		secret, err := loadOpaqueMasterSecret(c.Signing.OpaqueMasterSecretFile)
		if err != nil {
			return server.Options{}, fmt.Errorf("config: opaque master secret: %w", err)
		}
		serializer, err := token.NewOpaqueSerializer(secret)
		if err != nil {
			return server.Options{}, fmt.Errorf("config: build opaque serializer: %w", err)
		}
		opts.OpaqueSerializer = serializer
	}

	return opts, nil
}

func loadSigningKey(kc SigningKeyConfig) (token.SigningKey, error) {
	pemBytes, err := os.ReadFile(kc.PrivateKeyFile)
	if err != nil {
		return token.SigningKey{}, err
	}
	priv, err := parseRSAPrivateKeyPEM(pemBytes)
	if err != nil {
		return token.SigningKey{}, err
	}

	var cert *x509.Certificate
	if kc.CertificateFile != "" {
		certBytes, err := os.ReadFile(kc.CertificateFile)
		if err != nil {
			return token.SigningKey{}, err
		}
		cert, err = parseCertificatePEM(certBytes)
		if err != nil {
			return token.SigningKey{}, err
		}
	}

	return token.NewSigningKey(kc.KeyID, priv, cert), nil
}

func parseRSAPrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("not a recognized RSA private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("PKCS8 key is not an RSA key")
	}
	return rsaKey, nil
}

func parseCertificatePEM(data []byte) (*x509.Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found")
	}
	return x509.ParseCertificate(block.Bytes)
}

// loadOpaqueMasterSecret reads a base64-encoded secret from path. The
// file is expected to hold exactly one line produced out-of-band (e.g.
// `openssl rand -base64 32`), mirroring how the teacher's encryption.go
// sourced its AES key material from an operator-managed secret file
// rather than embedding it in configuration.
func loadOpaqueMasterSecret(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(trimNewline(string(raw)))
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
