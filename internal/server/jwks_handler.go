// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/connectid/internal/jwks"
	"github.com/tomtom215/connectid/internal/logging"
)

// ServeJWKS implements the cryptography (JWKS) endpoint, spec.md §4.6.
func (h *Handler) ServeJWKS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doc := jwks.BuildDocument(h.opts.SigningCredentials, *logging.Ctx(ctx))

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if err := json.NewEncoder(w).Encode(doc); err != nil {
		logging.CtxErr(ctx, err).Msg("server: encode jwks document")
	}
}
