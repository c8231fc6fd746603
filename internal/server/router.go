// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/connectid/internal/logging"
	"github.com/tomtom215/connectid/internal/middleware"
	"github.com/tomtom215/connectid/internal/protocol"
)

// timeWindow is the sliding window used by every rate limit below,
// grounded on the teacher's internal/api/chi_router.go rate-limit tiers.
const timeWindow = time.Minute

// keyByClientID rate-limits the token endpoint per client_id in addition
// to per-IP, so one noisy client cannot exhaust another's quota.
func keyByClientID(r *http.Request) (string, error) {
	if err := r.ParseForm(); err != nil {
		return "", err
	}
	return r.Form.Get(protocol.ParamClientID), nil
}

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler, grounded on the teacher's
// internal/api/chi_router.go helper of the same name.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// requireTLS rejects plaintext HTTP requests unless AllowInsecureHttp is
// set, spec.md §6's "AllowInsecureHttp ... must never be set in
// production".
func (h *Handler) requireTLS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil && !h.opts.AllowInsecureHttp {
			writeJSONError(w, protocol.NewError(protocol.ErrInvalidRequest).WithDescription("TLS is required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Router assembles the chi.Router that dispatches the six endpoints of
// spec.md §4.1. An empty Options path disables the corresponding
// endpoint: a request against it reaches no route and chi answers 404.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware(middleware.RequestID))
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(h.requireTLS)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         3600,
	}))

	if h.opts.AuthorizationEndpointPath != "" {
		r.Route(h.opts.AuthorizationEndpointPath, func(r chi.Router) {
			r.Use(chiMiddleware(middleware.PrometheusMetrics))
			r.Use(httprate.Limit(60, timeWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
			r.Get("/", h.ServeAuthorize)
			r.Post("/", h.ServeAuthorize)
		})
	}

	if h.opts.tokenEndpointEnabled() {
		r.Route(h.opts.TokenEndpointPath, func(r chi.Router) {
			r.Use(chiMiddleware(middleware.PrometheusMetrics))
			r.Use(httprate.Limit(30, timeWindow, httprate.WithKeyFuncs(httprate.KeyByIP, keyByClientID)))
			r.Post("/", h.ServeToken)
		})
	}

	if h.opts.TokenValidationEndpointPath != "" {
		r.Route(h.opts.TokenValidationEndpointPath, func(r chi.Router) {
			r.Use(chiMiddleware(middleware.PrometheusMetrics))
			r.Use(httprate.Limit(60, timeWindow, httprate.WithKeyFuncs(httprate.KeyByIP)))
			r.Get("/", h.ServeIntrospect)
			r.Post("/", h.ServeIntrospect)
		})
	}

	if h.opts.LogoutEndpointPath != "" {
		r.Route(h.opts.LogoutEndpointPath, func(r chi.Router) {
			r.Use(chiMiddleware(middleware.PrometheusMetrics))
			r.Get("/", h.ServeLogout)
			r.Post("/", h.ServeLogout)
		})
	}

	if h.opts.ConfigurationEndpointPath != "" {
		r.Get(h.opts.ConfigurationEndpointPath, h.ServeDiscovery)
	}
	if h.opts.CryptographyEndpointPath != "" {
		r.Get(h.opts.CryptographyEndpointPath, h.ServeJWKS)
	}

	r.Handle("/metrics", promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if result := h.opts.Provider.MatchEndpoint(r.Context(), r.Method, r.URL.Path); result.IsHandled() {
			return
		}
		logging.CtxDebug(r.Context()).Str("path", r.URL.Path).Msg("server: no route matched")
		http.NotFound(w, r)
	})

	return r
}
