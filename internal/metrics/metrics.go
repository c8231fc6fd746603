// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

// Package metrics instruments the OIDC/OAuth 2.0 surface: per-endpoint
// request latency and status, token issuance by grant type and artifact
// kind, and Request Cache hit/miss counts. Grounded on the teacher's
// internal/metrics/metrics.go promauto registration style and
// internal/middleware/prometheus.go's request-instrumentation shape —
// the teacher's database/sync/tile-cache metric families have no
// equivalent here and are not carried over.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal counts the HTTP requests on routes wrapped by
	// middleware.PrometheusMetrics, labeled by method/endpoint path/status code.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connectid_api_requests_total",
			Help: "Total number of HTTP requests handled, by method, endpoint, and status code",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	// APIRequestDuration measures end-to-end handler latency.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "connectid_api_request_duration_seconds",
			Help:    "HTTP request handler latency in seconds, by method and endpoint",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// APIActiveRequests is the number of requests currently in flight.
	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connectid_api_active_requests",
			Help: "Number of HTTP requests currently being handled",
		},
	)

	// TokensIssuedTotal counts minted artifacts, labeled by grant_type (or
	// "authorization_endpoint" for the implicit/hybrid path) and artifact
	// kind (code, access_token, id_token, refresh_token).
	TokensIssuedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connectid_tokens_issued_total",
			Help: "Total number of tokens issued, by grant type and artifact kind",
		},
		[]string{"grant_type", "artifact"},
	)

	// TokenMintErrorsTotal counts serializer failures while minting an
	// artifact — a signing or encryption failure, never a client error.
	TokenMintErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connectid_token_mint_errors_total",
			Help: "Total number of token minting failures, by artifact kind",
		},
		[]string{"artifact"},
	)

	// IntrospectionRequestsTotal counts introspection calls by the kind of
	// token presented and whether it validated.
	IntrospectionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connectid_introspection_requests_total",
			Help: "Total number of introspection requests, by presented token kind and outcome",
		},
		[]string{"token_kind", "outcome"},
	)

	// GrantResultsTotal counts Provider grant-hook outcomes by grant_type
	// and result (validated, rejected).
	GrantResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connectid_grant_results_total",
			Help: "Total number of grant hook invocations, by grant type and result",
		},
		[]string{"grant_type", "result"},
	)

	// CacheOperationsTotal counts Request Cache hits/misses/stores, by
	// operation (request, authorization_code) and outcome.
	CacheOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "connectid_cache_operations_total",
			Help: "Total number of Request Cache operations, by kind and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// CircuitBreakerState mirrors the Request Cache's gobreaker state as a
	// gauge: 0 closed, 1 half-open, 2 open.
	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "connectid_cache_circuit_breaker_state",
			Help: "Request Cache circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// RecordAPIRequest records one completed HTTP request. Signature matches
// what internal/middleware.PrometheusMetrics expects.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordTokenIssued records one minted artifact.
func RecordTokenIssued(grantType, artifact string) {
	TokensIssuedTotal.WithLabelValues(grantType, artifact).Inc()
}

// RecordTokenMintError records a serializer failure while minting artifact.
func RecordTokenMintError(artifact string) {
	TokenMintErrorsTotal.WithLabelValues(artifact).Inc()
}

// RecordIntrospection records one introspection call outcome.
func RecordIntrospection(tokenKind, outcome string) {
	IntrospectionRequestsTotal.WithLabelValues(tokenKind, outcome).Inc()
}

// RecordGrantResult records one Provider grant-hook outcome.
func RecordGrantResult(grantType, result string) {
	GrantResultsTotal.WithLabelValues(grantType, result).Inc()
}

// RecordCacheOperation records one Request Cache operation outcome.
func RecordCacheOperation(operation, outcome string) {
	CacheOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// SetCircuitBreakerState reports the Request Cache's gobreaker state.
func SetCircuitBreakerState(state int) {
	CircuitBreakerState.Set(float64(state))
}
