// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

/*
Package metrics provides Prometheus metrics collection and export for
the authorization server's observability surface.

# Overview

The package defines metrics for:
  - HTTP request latency and throughput, per endpoint
  - Token issuance counts, per grant type and artifact kind
  - Introspection outcomes, per presented token kind
  - Grant hook results, per grant type
  - Request Cache operation outcomes and circuit breaker state

Only the HTTP metrics are recorded in this module: middleware.PrometheusMetrics
wraps the authorization, token, introspection and logout routes of
internal/server's router. The token, introspection, grant and cache
families are registered and exported, but no code in internal/server or
internal/cache calls their recording functions.

# Metrics Endpoint

Metrics are exposed at /metrics in Prometheus text format:

	curl http://localhost:8443/metrics

# Available Metrics

HTTP Metrics:
  - connectid_api_requests_total: Total HTTP requests (counter)
    Labels: method, endpoint, status_code
  - connectid_api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - connectid_api_active_requests: Active requests (gauge)

Token Metrics:
  - connectid_tokens_issued_total: Artifacts minted (counter)
    Labels: grant_type, artifact
  - connectid_token_mint_errors_total: Minting failures (counter)
    Labels: artifact

Introspection and Grant Metrics:
  - connectid_introspection_requests_total: Introspection calls (counter)
    Labels: token_kind, outcome
  - connectid_grant_results_total: Grant hook outcomes (counter)
    Labels: grant_type, result

Cache Metrics:
  - connectid_cache_operations_total: Request Cache operations (counter)
    Labels: operation, outcome
  - connectid_cache_circuit_breaker_state: Circuit breaker state (gauge)
*/
package metrics
