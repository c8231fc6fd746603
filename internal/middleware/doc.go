// connectid - OpenID Connect 1.0 / OAuth 2.0 authorization server core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/connectid

/*
Package middleware provides HTTP middleware components for the application.

This package implements infrastructure middleware for compression, performance
monitoring, request ID tracking, and Prometheus metrics integration.
internal/server's router uses RequestID and PrometheusMetrics from this
package; Compression and the performance monitor are not wired into it.

Key Components:

  - Compression: Gzip compression for every response when the client accepts gzip
  - Performance Monitor: Request latency tracking with percentile calculations
  - Request ID: UUID-based request tracking for distributed tracing
  - Prometheus Metrics: HTTP request/response instrumentation

Middleware Stack:

internal/server's router applies RequestID to every route, followed by
chi's RealIP and Recoverer, a TLS check and go-chi/cors. The
authorization, token, introspection and logout route groups add
PrometheusMetrics, and all but logout add a go-chi/httprate limit.

The middleware in this package can also be chained by hand:

	http.HandleFunc("/api/v1/endpoint",
	    middleware.PrometheusMetrics(     // Layer 1: Metrics
	        middleware.Compression(       // Layer 2: Gzip
	            middleware.RequestID(     // Layer 3: Request tracking
	                handler,              // Layer 4: Business logic
	            ),
	        ),
	    ),
	)

Usage Example - Compression:

	import "github.com/tomtom215/connectid/internal/middleware"

	// Wrap handler with gzip compression
	http.HandleFunc("/api/v1/data",
	    middleware.Compression(handler),
	)

	// Every response is compressed; there is no size threshold
	// Accept-Encoding: gzip header is required

Usage Example - Performance Monitoring:

	// Create performance monitor keeping the 1000 most recent samples
	perfMon := middleware.NewPerformanceMonitor(1000)

	// Wrap handler (Middleware takes and returns an http.Handler)
	http.Handle("/api/v1/stats",
	    perfMon.Middleware(handler),
	)

	// Get per-endpoint performance statistics
	for _, s := range perfMon.GetStats() {
	    fmt.Printf("%s p50: %d, p95: %d, p99: %d\n",
	        s.Path, s.P50Duration, s.P95Duration, s.P99Duration)
	}

Usage Example - Request ID:

	// Request ID middleware
	http.HandleFunc("/api/v1/logs",
	    middleware.RequestID(handler),
	)

	// Access request ID in handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := r.Context().Value(middleware.RequestIDKey).(string)
	    log.Printf("[%s] Processing request", requestID)
	}

Performance Characteristics:

  - Compression: 70-90% size reduction for JSON (text/json mime types)
  - Compression overhead: ~1-2ms for typical responses
  - Metrics overhead: <0.1ms per request
  - Request ID overhead: <0.01ms (UUID generation)
  - Performance monitor: RWMutex-guarded slice of recent latency samples

Compression Details:

The compression middleware:
  - Compresses every response; there is no size threshold
  - Supports gzip encoding (Accept-Encoding: gzip)
  - Applies to every content type (no mime-type filter)
  - Automatically sets Content-Encoding header
  - Does not flush compressed data before the handler returns

Performance Monitor:

The performance monitor tracks:
  - Request count and error rate
  - Latency percentiles (p50, p95, p99)
  - Rolling window of the maxMetrics most recent requests
  - Thread-safe concurrent access with RWMutex

Thread Safety:

All middleware components are thread-safe:
  - Compression takes gzip writers from a sync.Pool
  - Performance monitor uses sync.RWMutex
  - Request ID uses context.Context (immutable)
  - Prometheus metrics use atomic operations

See Also:

  - internal/server: HTTP handlers wrapped by this middleware
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
