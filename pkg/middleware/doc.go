// Package middleware provides HTTP middleware specific to the ingestion
// path, currently per-client rate limiting. Generic middleware (request
// IDs, logging, recovery, CORS) lives in pkg/httputil.
package middleware
