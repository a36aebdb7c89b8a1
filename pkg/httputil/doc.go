// Package httputil provides HTTP handler utilities for consistent error
// handling, JSON encoding/decoding, and the middleware chain shared by the
// API and ops servers (request logging, panic recovery, CORS, request IDs).
package httputil
