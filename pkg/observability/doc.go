// Package observability provides the operational plumbing shared by every
// service component: structured JSON logging, Prometheus metrics, optional
// OpenTelemetry trace export, dependency health checks, and graceful
// shutdown coordination.
//
// The logger travels through request contexts so handlers and background
// tasks log with the originating request ID attached. Metrics are registered
// against a single registry owned by the process entrypoint.
package observability
