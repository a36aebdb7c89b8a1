// Package api exposes the analytics HTTP surface: the public ingestion and
// metrics endpoints, and the operational endpoints (health, readiness,
// Prometheus metrics) served on a separate port.
package api
