// Package analytics wires the domain services: event ingestion (validate,
// normalize, write) and metrics retrieval (sweep expired data, collect the
// snapshot). The HTTP layer in pkg/api is a thin shell over these two
// services.
package analytics
