// Package metrics computes the realtime analytics snapshot. Each windowed
// metric is a Provider; the Collector runs all providers concurrently and
// assembles their results into one Snapshot. A snapshot is all-or-nothing:
// any provider failure fails the whole collection rather than serving a
// partially populated response.
package metrics
