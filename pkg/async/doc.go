// Package async provides helpers for launching detached goroutines safely.
//
// Ingestion writes and stale-on-read evictions are fire-and-forget: the
// caller gets its response before the store write completes, and failures
// are only observable through logs and metrics. SafeGo is the single entry
// point for spawning those tasks so every one of them gets panic recovery,
// a bounded deadline, and error logging instead of a bare `go func()`.
package async
