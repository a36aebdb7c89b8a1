// Package storage defines the sliding-window metrics store contract and the
// shared types exchanged between the store, the metric providers, and the
// API layer. The Redis implementation lives in the redis subpackage.
package storage
