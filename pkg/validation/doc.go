// Package validation checks incoming analytics events against the ingestion
// contract and normalizes page URLs into their canonical storage form.
//
// Validation is a fixed-order rule chain: the first failing rule rejects the
// event with a message naming the offending field and value. Normalization
// results are memoized in a bounded LRU cache because a small set of page
// URLs dominates real traffic.
package validation
