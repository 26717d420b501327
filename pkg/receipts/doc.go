// Package receipts builds, signs, optionally redacts, and persists the
// immutable invocation records. The canonical payload is a
// fixed-field-order struct (payload.go) so its JSON encoding is stable
// regardless of map iteration order; redact.go scrubs it before signing,
// generalized from log-line PII scrubbing to receipt-payload scrubbing.
// Persistence delegates to pkg/ledger; the optional pretty-JSON file
// mirror writes one indented-encoder file per receipt.
package receipts
