// Package gateway is the single typed client for the upstream
// OpenAI-compatible chat-completions endpoint. It builds the request body,
// attaches auth, issues the call under a caller-supplied context, and
// exposes the raw streaming or buffered body for pkg/sse to parse. Retry and
// failover live one layer up in pkg/router; this package makes exactly one
// HTTP call per invocation and leaves its own retry loop out entirely.
package gateway
