// Package metrics wraps a prometheus.Registry with the counters RoutePilot's
// core emits: router attempts/fallbacks, quota rejections, and receipt
// writes. Each sub-metrics type (Router, Quota, Receipts) is accepted by its
// owning package as a nil-safe dependency rather than a package-level
// global, so tests can run with no registry at all.
package metrics
