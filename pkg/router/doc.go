// Package router implements the streaming failover supervisor: route
// ladder construction with p95 pre-pick, per-attempt stall timers and
// first-chunk gating, failure classification, backoff, and operator
// escalation, generalized from single-shot provider selection to
// multi-attempt streaming supervision. Chaos injection is threaded in as
// explicit Flags rather than read from os.Getenv in the hot path.
package router
