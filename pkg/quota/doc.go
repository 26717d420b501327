// Package quota implements the sliding-window RPM gate and per-day token
// accounting over pkg/ledger's rpm_events and quotas_daily tables.
// Per-user serialization is a sync.Map of *sync.Mutex: a lock per key
// rather than one global lock, so unrelated users never contend. The
// ledger's own single-connection pool already serializes writes; this
// layer adds read-then-write atomicity across the two ledger calls
// (DailyTokens, then AddDailyTokens) an AddDailyTokens invocation makes,
// and keeps one user's AssertWithinRPM calls from interleaving.
package quota
