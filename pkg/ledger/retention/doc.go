// Package retention prunes old receipts and traces from the ledger on a
// cron schedule, so a long-running RoutePilot process doesn't grow its
// SQLite file without bound. Quota counters and chat sessions are never
// pruned here: daily quota rows and chat history persist independently
// of receipt/trace retention.
package retention
