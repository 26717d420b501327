// Package subagent implements the typed, envelope-driven sub-agent
// controller: pre-flight input validation and http_fetch tool pre-fetch,
// a forced-JSON two-message call, last-balanced-JSON-object extraction,
// post-flight output validation and budget flagging, dry-run stubs, and
// the sequential and parallel helpdesk chains with their deterministic
// aggregator reduce.
package subagent
