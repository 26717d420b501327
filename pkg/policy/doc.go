// Package policy implements the validated configuration model: objectives,
// routing, strategy, tenancy, and generation defaults, keyed by policy
// name. Loading follows a YAML-with-defaults pattern over a closed schema:
// unknown top-level keys are rejected and every optional field is
// default-filled before validation runs.
package policy
