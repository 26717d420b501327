// Package inference implements the single-request orchestration contract:
// quota check, router call, usage reconciliation, receipt, and trace,
// with an optional silent shadow run appended after the main path
// completes. One driver function wires the whole sequence of
// collaborators (policy, quota, router, recorder) rather than scattering
// it across the CLI command itself.
package inference
