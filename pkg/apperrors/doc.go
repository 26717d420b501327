// Package apperrors implements the error taxonomy described in the
// RoutePilot specification: Config, Policy, Quota, Gateway, and Router
// errors, each a concrete type with Error(), plus a fallback Unknown case
// that also implements Unwrap(). ExitCode maps any error produced by the system to the
// operational exit code the CLI should return.
package apperrors
