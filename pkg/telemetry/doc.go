// Package telemetry groups RoutePilot's two observability surfaces:
// logging (a slog JSON handler installed as the process default) and
// metrics (a prometheus.Registry wrapped with the router/quota/receipts
// counters). The metrics types are nil-safe dependencies injected into the
// packages that emit them; logging goes through the slog default.
package telemetry
