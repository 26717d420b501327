// Package config loads the process's environment-variable surface into a
// typed, validated Config value.
//
// # Loading
//
//	cfg, err := config.Load()
//	if err != nil {
//	    // *apperrors.ConfigError, exit 78
//	}
//
// # Singleton
//
// For command-line entrypoints, use the singleton pattern:
//
//	if err := config.Initialize(); err != nil {
//	    log.Fatal(err)
//	}
//	cfg := config.Get()
//
// Library callers should prefer config.Load and pass the result explicitly;
// the singleton exists for cmd/routepilot only.
//
// # Ambient flags
//
// Every boolean flag (ROUTEPILOT_MIRROR_JSON,
// ROUTEPILOT_REDACT, ROUTEPILOT_USAGE_PROBE, ROUTEPILOT_EARLY_STOP,
// ROUTEPILOT_DRY_RUN, CHAOS_PRIMARY_STALL, CHAOS_HTTP_5XX, ...) is read
// exactly once here and carried explicitly through the call graph — nothing
// downstream calls os.Getenv.
package config
