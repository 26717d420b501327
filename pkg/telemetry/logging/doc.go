// Package logging builds the process-wide slog.Logger: a JSON handler
// over os.Stdout keyed off a configured level, installed as the slog
// default so every package in the call graph can log through the
// stdlib slog.Info/Warn/Error functions without threading a *Logger
// value everywhere.
package logging
