// Package logging builds the structured loggers used by the relay binaries.
package logging

import (
	"log/slog"

	"github.com/mama165/sdk-go/logs"
)

// New returns a text logger for the given level name (DEBUG, INFO, WARN,
// ERROR). Unknown names fall back to INFO.
func New(level string) *slog.Logger {
	return logs.GetLoggerFromString(level)
}

// OrDefault returns log, or the process default logger when log is nil.
func OrDefault(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}
