// Package tag provides standardized tag functions for structured logging.
//
// All tag keys use kebab-case naming convention for consistency.
package tag

import (
	"log/slog"
	"time"
)

// Error creates a tag for error objects.
func Error(err any) slog.Attr {
	return slog.Any("err", err)
}

// File creates a tag for file paths.
func File(path string) slog.Attr {
	return slog.String("file", path)
}

// RunID creates a tag for command run IDs.
func RunID(id string) slog.Attr {
	return slog.String("run-id", id)
}

// Interval creates a tag for sampling intervals.
func Interval(d time.Duration) slog.Attr {
	return slog.Duration("interval", d)
}

// Retention creates a tag for retention windows.
func Retention(d time.Duration) slog.Attr {
	return slog.Duration("retention", d)
}

// Count creates a tag for element counts.
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Lines creates a tag for line counts.
func Lines(n int) slog.Attr {
	return slog.Int("lines", n)
}

// Config creates a tag for config file paths.
func Config(path string) slog.Attr {
	return slog.String("config", path)
}
