// Package logging assembles the structured slog loggers used across
// gistcast components.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code can automatically tag
// log lines with job IDs, stages, and worker identifiers. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
