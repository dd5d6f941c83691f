// Package services defines shared utilities consumed by the pipeline stages
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, workers, and
//     correlation identifiers for logging and tracing.
//   - Structured error markers plus the Wrap helper and Classify so every
//     failure resolves to a consistent retry disposition (retryable vs fatal).
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
