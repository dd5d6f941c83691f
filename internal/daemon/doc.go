// Package daemon supervises the long-running gistcast process: it enforces
// single-instance execution with a file lock, owns the worker pool and stale
// monitor lifecycles, and serves the HTTP API that producers use to enqueue
// jobs and observe queue state.
package daemon
