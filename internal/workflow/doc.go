// Package workflow runs the background processing loops: a fixed pool of
// workers that claim queued jobs and drive the episode pipeline, and a stale
// monitor that requeues jobs orphaned by crashed or abandoned workers.
//
// Workers wake on queue notifications and fall back to polling. Shutdown is
// cooperative: in-flight jobs run to completion, bounded by a join timeout;
// workers still busy past the timeout are abandoned and their jobs recovered
// later by the stale monitor.
package workflow
