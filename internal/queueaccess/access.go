// Package queueaccess gives the CLI a single entry point to the job queue.
// Reads and maintenance operate on the SQLite store directly; enqueues
// prefer the daemon API so idle workers wake without waiting for a poll.
package queueaccess

import (
	"context"
	"fmt"

	"gistcast/internal/config"
	"gistcast/internal/daemonctl"
	"gistcast/internal/queue"
)

// Access bundles direct store access with an optional daemon client.
type Access struct {
	store  *queue.Store
	client *daemonctl.Client
}

// Open connects to the queue database and probes for a running daemon.
func Open(cfg *config.Config) (*Access, error) {
	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open queue: %w", err)
	}
	return &Access{
		store:  store,
		client: daemonctl.Probe(cfg),
	}, nil
}

// Close releases the underlying store.
func (a *Access) Close() error {
	return a.store.Close()
}

// DaemonRunning reports whether the daemon answered the startup probe.
func (a *Access) DaemonRunning() bool {
	return a.client != nil
}

// Enqueue adds a job, going through the daemon when it is available.
func (a *Access) Enqueue(ctx context.Context, subjectID, document string, params queue.Params) (int64, error) {
	if a.client != nil {
		job, err := a.client.Enqueue(ctx, subjectID, document, params.TargetLengthMinutes)
		if err != nil {
			return 0, err
		}
		return job.ID, nil
	}
	job, err := a.store.Enqueue(ctx, subjectID, document, params)
	if err != nil {
		return 0, err
	}
	return job.ID, nil
}

// List returns jobs filtered by optional statuses.
func (a *Access) List(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error) {
	return a.store.List(ctx, statuses...)
}

// Describe fetches a single job, nil when absent.
func (a *Access) Describe(ctx context.Context, id int64) (*queue.Job, error) {
	return a.store.GetByID(ctx, id)
}

// Health returns aggregated queue counts.
func (a *Access) Health(ctx context.Context) (queue.HealthSummary, error) {
	return a.store.Health(ctx)
}

// Retry requeues failed jobs. With no IDs, every failed job is retried.
func (a *Access) Retry(ctx context.Context, ids ...int64) (int64, error) {
	return a.store.RetryFailed(ctx, ids...)
}

// Remove deletes a single job.
func (a *Access) Remove(ctx context.Context, id int64) (bool, error) {
	return a.store.Remove(ctx, id)
}

// Clear deletes all jobs.
func (a *Access) Clear(ctx context.Context) (int64, error) {
	return a.store.Clear(ctx)
}

// ClearReady deletes finished jobs.
func (a *Access) ClearReady(ctx context.Context) (int64, error) {
	return a.store.ClearReady(ctx)
}

// ClearFailed deletes failed jobs.
func (a *Access) ClearFailed(ctx context.Context) (int64, error) {
	return a.store.ClearFailed(ctx)
}
