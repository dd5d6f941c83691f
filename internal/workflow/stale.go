package workflow

import (
	"context"
	"log/slog"
	"time"

	"gistcast/internal/config"
	"gistcast/internal/logging"
	"gistcast/internal/notifications"
	"gistcast/internal/queue"
)

// StaleMonitor requeues jobs stuck in processing past the configured timeout.
// It is the sole crash-recovery mechanism: ownership is re-derived purely
// from elapsed time since claim, no worker heartbeat involved.
type StaleMonitor struct {
	store    *queue.Store
	notifier *queue.Notifier
	events   notifications.Service
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
}

// NewStaleMonitor constructs a monitor from the workflow configuration.
func NewStaleMonitor(cfg *config.Config, store *queue.Store, notifier *queue.Notifier, events notifications.Service, logger *slog.Logger) *StaleMonitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if events == nil {
		events = notifications.NewService(cfg)
	}
	interval := time.Duration(cfg.Workflow.StaleCheckInterval) * time.Second
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := time.Duration(cfg.Workflow.StaleTimeoutMinutes) * time.Minute
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &StaleMonitor{
		store:    store,
		notifier: notifier,
		events:   events,
		logger:   logging.WithComponent(logger, "stale-monitor"),
		interval: interval,
		timeout:  timeout,
	}
}

// Run sweeps immediately, then on every interval until the context ends.
func (m *StaleMonitor) Run(ctx context.Context) {
	m.sweep(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// Sweep performs a single stale-job pass and returns the number requeued.
func (m *StaleMonitor) Sweep(ctx context.Context) int64 {
	return m.sweep(ctx)
}

func (m *StaleMonitor) sweep(ctx context.Context) int64 {
	cutoff := time.Now().UTC().Add(-m.timeout)
	count, err := m.store.ResetStale(ctx, cutoff)
	if err != nil {
		m.logger.Error("stale sweep failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check queue database access"))
		return 0
	}
	if count > 0 {
		m.logger.Warn("requeued stale jobs",
			slog.Int64("count", count),
			slog.Duration("timeout", m.timeout))
		if m.notifier != nil {
			// Requeued jobs should not wait for the next poll tick.
			m.notifier.Notify()
		}
		_ = m.events.NotifyStaleReclaimed(ctx, count)
	}
	return count
}
