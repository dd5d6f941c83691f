package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"gistcast/internal/config"
	"gistcast/internal/logging"
	"gistcast/internal/notifications"
	"gistcast/internal/pipeline"
	"gistcast/internal/queue"
)

// Runner drives one job's pipeline to completion.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request, onProgress pipeline.Progress) (*pipeline.Result, error)
}

// Uploader publishes finished episode bytes and returns their public URL.
type Uploader interface {
	Enabled() bool
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error)
}

// Pool coordinates a fixed set of workers over the shared job queue.
type Pool struct {
	cfg      *config.Config
	store    *queue.Store
	notifier *queue.Notifier
	runner   Runner
	uploader Uploader
	events   notifications.Service
	logger   *slog.Logger

	workers            int
	pollInterval       time.Duration
	errorRetryInterval time.Duration
	joinTimeout        time.Duration

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	batch batchTracker
}

// PoolOption configures optional Pool behavior.
type PoolOption func(*Pool)

// WithUploader attaches an artifact uploader. Without one, episodes stay on
// the local filesystem only.
func WithUploader(uploader Uploader) PoolOption {
	return func(p *Pool) {
		p.uploader = uploader
	}
}

// WithNotifications overrides the notification service (used in tests).
func WithNotifications(events notifications.Service) PoolOption {
	return func(p *Pool) {
		if events != nil {
			p.events = events
		}
	}
}

// NewPool constructs a worker pool over the supplied store and notifier.
func NewPool(cfg *config.Config, store *queue.Store, notifier *queue.Notifier, runner Runner, logger *slog.Logger, opts ...PoolOption) *Pool {
	if logger == nil {
		logger = logging.NewNop()
	}
	workers := cfg.Workflow.Workers
	if workers <= 0 {
		workers = 1
	}
	pool := &Pool{
		cfg:                cfg,
		store:              store,
		notifier:           notifier,
		runner:             runner,
		events:             notifications.NewService(cfg),
		logger:             logging.WithComponent(logger, "workflow"),
		workers:            workers,
		pollInterval:       time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errorRetryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		joinTimeout:        time.Duration(cfg.Workflow.ShutdownJoinTimeout) * time.Second,
	}
	for _, opt := range opts {
		opt(pool)
	}
	return pool
}

// Start launches the workers. It returns immediately; processing continues
// until Stop or context cancellation.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("worker pool already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true

	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "gistcast"
	}

	p.wg.Add(p.workers)
	for i := 0; i < p.workers; i++ {
		workerID := fmt.Sprintf("%s-worker-%d", host, i+1)
		go p.runWorker(runCtx, workerID)
	}
	p.logger.Info("worker pool started", slog.Int("workers", p.workers))
	return nil
}

// Stop signals all workers and waits for them up to the join timeout.
// Workers still busy past the timeout are abandoned; the stale monitor will
// requeue whatever jobs they held.
func (p *Pool) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool stopped")
	case <-time.After(p.joinTimeout):
		p.logger.Warn("join timeout elapsed, abandoning busy workers",
			slog.Duration("timeout", p.joinTimeout))
	}
}

// Running reports whether the pool has been started and not yet stopped.
func (p *Pool) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// batchTracker aggregates per-batch counters so queue start/complete events
// fire once per busy period rather than once per job.
type batchTracker struct {
	mu        sync.Mutex
	active    int
	processed int
	failed    int
	start     time.Time
}

// jobStarted reports whether this claim opened a new batch.
func (b *batchTracker) jobStarted() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active++
	if b.active == 1 && b.processed == 0 && b.failed == 0 {
		b.start = time.Now()
		return true
	}
	return false
}

// jobFinished records an outcome; drained reports whether the batch closed.
func (b *batchTracker) jobFinished(success, queueEmpty bool) (processed, failed int, elapsed time.Duration, drained bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active--
	if success {
		b.processed++
	} else {
		b.failed++
	}
	if b.active == 0 && queueEmpty {
		processed, failed, elapsed = b.processed, b.failed, time.Since(b.start)
		b.processed, b.failed = 0, 0
		return processed, failed, elapsed, true
	}
	return 0, 0, 0, false
}
