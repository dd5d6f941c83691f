package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/gofrs/flock"

	"gistcast/internal/config"
	"gistcast/internal/logging"
	"gistcast/internal/notifications"
	"gistcast/internal/pipeline"
	"gistcast/internal/queue"
	"gistcast/internal/services/artifacts"
	"gistcast/internal/services/speech"
	"gistcast/internal/services/textgen"
	"gistcast/internal/workflow"
)

// Daemon coordinates the background processing services and enforces
// single-instance execution.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *queue.Store
	notifier *queue.Notifier
	pool     *workflow.Pool
	monitor  *workflow.StaleMonitor
	events   notifications.Service
	api      *apiServer

	lockPath string
	lock     *flock.Flock

	running   atomic.Bool
	cancel    context.CancelFunc
	monitorWG sync.WaitGroup
}

// Status reports daemon runtime information.
type Status struct {
	Running      bool                `json:"running"`
	Workers      int                 `json:"workers"`
	QueueDBPath  string              `json:"queue_db_path"`
	LockFilePath string              `json:"lock_file_path"`
	Queue        queue.HealthSummary `json:"queue"`
}

// New constructs a daemon with the supplied components. Components left nil
// are built from the configuration.
func New(cfg *config.Config, store *queue.Store, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || store == nil {
		return nil, errors.New("daemon requires config and store")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := filepath.Join(cfg.Paths.LogDir, "gistcastd.lock")
	d := &Daemon{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "daemon"),
		store:    store,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.notifier == nil {
		d.notifier = queue.NewNotifier()
	}
	if d.events == nil {
		d.events = notifications.NewService(cfg)
	}
	if d.pool == nil {
		runner := pipeline.NewRunner(cfg,
			textgen.NewClient(textgen.Config{
				APIKey:            cfg.TextGen.APIKey,
				BaseURL:           cfg.TextGen.BaseURL,
				Model:             cfg.TextGen.Model,
				MaxRetries:        cfg.TextGen.MaxRetries,
				RetryDelaySeconds: cfg.TextGen.RetryDelaySeconds,
				TimeoutSeconds:    cfg.TextGen.TimeoutSeconds,
			}),
			speech.NewClient(speech.Config{
				APIKey:             cfg.Speech.APIKey,
				BaseURL:            cfg.Speech.BaseURL,
				Model:              cfg.Speech.Model,
				HostVoice:          cfg.Speech.HostVoice,
				GuestVoice:         cfg.Speech.GuestVoice,
				Attempts:           cfg.Speech.Attempts,
				RetryDelaySeconds:  cfg.Speech.RetryDelaySeconds,
				HardTimeoutSeconds: cfg.Speech.HardTimeoutSeconds,
			}),
			logger,
		)
		uploader := artifacts.NewClient(artifacts.Config{
			BaseURL:    cfg.Artifacts.BaseURL,
			ServiceKey: cfg.Artifacts.ServiceKey,
			Bucket:     cfg.Artifacts.Bucket,
		})
		d.pool = workflow.NewPool(cfg, store, d.notifier, runner, logger,
			workflow.WithUploader(uploader),
			workflow.WithNotifications(d.events))
	}
	if d.monitor == nil {
		d.monitor = workflow.NewStaleMonitor(cfg, store, d.notifier, d.events, logger)
	}

	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Option overrides daemon components, primarily for tests.
type Option func(*Daemon)

// WithPool supplies a prebuilt worker pool.
func WithPool(pool *workflow.Pool) Option {
	return func(d *Daemon) { d.pool = pool }
}

// WithStaleMonitor supplies a prebuilt stale monitor.
func WithStaleMonitor(monitor *workflow.StaleMonitor) Option {
	return func(d *Daemon) { d.monitor = monitor }
}

// WithNotifier supplies a shared queue notifier.
func WithNotifier(notifier *queue.Notifier) Option {
	return func(d *Daemon) { d.notifier = notifier }
}

// WithNotifications supplies the push notification service.
func WithNotifications(events notifications.Service) Option {
	return func(d *Daemon) { d.events = events }
}

// Notifier exposes the queue wake channel hub, shared with producers.
func (d *Daemon) Notifier() *queue.Notifier {
	return d.notifier
}

// Start acquires the instance lock and launches workers, monitor, and API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another gistcast daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	if err := d.pool.Start(runCtx); err != nil {
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start worker pool: %w", err)
	}

	d.monitorWG.Add(1)
	go func() {
		defer d.monitorWG.Done()
		d.monitor.Run(runCtx)
	}()

	if err := d.api.start(runCtx); err != nil {
		d.pool.Stop()
		cancel()
		d.cancel = nil
		_ = d.lock.Unlock()
		return fmt.Errorf("start api server: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("daemon started",
		slog.String("lock", d.lockPath),
		slog.String("db", d.store.Path()))
	return nil
}

// Stop shuts down background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.pool.Stop()
	d.monitorWG.Wait()
	d.api.stop()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops the daemon and releases the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// APIAddr returns the bound API address, empty until Start succeeds.
func (d *Daemon) APIAddr() string {
	return d.api.addr()
}

// Enqueue inserts a job and wakes idle workers.
func (d *Daemon) Enqueue(ctx context.Context, subjectID, document string, params queue.Params) (*queue.Job, error) {
	job, err := d.store.Enqueue(ctx, subjectID, document, params)
	if err != nil {
		return nil, err
	}
	d.notifier.Notify()
	return job, nil
}

// ListQueue returns jobs filtered by optional statuses.
func (d *Daemon) ListQueue(ctx context.Context, statuses ...queue.Status) ([]*queue.Job, error) {
	return d.store.List(ctx, statuses...)
}

// Status reports the current daemon state.
func (d *Daemon) Status(ctx context.Context) Status {
	health, err := d.store.Health(ctx)
	if err != nil {
		d.logger.Warn("queue health read failed", logging.Error(err))
	}
	return Status{
		Running:      d.running.Load(),
		Workers:      d.cfg.Workflow.Workers,
		QueueDBPath:  d.store.Path(),
		LockFilePath: d.lockPath,
		Queue:        health,
	}
}
