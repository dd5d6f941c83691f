package workflow_test

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"gistcast/internal/config"
	"gistcast/internal/pipeline"
	"gistcast/internal/queue"
	"gistcast/internal/services"
	"gistcast/internal/testsupport"
	"gistcast/internal/workflow"
)

type fakeRunner struct {
	mu     sync.Mutex
	result *pipeline.Result
	err    error
	stages []string
	block  chan struct{}
	runs   int
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request, onProgress pipeline.Progress) (*pipeline.Result, error) {
	f.mu.Lock()
	f.runs++
	block := f.block
	f.mu.Unlock()

	for _, stage := range f.stages {
		if onProgress != nil {
			onProgress(stage)
		}
	}
	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &pipeline.Result{
		Audio:      []byte("episode bytes"),
		Transcript: "<Person1>Hi.</Person1>",
		Sources:    []string{"TechBrief"},
	}, nil
}

func (f *fakeRunner) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

// panicRunner blows up on its first run and behaves afterwards.
type panicRunner struct {
	mu   sync.Mutex
	runs int
}

func (p *panicRunner) Run(ctx context.Context, req pipeline.Request, onProgress pipeline.Progress) (*pipeline.Result, error) {
	p.mu.Lock()
	p.runs++
	first := p.runs == 1
	p.mu.Unlock()
	if first {
		panic("pipeline bug")
	}
	return &pipeline.Result{Audio: []byte("episode bytes")}, nil
}

type fakeUploader struct {
	enabled bool
	url     string
	paths   []string
}

func (f *fakeUploader) Enabled() bool { return f.enabled }

func (f *fakeUploader) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	f.paths = append(f.paths, objectPath)
	return f.url, nil
}

func waitForStatus(t *testing.T, store *queue.Store, id int64, want queue.Status) *queue.Job {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID: %v", err)
		}
		if job != nil && job.Status == want {
			return job
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("job %d never reached status %s", id, want)
	return nil
}

func startPool(t *testing.T, cfg *config.Config, store *queue.Store, notifier *queue.Notifier, runner workflow.Runner, opts ...workflow.PoolOption) *workflow.Pool {
	t.Helper()
	pool := workflow.NewPool(cfg, store, notifier, runner, nil, opts...)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("pool.Start: %v", err)
	}
	t.Cleanup(pool.Stop)
	return pool
}

func TestPoolProcessesJobEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 1
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	notifier := queue.NewNotifier()

	runner := &fakeRunner{stages: []string{pipeline.StageOutline, pipeline.StageAudio}}
	startPool(t, cfg, store, notifier, runner)

	job := testsupport.EnqueueJob(t, store, "newsletter text")
	notifier.Notify()

	done := waitForStatus(t, store, job.ID, queue.StatusReady)
	if done.ArtifactBytes != int64(len("episode bytes")) {
		t.Fatalf("unexpected artifact bytes: %d", done.ArtifactBytes)
	}
	if !strings.HasSuffix(done.ArtifactURL, ".mp3") {
		t.Fatalf("unexpected artifact url: %q", done.ArtifactURL)
	}
	data, err := os.ReadFile(done.ArtifactURL)
	if err != nil {
		t.Fatalf("read episode file: %v", err)
	}
	if string(data) != "episode bytes" {
		t.Fatalf("unexpected episode contents: %q", data)
	}
	if done.Transcript != "<Person1>Hi.</Person1>" {
		t.Fatalf("unexpected transcript: %q", done.Transcript)
	}
	if done.SourcesJSON != `["TechBrief"]` {
		t.Fatalf("unexpected sources json: %q", done.SourcesJSON)
	}
	if done.ClaimedBy != "" {
		t.Fatalf("claim fields should clear on completion, got %q", done.ClaimedBy)
	}
}

func TestPoolUploadsWhenConfigured(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 1
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	notifier := queue.NewNotifier()

	uploader := &fakeUploader{enabled: true, url: "https://cdn.example/episodes/42.mp3"}
	startPool(t, cfg, store, notifier, &fakeRunner{}, workflow.WithUploader(uploader))

	job := testsupport.EnqueueJob(t, store, "doc")
	notifier.Notify()

	done := waitForStatus(t, store, job.ID, queue.StatusReady)
	if done.ArtifactURL != uploader.url {
		t.Fatalf("expected uploaded url, got %q", done.ArtifactURL)
	}
	if len(uploader.paths) != 1 || !strings.HasSuffix(uploader.paths[0], ".mp3") {
		t.Fatalf("unexpected upload paths: %v", uploader.paths)
	}
}

func TestPoolStoresSanitizedFailureMessage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 1
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	notifier := queue.NewNotifier()

	runner := &fakeRunner{
		err: services.Wrap(services.ErrConfiguration, "outline", "generate", "api key sk-secret-123 rejected", nil),
	}
	startPool(t, cfg, store, notifier, runner)

	job := testsupport.EnqueueJob(t, store, "doc")
	notifier.Notify()

	done := waitForStatus(t, store, job.ID, queue.StatusFailed)
	if done.ErrorMessage != "episode generation failed: service misconfigured" {
		t.Fatalf("unexpected stored message: %q", done.ErrorMessage)
	}
	if strings.Contains(done.ErrorMessage, "sk-secret") {
		t.Fatal("stored message leaked internal detail")
	}
}

func TestPoolWakesOnNotify(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 1
	// Polling alone would take an hour; only the notifier can wake the worker.
	cfg.Workflow.QueuePollInterval = 3600
	store := testsupport.MustOpenStore(t, cfg)
	notifier := queue.NewNotifier()

	startPool(t, cfg, store, notifier, &fakeRunner{})

	// Let the worker drain the empty queue and block on the wake channel.
	time.Sleep(100 * time.Millisecond)
	job := testsupport.EnqueueJob(t, store, "doc")
	notifier.Notify()

	waitForStatus(t, store, job.ID, queue.StatusReady)
}

func TestPoolStopLetsInflightJobFinish(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 1
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	notifier := queue.NewNotifier()

	block := make(chan struct{})
	runner := &fakeRunner{block: block}
	pool := workflow.NewPool(cfg, store, notifier, runner, nil)
	if err := pool.Start(context.Background()); err != nil {
		t.Fatalf("pool.Start: %v", err)
	}

	job := testsupport.EnqueueJob(t, store, "doc")
	notifier.Notify()
	waitForStatus(t, store, job.ID, queue.StatusProcessing)

	stopped := make(chan struct{})
	go func() {
		pool.Stop()
		close(stopped)
	}()

	// Shutdown is pending; releasing the runner must still let the job land
	// in ready, not be aborted mid-pipeline.
	time.Sleep(50 * time.Millisecond)
	close(block)
	<-stopped

	waitForStatus(t, store, job.ID, queue.StatusReady)
}

func TestPoolSurvivesRunnerPanic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 1
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	notifier := queue.NewNotifier()

	startPool(t, cfg, store, notifier, &panicRunner{})

	crashed := testsupport.EnqueueJob(t, store, "doc")
	notifier.Notify()

	failed := waitForStatus(t, store, crashed.ID, queue.StatusFailed)
	if failed.ErrorMessage != "episode generation failed" {
		t.Fatalf("unexpected stored message: %q", failed.ErrorMessage)
	}

	// The worker must still be alive to pick up the next job.
	next := testsupport.EnqueueJob(t, store, "doc")
	notifier.Notify()
	waitForStatus(t, store, next.ID, queue.StatusReady)
}

func TestPoolSingleClaimPerJobUnderManyWorkers(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.Workers = 6
	cfg.Workflow.QueuePollInterval = 1
	store := testsupport.MustOpenStore(t, cfg)
	notifier := queue.NewNotifier()

	runner := &fakeRunner{}
	startPool(t, cfg, store, notifier, runner)

	job := testsupport.EnqueueJob(t, store, "doc")
	notifier.Notify()

	waitForStatus(t, store, job.ID, queue.StatusReady)
	if got := runner.runCount(); got != 1 {
		t.Fatalf("job ran %d times, want exactly once", got)
	}
}
