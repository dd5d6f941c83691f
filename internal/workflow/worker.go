package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"gistcast/internal/logging"
	"gistcast/internal/pipeline"
	"gistcast/internal/queue"
	"gistcast/internal/services"
	"gistcast/internal/textutil"
)

func (p *Pool) runWorker(ctx context.Context, workerID string) {
	defer p.wg.Done()

	logger := p.logger.With(slog.String(logging.FieldWorker, workerID))
	wake, unsubscribe := p.notifier.Subscribe()
	defer unsubscribe()

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := p.store.Claim(ctx, workerID)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			logger.Error("claim failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check queue database access"))
			p.waitOrShutdown(ctx, p.errorRetryInterval, nil)
			continue
		}
		if job == nil {
			p.waitOrShutdown(ctx, p.pollInterval, wake)
			continue
		}

		p.processJob(ctx, logger, workerID, job)
	}
}

// waitOrShutdown blocks until the timeout elapses, a wake signal arrives, or
// the pool shuts down.
func (p *Pool) waitOrShutdown(ctx context.Context, timeout time.Duration, wake <-chan struct{}) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	if wake == nil {
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		return
	}
	select {
	case <-ctx.Done():
	case <-wake:
	case <-timer.C:
	}
}

// processJob runs one claimed job to completion. The job context is detached
// from pool cancellation so shutdown lets in-flight pipelines finish instead
// of aborting them mid-stage.
func (p *Pool) processJob(ctx context.Context, logger *slog.Logger, workerID string, job *queue.Job) {
	jobCtx := services.WithWorker(services.WithJobID(context.WithoutCancel(ctx), job.ID), workerID)
	jobLogger := logger.With(slog.Int64(logging.FieldJobID, job.ID))

	if p.batch.jobStarted() {
		if stats, err := p.store.Stats(jobCtx); err == nil {
			_ = p.events.NotifyQueueStarted(jobCtx, stats[queue.StatusQueued]+1)
		}
	}

	jobLogger.Info("job claimed", slog.String("subject", job.SubjectID))
	start := time.Now()

	request := pipeline.Request{
		SubjectID:     job.SubjectID,
		Document:      job.Document,
		TargetMinutes: job.TargetMinutes,
	}
	result, err := p.runPipeline(jobCtx, request, func(stage string) {
		if progressErr := p.store.SetProgressStage(jobCtx, job.ID, stage); progressErr != nil {
			jobLogger.Warn("progress write failed", slog.String(logging.FieldStage, stage), logging.Error(progressErr))
		} else {
			jobLogger.Info("stage started", slog.String(logging.FieldStage, stage))
		}
	})
	if err != nil {
		p.finishFailed(jobCtx, jobLogger, job, err)
		return
	}

	queueResult, err := p.publishResult(jobCtx, jobLogger, job, result)
	if err != nil {
		p.finishFailed(jobCtx, jobLogger, job, err)
		return
	}

	if err := p.store.Complete(jobCtx, job.ID, queueResult); err != nil {
		jobLogger.Error("terminal write failed", logging.Error(err))
		p.finishFailed(jobCtx, jobLogger, job, services.Wrap(nil, "complete", "store", "terminal write failed", err))
		return
	}

	jobLogger.Info("job completed",
		slog.Duration("elapsed", time.Since(start).Round(time.Second)),
		slog.Int64("artifact_bytes", queueResult.ArtifactBytes))
	_ = p.events.NotifyEpisodeReady(jobCtx, job.ID, job.SubjectID, result.Sources)
	p.finishBatch(jobCtx, true)
}

// runPipeline isolates the runner call so a panic inside the pipeline fails
// the job instead of taking down the worker goroutine and the daemon with it.
func (p *Pool) runPipeline(ctx context.Context, req pipeline.Request, onProgress pipeline.Progress) (result *pipeline.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = services.Wrap(nil, "pipeline", "run", "pipeline panicked",
				fmt.Errorf("panic: %v\n%s", r, debug.Stack()))
		}
	}()
	return p.runner.Run(ctx, req, onProgress)
}

// publishResult writes the episode to the output directory and, when an
// uploader is configured, publishes it to the artifact store.
func (p *Pool) publishResult(ctx context.Context, logger *slog.Logger, job *queue.Job, result *pipeline.Result) (queue.Result, error) {
	var empty queue.Result

	filename := fmt.Sprintf("episode-%d-%s-%s.mp3",
		job.ID, textutil.SanitizeToken(job.SubjectID), time.Now().UTC().Format("20060102-150405"))
	localPath := filepath.Join(p.cfg.Paths.OutputDir, filename)
	if err := os.WriteFile(localPath, result.Audio, 0o644); err != nil {
		return empty, services.Wrap(nil, "publish", "write", "write episode file", err)
	}
	logger.Info("episode written", slog.String("path", localPath))

	artifactURL := localPath
	if p.uploader != nil && p.uploader.Enabled() {
		url, err := p.uploader.Upload(ctx, filename, result.Audio, "audio/mpeg")
		if err != nil {
			return empty, err
		}
		artifactURL = url
		logger.Info("episode uploaded", slog.String("url", url))
	}

	sourcesJSON := ""
	if len(result.Sources) > 0 {
		encoded, err := json.Marshal(result.Sources)
		if err != nil {
			return empty, services.Wrap(services.ErrValidation, "publish", "encode", "encode source labels", err)
		}
		sourcesJSON = string(encoded)
	}

	return queue.Result{
		ArtifactURL:   artifactURL,
		ArtifactBytes: int64(len(result.Audio)),
		Transcript:    result.Transcript,
		SourcesJSON:   sourcesJSON,
	}, nil
}

func (p *Pool) finishFailed(ctx context.Context, logger *slog.Logger, job *queue.Job, err error) {
	message := sanitizeFailure(err)
	logger.Error("job failed",
		logging.Error(err),
		slog.String("stored_message", message),
		slog.String("classification", services.Classify(err).String()))

	if failErr := p.store.Fail(ctx, job.ID, message); failErr != nil {
		logger.Error("failure write failed", logging.Error(failErr))
	}
	_ = p.events.NotifyEpisodeFailed(ctx, job.ID, message)
	p.finishBatch(ctx, false)
}

func (p *Pool) finishBatch(ctx context.Context, success bool) {
	queueEmpty := true
	if stats, err := p.store.Stats(ctx); err == nil {
		queueEmpty = stats[queue.StatusQueued] == 0
	}
	if processed, failed, elapsed, drained := p.batch.jobFinished(success, queueEmpty); drained {
		_ = p.events.NotifyQueueCompleted(ctx, processed, failed, elapsed)
	}
}

// sanitizeFailure maps an internal error to the generic message stored on the
// job record. Diagnostic detail stays in the logs.
func sanitizeFailure(err error) string {
	switch {
	case err == nil:
		return "episode generation failed"
	case errors.Is(err, pipeline.ErrEmptyInput):
		return "input document is empty"
	case errors.Is(err, pipeline.ErrNoDialogue):
		return "generated transcript contained no dialogue"
	case errors.Is(err, services.ErrConfiguration):
		return "episode generation failed: service misconfigured"
	case errors.Is(err, services.ErrValidation):
		return "episode generation failed: provider rejected the request"
	case services.IsRetryable(err):
		return "episode generation failed after repeated attempts"
	default:
		return "episode generation failed"
	}
}
