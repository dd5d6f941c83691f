package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gistcast/internal/audio"
	"gistcast/internal/config"
	"gistcast/internal/logging"
	"gistcast/internal/services"
	"gistcast/internal/services/textgen"
	"gistcast/internal/transcript"
)

// Progress stage labels reported while a job runs.
const (
	StageOutline    = "outline"
	StageFirstHalf  = "first_half"
	StageSecondHalf = "second_half"
	StageAudio      = "audio"
)

var (
	// ErrEmptyInput marks a job whose document is blank.
	ErrEmptyInput = errors.New("empty input document")
	// ErrNoDialogue marks a transcript that normalized to zero turns.
	ErrNoDialogue = errors.New("transcript produced no dialogue turns")
)

// TextGenerator produces the outline and dialogue halves.
type TextGenerator interface {
	GenerateOutline(ctx context.Context, document string) (textgen.Outline, error)
	GenerateSection(ctx context.Context, req textgen.SectionRequest) (string, error)
}

// Synthesizer converts a dialogue prompt into raw PCM.
type Synthesizer interface {
	Synthesize(ctx context.Context, prompt string) ([]byte, error)
}

// Encoder converts stitched PCM into the final artifact bytes.
type Encoder func(ctx context.Context, pcm []byte, spec audio.Spec) ([]byte, error)

// Progress receives stage labels as the run advances. Calls are best effort:
// a panicking or failing callback never aborts the run.
type Progress func(stage string)

// Request describes one episode generation job.
type Request struct {
	// SubjectID names the requesting subject; it is filtered out of the
	// outline's source credits so a subject never thanks itself.
	SubjectID     string
	Document      string
	TargetMinutes int
}

// Result is the output of one successful run.
type Result struct {
	Audio      []byte
	Transcript string
	Sources    []string
}

// Runner drives the ordered stage sequence for one job at a time.
type Runner struct {
	cfg     *config.Config
	textGen TextGenerator
	synth   Synthesizer
	encode  Encoder
	logger  *slog.Logger
	sleeper func(time.Duration)
}

// Option customizes the runner.
type Option func(*Runner)

// WithEncoder overrides the ffmpeg-backed MP3 encoder (useful for tests).
func WithEncoder(encode Encoder) Option {
	return func(r *Runner) {
		if encode != nil {
			r.encode = encode
		}
	}
}

// WithSleeper overrides how pacing and retry sleeps are performed.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(r *Runner) {
		r.sleeper = sleeper
	}
}

// NewRunner constructs a pipeline runner.
func NewRunner(cfg *config.Config, textGen TextGenerator, synth Synthesizer, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	runner := &Runner{
		cfg:     cfg,
		textGen: textGen,
		synth:   synth,
		logger:  logging.WithComponent(logger, "pipeline"),
	}
	runner.encode = func(ctx context.Context, pcm []byte, spec audio.Spec) ([]byte, error) {
		return audio.EncodeMP3(ctx, pcm, spec, cfg.FFmpegBinary())
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Run executes the full pipeline for one document. Retryable failures trigger
// a bounded number of full re-runs; fatal failures propagate immediately.
func (r *Runner) Run(ctx context.Context, req Request, onProgress Progress) (*Result, error) {
	if strings.TrimSpace(req.Document) == "" {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "run", "", ErrEmptyInput)
	}
	if req.TargetMinutes <= 0 {
		req.TargetMinutes = r.cfg.Episode.TargetLengthMinutes
	}

	attempts := r.cfg.Episode.PipelineAttempts
	if attempts <= 0 {
		attempts = 1
	}
	retryDelay := time.Duration(r.cfg.Episode.PipelineRetryDelaySeconds) * time.Second

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := r.runOnce(ctx, req, onProgress)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if services.Classify(err) != services.KindRetryable {
			return nil, err
		}
		if attempt == attempts || ctx.Err() != nil {
			break
		}
		r.logger.Warn("pipeline attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("attempts", attempts),
			slog.Duration("delay", retryDelay),
			logging.Error(err))
		if err := r.sleep(ctx, retryDelay); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("pipeline failed after %d attempts: %w", attempts, lastErr)
}

func (r *Runner) runOnce(ctx context.Context, req Request, onProgress Progress) (*Result, error) {
	wordsPerMinute := r.cfg.Episode.WordsPerMinute
	if wordsPerMinute <= 0 {
		wordsPerMinute = 170
	}
	wordsPerSection := req.TargetMinutes * wordsPerMinute / 2

	report(onProgress, StageOutline)
	r.logger.Info("generating outline", logging.Args(logging.ContextFields(ctx)...)...)
	outline, err := r.textGen.GenerateOutline(ctx, req.Document)
	if err != nil {
		return nil, err
	}
	outline = outline.WithoutSource(req.SubjectID)
	r.logger.Info("outline generated",
		slog.Int("segments", len(outline.Segments)),
		slog.Int("estimated_turns", outline.EstimatedTurnTotal()))

	report(onProgress, StageFirstHalf)
	first, err := r.textGen.GenerateSection(ctx, textgen.SectionRequest{
		Outline:    outline,
		Document:   req.Document,
		Half:       textgen.FirstHalf,
		WordTarget: wordsPerSection,
	})
	if err != nil {
		return nil, err
	}

	report(onProgress, StageSecondHalf)
	second, err := r.textGen.GenerateSection(ctx, textgen.SectionRequest{
		Outline:       outline,
		Document:      req.Document,
		Half:          textgen.SecondHalf,
		PreviousTurns: first,
		WordTarget:    wordsPerSection,
	})
	if err != nil {
		return nil, err
	}

	stitched := strings.TrimRight(first, " \t\r\n") + "\n\n" + strings.TrimLeft(second, " \t\r\n")
	if tail := strings.TrimRight(stitched, " \t\r\n"); !strings.HasSuffix(tail, "</Person1>") && !strings.HasSuffix(tail, "</Person2>") {
		r.logger.Warn("transcript does not end on a closing turn tag, final turn may be truncated")
	}
	cleaned := transcript.Normalize(stitched)
	turns := transcript.ParseTurns(cleaned)
	if len(turns) == 0 {
		return nil, services.Wrap(services.ErrValidation, "pipeline", "normalize", "", ErrNoDialogue)
	}
	r.logger.Info("transcript ready",
		slog.Int("turns", len(turns)),
		slog.Int("words", transcript.WordCount(turns)))

	report(onProgress, StageAudio)
	segments, err := r.synthesizeChunks(ctx, turns)
	if err != nil {
		return nil, err
	}

	spec := audio.DefaultSpec()
	gap := time.Duration(r.cfg.Episode.GapMilliseconds) * time.Millisecond
	pcm := audio.Stitch(segments, gap, spec)

	episode, err := r.encode(ctx, pcm, spec)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "pipeline", "encode", "mp3 encoding failed", err)
	}
	r.logger.Info("episode encoded",
		slog.Int("bytes", len(episode)),
		slog.Duration("duration", audio.PCMDuration(pcm, spec)))

	return &Result{
		Audio:      episode,
		Transcript: cleaned,
		Sources:    outline.SourceNames(),
	}, nil
}

func (r *Runner) synthesizeChunks(ctx context.Context, turns []transcript.Turn) ([][]byte, error) {
	chunks := transcript.PlanChunks(turns, r.cfg.Episode.ChunkThresholdTurns, r.cfg.Episode.ChunkTargetTurns)
	pacing := time.Duration(r.cfg.Episode.InterChunkDelaySeconds) * time.Second

	segments := make([][]byte, 0, len(chunks))
	for i, chunk := range chunks {
		r.logger.Info("synthesizing chunk",
			slog.Int("chunk", i+1),
			slog.Int("chunks", len(chunks)),
			slog.Int("turns", len(chunk)))
		pcm, err := r.synth.Synthesize(ctx, transcript.RenderPrompt(chunk))
		if err != nil {
			return nil, err
		}
		segments = append(segments, pcm)
		if i < len(chunks)-1 {
			// Pacing between provider calls, not a correctness requirement.
			if err := r.sleep(ctx, pacing); err != nil {
				return nil, err
			}
		}
	}
	return segments, nil
}

// report invokes the progress callback inside its own error boundary so a
// misbehaving consumer cannot abort the run.
func report(onProgress Progress, stage string) {
	if onProgress == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	onProgress(stage)
}

func (r *Runner) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if r.sleeper != nil {
		r.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
