package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gistcast/internal/config"
)

const userAgent = "Gistcast/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyEpisodeReady(ctx context.Context, jobID int64, subjectID string, sources []string) error
	NotifyEpisodeFailed(ctx context.Context, jobID int64, reason string) error
	NotifyQueueStarted(ctx context.Context, count int) error
	NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error
	NotifyStaleReclaimed(ctx context.Context, count int64) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:     topic,
		client:       &http.Client{Timeout: timeout},
		episodeReady: cfg.Notifications.EpisodeReady,
		errors:       cfg.Notifications.Errors,
		queue:        cfg.Notifications.Queue,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint     string
	client       *http.Client
	episodeReady bool
	errors       bool
	queue        bool
}

func (n *ntfyService) NotifyEpisodeReady(ctx context.Context, jobID int64, subjectID string, sources []string) error {
	if !n.episodeReady {
		return nil
	}
	message := fmt.Sprintf("🎧 Episode ready (job %d)", jobID)
	if subjectID = strings.TrimSpace(subjectID); subjectID != "" {
		message = fmt.Sprintf("🎧 Episode ready for %s (job %d)", subjectID, jobID)
	}
	if len(sources) > 0 {
		message = fmt.Sprintf("%s\nSources: %s", message, strings.Join(sources, ", "))
	}
	data := payload{
		title:    "Gistcast - Episode Ready",
		message:  message,
		tags:     []string{"gistcast", "episode", "ready"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyEpisodeFailed(ctx context.Context, jobID int64, reason string) error {
	if !n.errors {
		return nil
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown failure"
	}
	data := payload{
		title:    "Gistcast - Episode Failed",
		message:  fmt.Sprintf("❌ Job %d failed: %s", jobID, reason),
		tags:     []string{"gistcast", "episode", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueStarted(ctx context.Context, count int) error {
	if !n.queue {
		return nil
	}
	data := payload{
		title:   "Gistcast - Queue Started",
		message: fmt.Sprintf("Started processing queue with %d jobs", count),
		tags:    []string{"gistcast", "queue", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueCompleted(ctx context.Context, processed, failed int, duration time.Duration) error {
	if !n.queue {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var title, message string
	if failed == 0 {
		title = "Gistcast - Queue Complete"
		message = fmt.Sprintf("Queue drained: %d episodes in %s", processed, duration)
	} else {
		title = "Gistcast - Queue Complete (with errors)"
		message = fmt.Sprintf("Queue drained: %d succeeded, %d failed in %s", processed, failed, duration)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"gistcast", "queue", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStaleReclaimed(ctx context.Context, count int64) error {
	if !n.queue || count <= 0 {
		return nil
	}
	data := payload{
		title:   "Gistcast - Jobs Reclaimed",
		message: fmt.Sprintf("Requeued %d stale jobs from crashed or stalled workers", count),
		tags:    []string{"gistcast", "queue", "reclaimed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Gistcast - Error",
		message:  builder.String(),
		tags:     []string{"gistcast", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Gistcast - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"gistcast", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyEpisodeReady(context.Context, int64, string, []string) error   { return nil }
func (noopService) NotifyEpisodeFailed(context.Context, int64, string) error            { return nil }
func (noopService) NotifyQueueStarted(context.Context, int) error                       { return nil }
func (noopService) NotifyQueueCompleted(context.Context, int, int, time.Duration) error { return nil }
func (noopService) NotifyStaleReclaimed(context.Context, int64) error                   { return nil }
func (noopService) NotifyError(context.Context, error, string) error                    { return nil }
func (noopService) TestNotification(context.Context) error                              { return nil }
