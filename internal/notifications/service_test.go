package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gistcast/internal/config"
	"gistcast/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyEpisodeReady(context.Background(), 1, "alice", nil); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func newRecordingServer(t *testing.T) (*httptest.Server, *[]recordedNotification) {
	t.Helper()
	var records []recordedNotification
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		records = append(records, recordedNotification{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			message:  string(body),
		})
		w.WriteHeader(http.StatusOK)
	}))
	return server, &records
}

type recordedNotification struct {
	title    string
	tags     string
	priority string
	message  string
}

func TestNtfyServiceFormatsEpisodeReady(t *testing.T) {
	server, records := newRecordingServer(t)
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	err := svc.NotifyEpisodeReady(context.Background(), 42, "alice@example.com", []string{"TechBrief", "ChipWeekly"})
	if err != nil {
		t.Fatalf("NotifyEpisodeReady returned error: %v", err)
	}
	if len(*records) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(*records))
	}
	got := (*records)[0]
	if got.title != "Gistcast - Episode Ready" {
		t.Fatalf("unexpected title %q", got.title)
	}
	if !strings.Contains(got.message, "job 42") || !strings.Contains(got.message, "TechBrief, ChipWeekly") {
		t.Fatalf("unexpected message %q", got.message)
	}
	if got.priority != "high" {
		t.Fatalf("unexpected priority %q", got.priority)
	}
}

func TestNtfyServiceHonorsEventFlags(t *testing.T) {
	server, records := newRecordingServer(t)
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.EpisodeReady = false
	cfg.Notifications.Queue = false
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyEpisodeReady(context.Background(), 1, "", nil); err != nil {
		t.Fatalf("suppressed event returned error: %v", err)
	}
	if err := svc.NotifyQueueStarted(context.Background(), 3); err != nil {
		t.Fatalf("suppressed event returned error: %v", err)
	}
	if err := svc.NotifyError(context.Background(), errors.New("boom"), "worker"); err != nil {
		t.Fatalf("NotifyError returned error: %v", err)
	}
	if len(*records) != 1 {
		t.Fatalf("expected only the error notification, got %d", len(*records))
	}
	if (*records)[0].title != "Gistcast - Error" {
		t.Fatalf("unexpected title %q", (*records)[0].title)
	}
}

func TestNtfyServiceSkipsZeroReclaims(t *testing.T) {
	server, records := newRecordingServer(t)
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	if err := svc.NotifyStaleReclaimed(context.Background(), 0); err != nil {
		t.Fatalf("NotifyStaleReclaimed returned error: %v", err)
	}
	if len(*records) != 0 {
		t.Fatalf("expected no notification for zero reclaims, got %d", len(*records))
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic unavailable", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	svc := notifications.NewService(&cfg)

	err := svc.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error from failing server")
	}
	if !strings.Contains(err.Error(), "503") {
		t.Fatalf("unexpected error: %v", err)
	}
}
