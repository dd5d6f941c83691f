package logging_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gistcast/internal/logging"
	"gistcast/internal/services"
)

func TestNewWritesConsoleLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger = logging.WithComponent(logger, "queue")
	logger.Info("claimed job", logging.Int64(logging.FieldJobID, 7), logging.String("status", "processing"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO queue: claimed job") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "job_id=7") || !strings.Contains(line, "status=processing") {
		t.Fatalf("expected structured fields in %q", line)
	}
}

func TestNewWritesJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	logger, err := logging.New(logging.Options{Level: "info", Format: "json", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Warn("synthesis retry", logging.Int("attempt", 2))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var record map[string]any
	if err := json.Unmarshal(data, &record); err != nil {
		t.Fatalf("decode json line %q: %v", data, err)
	}
	if record["msg"] != "synthesis retry" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["level"] != "warn" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
	if record["attempt"] != float64(2) {
		t.Fatalf("unexpected attempt: %v", record["attempt"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatal("expected ts field")
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLevelFiltering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	logger.Error("visible")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if strings.Contains(string(data), "hidden") {
		t.Fatalf("info line should be filtered: %q", data)
	}
	if !strings.Contains(string(data), "visible") {
		t.Fatalf("error line missing: %q", data)
	}
}

func TestWithContextAddsJobFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.log")

	logger, err := logging.New(logging.Options{Level: "debug", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := services.WithJobID(context.Background(), 11)
	ctx = services.WithStage(ctx, "stitch")
	ctx = services.WithWorker(ctx, "worker-1")

	logging.WithContext(ctx, logger).Info("stage start")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	for _, want := range []string{"job_id=11", "stage=stitch", "worker=worker-1"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %q in %q", want, line)
		}
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("should not panic", logging.Error(nil))
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should report disabled")
	}
}
