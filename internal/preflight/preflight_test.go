package preflight_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"gistcast/internal/config"
	"gistcast/internal/preflight"
	"gistcast/internal/testsupport"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()

	result := preflight.CheckDirectoryAccess("Staging directory", dir)
	if !result.Passed {
		t.Fatalf("expected pass for %s, got %q", dir, result.Detail)
	}

	missing := preflight.CheckDirectoryAccess("Staging directory", filepath.Join(dir, "nope"))
	if missing.Passed {
		t.Fatal("expected failure for missing directory")
	}

	file := filepath.Join(dir, "plain")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	notDir := preflight.CheckDirectoryAccess("Staging directory", file)
	if notDir.Passed {
		t.Fatal("expected failure for non-directory path")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()

	result := preflight.CheckDiskSpace("Staging disk space", dir, 1)
	if !result.Passed {
		t.Fatalf("expected pass, got %q", result.Detail)
	}

	huge := preflight.CheckDiskSpace("Staging disk space", dir, 1<<62)
	if huge.Passed {
		t.Fatal("expected failure for impossible minimum")
	}
}

func TestCheckFFmpeg(t *testing.T) {
	binDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(binDir, "ffmpeg"), []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	t.Setenv("PATH", binDir)

	result := preflight.CheckFFmpeg("ffmpeg")
	if !result.Passed {
		t.Fatalf("expected pass, got %q", result.Detail)
	}

	t.Setenv("PATH", t.TempDir())
	missing := preflight.CheckFFmpeg("ffmpeg")
	if missing.Passed {
		t.Fatal("expected failure when ffmpeg is absent")
	}
}

func TestCheckTextGen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer server.Close()

	result := preflight.CheckTextGen(context.Background(), config.TextGen{
		APIKey:  "test",
		BaseURL: server.URL,
		Model:   "test-model",
	})
	if !result.Passed {
		t.Fatalf("expected pass, got %q", result.Detail)
	}

	missingKey := preflight.CheckTextGen(context.Background(), config.TextGen{})
	if missingKey.Passed {
		t.Fatal("expected failure without api key")
	}
	if missingKey.Detail != "API key missing" {
		t.Fatalf("unexpected detail: %q", missingKey.Detail)
	}
}

func TestCheckSpeech(t *testing.T) {
	configured := preflight.CheckSpeech(context.Background(), config.Speech{APIKey: "test"})
	if !configured.Passed {
		t.Fatalf("expected pass, got %q", configured.Detail)
	}

	missing := preflight.CheckSpeech(context.Background(), config.Speech{})
	if missing.Passed {
		t.Fatal("expected failure without api key")
	}
}

func TestCheckArtifacts(t *testing.T) {
	disabled := preflight.CheckArtifacts(config.Artifacts{})
	if !disabled.Passed || disabled.Detail != "Disabled" {
		t.Fatalf("expected disabled pass, got %+v", disabled)
	}

	partial := preflight.CheckArtifacts(config.Artifacts{BaseURL: "https://example.supabase.co", Bucket: "episodes"})
	if partial.Passed {
		t.Fatal("expected failure without service key")
	}

	full := preflight.CheckArtifacts(config.Artifacts{
		BaseURL:    "https://example.supabase.co",
		ServiceKey: "svc",
		Bucket:     "episodes",
	})
	if !full.Passed {
		t.Fatalf("expected pass, got %q", full.Detail)
	}
}

func TestRunAllOnPreparedConfig(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	results := preflight.RunAll(context.Background(), cfg)
	if len(results) == 0 {
		t.Fatal("expected results")
	}
	if !preflight.Passed(results) {
		for _, result := range results {
			if !result.Passed {
				t.Errorf("check %q failed: %s", result.Name, result.Detail)
			}
		}
	}
}
