package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gistcast/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "synthesize", "chunk", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"synthesize", "chunk", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "outline", "generate", "no marker", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker for nil marker, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want services.Kind
	}{
		{"validation", services.Wrap(services.ErrValidation, "script", "parse", "bad outline", nil), services.KindFatal},
		{"configuration", services.Wrap(services.ErrConfiguration, "", "load", "missing key", nil), services.KindFatal},
		{"not found", services.Wrap(services.ErrNotFound, "upload", "bucket", "missing", nil), services.KindFatal},
		{"transient", services.Wrap(services.ErrTransient, "synthesize", "tts", "503", errors.New("upstream")), services.KindRetryable},
		{"timeout", services.Wrap(services.ErrTimeout, "synthesize", "tts", "deadline", nil), services.KindRetryable},
		{"external tool", services.Wrap(services.ErrExternalTool, "stitch", "ffmpeg", "exit 1", nil), services.KindRetryable},
		{"unmarked", errors.New("surprise"), services.KindFatal},
		{"deadline", context.DeadlineExceeded, services.KindRetryable},
		{"canceled", context.Canceled, services.KindFatal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	if services.IsRetryable(services.Wrap(services.ErrValidation, "", "", "nope", nil)) {
		t.Fatal("validation errors must not be retryable")
	}
	if !services.IsRetryable(services.Wrap(services.ErrTransient, "", "", "blip", nil)) {
		t.Fatal("transient errors should be retryable")
	}
}
