package textgen

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gistcast/internal/services"
)

func completionResponse(t *testing.T, w http.ResponseWriter, content string) {
	t.Helper()
	payload := map[string]any{
		"choices": []any{
			map[string]any{
				"message": map[string]any{"content": content},
			},
		},
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

const outlinePayload = `{
  "intro_hook": "AI ate the newsletter industry this week",
  "segments": [
    {"title": "Model releases", "sources": ["TechBrief"], "key_points": ["a", "b"], "estimated_turns": 6},
    {"title": "Chip wars", "sources": ["ChipWeekly", "TechBrief"], "key_points": ["c"], "estimated_turns": 5}
  ],
  "cross_source_connections": ["Chips fund the models"],
  "provocative_angles": ["Maybe scaling is over"],
  "outro_theme": "Compute is the new oil"
}`

func TestGenerateOutline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Fatalf("unexpected auth header %q", got)
		}
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Fatalf("unexpected message shape: %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[1].Content, "<newsletters>") {
			t.Fatal("prompt missing newsletter block")
		}
		completionResponse(t, w, outlinePayload)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	outline, err := client.GenerateOutline(context.Background(), "Today in tech...")
	if err != nil {
		t.Fatalf("GenerateOutline returned error: %v", err)
	}
	if len(outline.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(outline.Segments))
	}
	if outline.IntroHook == "" || outline.OutroTheme == "" {
		t.Fatalf("outline fields missing: %+v", outline)
	}
	sources := outline.SourceNames()
	if len(sources) != 2 || sources[0] != "TechBrief" || sources[1] != "ChipWeekly" {
		t.Fatalf("unexpected source names: %v", sources)
	}
	if outline.EstimatedTurnTotal() != 11 {
		t.Fatalf("unexpected turn total: %d", outline.EstimatedTurnTotal())
	}
}

func TestGenerateOutlineStripsCodeFence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		completionResponse(t, w, "```json\n"+outlinePayload+"\n```")
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	outline, err := client.GenerateOutline(context.Background(), "doc")
	if err != nil {
		t.Fatalf("GenerateOutline returned error: %v", err)
	}
	if len(outline.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(outline.Segments))
	}
}

func TestGenerateOutlineMalformedJSONIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		completionResponse(t, w, "I could not produce an outline today, sorry!")
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	_, err := client.GenerateOutline(context.Background(), "doc")
	if err == nil {
		t.Fatal("expected parse error")
	}
	if services.Classify(err) != services.KindFatal {
		t.Fatalf("malformed outline should classify fatal, got %v for %v", services.Classify(err), err)
	}
}

func TestGenerateOutlineRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		completionResponse(t, w, outlinePayload)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", MaxRetries: 3, RetryDelaySeconds: 15},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	if _, err := client.GenerateOutline(context.Background(), "doc"); err != nil {
		t.Fatalf("GenerateOutline returned error: %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
	// Linear backoff: 15s after attempt 1, 30s after attempt 2.
	if len(slept) != 2 || slept[0] != 15*time.Second || slept[1] != 30*time.Second {
		t.Fatalf("unexpected retry delays: %v", slept)
	}
}

func TestGenerateOutlineExhaustedRetriesIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", MaxRetries: 2},
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.GenerateOutline(context.Background(), "doc")
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !services.IsRetryable(err) {
		t.Fatalf("exhausted rate limit should stay retryable, got %v", err)
	}
}

func TestGenerateOutlineBadRequestFailsFast(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", MaxRetries: 3})
	_, err := client.GenerateOutline(context.Background(), "doc")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("bad request should not retry, got %d calls", got)
	}
	if services.Classify(err) != services.KindFatal {
		t.Fatalf("bad request should classify fatal, got %v", err)
	}
}

func TestGenerateOutlineHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		completionResponse(t, w, outlinePayload)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model", MaxRetries: 3},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
	)
	if _, err := client.GenerateOutline(context.Background(), "doc"); err != nil {
		t.Fatalf("GenerateOutline returned error: %v", err)
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("expected Retry-After delay, got %v", slept)
	}
}

func TestGenerateSectionSecondHalfCarriesFirst(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		prompt := req.Messages[1].Content
		if !strings.Contains(prompt, "<first_half>") {
			t.Fatal("second-half prompt missing first half context")
		}
		if !strings.Contains(prompt, "<Person1>Earlier dialogue.</Person1>") {
			t.Fatal("second-half prompt missing prior turns")
		}
		if !strings.Contains(prompt, "signing off") {
			t.Fatal("second-half prompt missing outro instruction")
		}
		completionResponse(t, w, "<Person1>And that wraps it up.</Person1>")
	}))
	defer server.Close()

	var outline Outline
	if err := json.Unmarshal([]byte(outlinePayload), &outline); err != nil {
		t.Fatalf("parse fixture outline: %v", err)
	}

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	dialogue, err := client.GenerateSection(context.Background(), SectionRequest{
		Outline:       outline,
		Document:      "doc",
		Half:          SecondHalf,
		PreviousTurns: "<Person1>Earlier dialogue.</Person1>",
		WordTarget:    850,
	})
	if err != nil {
		t.Fatalf("GenerateSection returned error: %v", err)
	}
	if !strings.Contains(dialogue, "<Person1>") {
		t.Fatalf("unexpected dialogue: %q", dialogue)
	}
}

func TestGenerateSectionFirstHalfPrompt(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		prompt := req.Messages[1].Content
		if strings.Contains(prompt, "<first_half>") {
			t.Fatal("first-half prompt must not carry previous turns")
		}
		if !strings.Contains(prompt, "Welcome to Daily Gist") {
			t.Fatal("first-half prompt missing intro line")
		}
		if !strings.Contains(prompt, "Target: 850 words") {
			t.Fatal("first-half prompt missing word target")
		}
		completionResponse(t, w, "<Person1>Welcome!</Person1>")
	}))
	defer server.Close()

	var outline Outline
	if err := json.Unmarshal([]byte(outlinePayload), &outline); err != nil {
		t.Fatalf("parse fixture outline: %v", err)
	}

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if _, err := client.GenerateSection(context.Background(), SectionRequest{
		Outline:    outline,
		Document:   "doc",
		Half:       FirstHalf,
		WordTarget: 850,
	}); err != nil {
		t.Fatalf("GenerateSection returned error: %v", err)
	}
}

func TestGenerateSectionRejectsUnknownHalf(t *testing.T) {
	client := NewClient(Config{APIKey: "test", Model: "demo-model"})
	_, err := client.GenerateSection(context.Background(), SectionRequest{Document: "doc", Half: "middle"})
	if err == nil {
		t.Fatal("expected error for unknown half")
	}
	if services.Classify(err) != services.KindFatal {
		t.Fatalf("unknown half should classify fatal, got %v", err)
	}
}

func TestMissingAPIKeyIsFatal(t *testing.T) {
	client := NewClient(Config{Model: "demo-model"})
	_, err := client.GenerateOutline(context.Background(), "doc")
	if err == nil {
		t.Fatal("expected error")
	}
	if services.Classify(err) != services.KindFatal {
		t.Fatalf("missing key should classify fatal, got %v", err)
	}
}

func TestDecodeJSONVariants(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr bool
	}{
		{"direct", `{"ok":true}`, false},
		{"fenced", "```json\n{\"ok\":true}\n```", false},
		{"leading prose", "Here you go:\n{\"ok\":true}", false},
		{"empty", "   ", true},
		{"no json", "sorry, no dice", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var parsed struct {
				OK bool `json:"ok"`
			}
			err := DecodeJSON(tc.payload, &parsed)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeJSON returned error: %v", err)
			}
			if !parsed.OK {
				t.Fatal("expected ok=true")
			}
		})
	}
}
