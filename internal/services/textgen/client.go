package textgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gistcast/internal/services"
)

const (
	jsonResponseType   = "json_object"
	defaultHTTPTimeout = 120 * time.Second
	defaultAttempts    = 3
	defaultRetryDelay  = 15 * time.Second

	outlineMaxTokens = 4096
	sectionMaxTokens = 16384

	stageOutline = "outline"
	stageSection = "section"
)

// Config captures the runtime settings required to talk to the provider.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxRetries is the total attempt count per call.
	MaxRetries int
	// RetryDelaySeconds scales linearly with the attempt number.
	RetryDelaySeconds int
	TimeoutSeconds    int
}

// Client wraps the chat completion API used for transcript generation.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryDelay       time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the configured attempt count.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryDelay overrides the linear backoff unit.
func WithRetryDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = delay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a text generation client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:            strings.TrimSpace(cfg.APIKey),
			BaseURL:           strings.TrimSpace(cfg.BaseURL),
			Model:             strings.TrimSpace(cfg.Model),
			MaxRetries:        cfg.MaxRetries,
			RetryDelaySeconds: cfg.RetryDelaySeconds,
			TimeoutSeconds:    cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultAttempts,
		retryDelay:       defaultRetryDelay,
	}
	if cfg.MaxRetries > 0 {
		client.retryMaxAttempts = cfg.MaxRetries
	}
	if cfg.RetryDelaySeconds > 0 {
		client.retryDelay = time.Duration(cfg.RetryDelaySeconds) * time.Second
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://openrouter.ai/api/v1/chat/completions"
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("textgen request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// GenerateOutline produces the structured episode plan for the document.
func (c *Client) GenerateOutline(ctx context.Context, document string) (Outline, error) {
	var empty Outline
	document = strings.TrimSpace(document)
	if document == "" {
		return empty, services.Wrap(services.ErrValidation, stageOutline, "generate", "document required", nil)
	}
	if c.cfg.APIKey == "" {
		return empty, services.Wrap(services.ErrConfiguration, stageOutline, "generate", "api key required", nil)
	}

	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: outlineSystemPrompt},
			{Role: "user", Content: buildOutlinePrompt(document)},
		},
		MaxTokens:      outlineMaxTokens,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	content, err := c.completionContentWithRetry(ctx, payload, stageOutline)
	if err != nil {
		return empty, err
	}

	var outline Outline
	if err := DecodeJSON(content, &outline); err != nil {
		// A malformed outline will not improve on retry.
		return empty, services.Wrap(services.ErrValidation, stageOutline, "parse", "malformed outline payload", err)
	}
	if len(outline.Segments) == 0 {
		return empty, services.Wrap(services.ErrValidation, stageOutline, "parse", "outline has no segments", nil)
	}
	outline.Raw = content
	return outline, nil
}

// GenerateSection produces one dialogue half per the request.
func (c *Client) GenerateSection(ctx context.Context, req SectionRequest) (string, error) {
	if strings.TrimSpace(req.Document) == "" {
		return "", services.Wrap(services.ErrValidation, stageSection, "generate", "document required", nil)
	}
	if req.Half != FirstHalf && req.Half != SecondHalf {
		return "", services.Wrap(services.ErrValidation, stageSection, "generate", fmt.Sprintf("unknown half %q", req.Half), nil)
	}
	if c.cfg.APIKey == "" {
		return "", services.Wrap(services.ErrConfiguration, stageSection, "generate", "api key required", nil)
	}

	prompt, err := buildSectionPrompt(req)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, stageSection, "generate", "build prompt", err)
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: dialogueSystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: sectionMaxTokens,
	}
	content, err := c.completionContentWithRetry(ctx, payload, stageSection)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// HealthCheck issues a fast ping to verify the API key and model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, "health", "textgen", "api key required", nil)
	}
	payload := chatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: "You must respond with JSON only."},
			{Role: "user", Content: "Respond with {\"ok\":true}"},
		},
		MaxTokens:      64,
		ResponseFormat: map[string]string{"type": jsonResponseType},
	}
	content, err := c.completionContentWithRetry(ctx, payload, "health")
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeJSON(content, &parsed); err != nil {
		return fmt.Errorf("textgen health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("textgen health: unexpected response")
	}
	return nil
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	MaxTokens      int               `json:"max_tokens,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal"`
		} `json:"message"`
		// Some providers return the streaming schema even when stream=false.
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		Text         string `json:"text"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) completionContentWithRetry(ctx context.Context, payload chatCompletionRequest, stage string) (string, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		content, err := c.sendChatRequestOnce(ctx, payload)
		if err == nil {
			return content, nil
		}
		lastErr = err

		delay, retryable := c.retryDelayFor(ctx, err, attempt)
		if !retryable {
			return "", markProviderError(err, stage)
		}
		if attempt == attempts || ctx == nil || ctx.Err() != nil {
			break
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", services.Wrap(services.ErrTransient, stage, "generate",
		fmt.Sprintf("failed after %d attempts", attempts), lastErr)
}

// markProviderError tags a non-retryable transport failure so classification
// downstream sees the right disposition without re-inspecting HTTP details.
func markProviderError(err error, stage string) error {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, stage, "request", "authentication rejected", err)
		default:
			return services.Wrap(services.ErrValidation, stage, "request", "provider rejected request", err)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return err
}

func (c *Client) sendChatRequestOnce(ctx context.Context, payload chatCompletionRequest) (string, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("textgen request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("textgen request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("textgen request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("textgen request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("textgen request: decode response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("textgen request: api error: %s", strings.TrimSpace(completion.Error.Message))
	}

	for _, choice := range completion.Choices {
		for _, candidate := range []string{choice.Message.Content, choice.Delta.Content, choice.Text} {
			if trimmed := strings.TrimSpace(candidate); trimmed != "" {
				return trimmed, nil
			}
		}
	}
	return "", fmt.Errorf("textgen request: empty content (snippet: %s)", summarizePayloadSnippet(string(body)))
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

// retryDelayFor reports whether the error is worth another attempt and how
// long to wait before it.
func (c *Client) retryDelayFor(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) {
		return 0, false
	}
	// A deadline on the caller's context ends the call; a per-request HTTP
	// timeout with the caller still live is worth another attempt.
	if errors.Is(err, context.DeadlineExceeded) {
		if ctx == nil || ctx.Err() != nil {
			return 0, false
		}
		return c.backoffDelay(attempt), true
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return statusErr.RetryAfter, true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Connection resets and refused connections surface here.
		return c.backoffDelay(attempt), true
	}

	return 0, false
}

// backoffDelay grows linearly with the attempt number: delay, 2*delay, 3*delay.
func (c *Client) backoffDelay(attempt int) time.Duration {
	unit := defaultRetryDelay
	if c != nil && c.retryDelay >= 0 {
		unit = c.retryDelay
	}
	if attempt < 1 {
		attempt = 1
	}
	return unit * time.Duration(attempt)
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("textgen retry: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c != nil && c.sleeper != nil {
		c.sleeper(delay)
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

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
