package speech

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gistcast/internal/services"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com"
	defaultModel       = "gemini-2.5-pro-preview-tts"
	defaultHostVoice   = "Enceladus"
	defaultGuestVoice  = "Leda"
	defaultAttempts    = 3
	defaultHardTimeout = 5 * time.Minute

	stageSynthesis = "synthesis"
)

func defaultRetryDelays() []time.Duration {
	return []time.Duration{5 * time.Second, 15 * time.Second, 30 * time.Second}
}

// Config captures the runtime settings for the synthesis provider.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HostVoice  string
	GuestVoice string
	// Attempts is the total try count per chunk.
	Attempts int
	// RetryDelaySeconds lists the wait before each retry, indexed by the
	// attempt that just failed.
	RetryDelaySeconds []int
	// HardTimeoutSeconds bounds a single attempt regardless of HTTP client
	// settings.
	HardTimeoutSeconds int
}

// Client wraps the Gemini generateContent API for multi-speaker audio.
type Client struct {
	cfg        Config
	httpClient *http.Client

	attempts    int
	retryDelays []time.Duration
	hardTimeout time.Duration
	sleeper     func(time.Duration)
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

// WithAttempts overrides the configured attempt count.
func WithAttempts(attempts int) Option {
	return func(c *Client) {
		c.attempts = attempts
	}
}

// WithHardTimeout overrides the per-attempt deadline.
func WithHardTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.hardTimeout = timeout
		}
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a synthesis client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			APIKey:             strings.TrimSpace(cfg.APIKey),
			BaseURL:            strings.TrimSpace(cfg.BaseURL),
			Model:              strings.TrimSpace(cfg.Model),
			HostVoice:          strings.TrimSpace(cfg.HostVoice),
			GuestVoice:         strings.TrimSpace(cfg.GuestVoice),
			Attempts:           cfg.Attempts,
			RetryDelaySeconds:  cfg.RetryDelaySeconds,
			HardTimeoutSeconds: cfg.HardTimeoutSeconds,
		},
		attempts:    defaultAttempts,
		retryDelays: defaultRetryDelays(),
		hardTimeout: defaultHardTimeout,
	}
	if cfg.Attempts > 0 {
		client.attempts = cfg.Attempts
	}
	if len(cfg.RetryDelaySeconds) > 0 {
		delays := make([]time.Duration, 0, len(cfg.RetryDelaySeconds))
		for _, seconds := range cfg.RetryDelaySeconds {
			delays = append(delays, time.Duration(seconds)*time.Second)
		}
		client.retryDelays = delays
	}
	if cfg.HardTimeoutSeconds > 0 {
		client.hardTimeout = time.Duration(cfg.HardTimeoutSeconds) * time.Second
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	if client.cfg.HostVoice == "" {
		client.cfg.HostVoice = defaultHostVoice
	}
	if client.cfg.GuestVoice == "" {
		client.cfg.GuestVoice = defaultGuestVoice
	}
	if client.httpClient == nil {
		// The hard timeout governs attempts; leave room so the HTTP client
		// never fires first.
		client.httpClient = &http.Client{Timeout: client.hardTimeout + 10*time.Second}
	}
	return client
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("speech request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Synthesize converts a "Host:/Guest:" dialogue prompt into raw PCM bytes.
func (c *Client) Synthesize(ctx context.Context, prompt string) ([]byte, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, services.Wrap(services.ErrValidation, stageSynthesis, "generate", "prompt required", nil)
	}
	if c.cfg.APIKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageSynthesis, "generate", "api key required", nil)
	}

	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		pcm, err := c.synthesizeOnce(ctx, prompt)
		if err == nil {
			return pcm, nil
		}
		lastErr = err

		if !c.isRetryable(ctx, err) {
			return nil, markProviderError(err)
		}
		if attempt == c.attempts || ctx.Err() != nil {
			break
		}
		if err := c.sleep(ctx, c.retryDelay(attempt)); err != nil {
			return nil, err
		}
	}

	marker := services.ErrTransient
	if errors.Is(lastErr, context.DeadlineExceeded) {
		marker = services.ErrTimeout
	}
	return nil, services.Wrap(marker, stageSynthesis, "generate",
		fmt.Sprintf("failed after %d attempts", c.attempts), lastErr)
}

// HealthCheck verifies the API key is present without spending synthesis quota.
func (c *Client) HealthCheck(_ context.Context) error {
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, "health", "speech", "api key required", nil)
	}
	return nil
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string     `json:"responseModalities"`
	SpeechConfig       speechConfig `json:"speechConfig"`
}

type speechConfig struct {
	MultiSpeakerVoiceConfig multiSpeakerVoiceConfig `json:"multiSpeakerVoiceConfig"`
}

type multiSpeakerVoiceConfig struct {
	SpeakerVoiceConfigs []speakerVoiceConfig `json:"speakerVoiceConfigs"`
}

type speakerVoiceConfig struct {
	Speaker     string      `json:"speaker"`
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *Client) synthesizeOnce(ctx context.Context, prompt string) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.hardTimeout)
	defer cancel()

	payload := generateContentRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig: speechConfig{
				MultiSpeakerVoiceConfig: multiSpeakerVoiceConfig{
					SpeakerVoiceConfigs: []speakerVoiceConfig{
						{Speaker: "Host", VoiceConfig: voiceConfig{prebuiltVoiceConfig{c.cfg.HostVoice}}},
						{Speaker: "Guest", VoiceConfig: voiceConfig{prebuiltVoiceConfig{c.cfg.GuestVoice}}},
					},
				},
			},
		},
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("speech request: encode body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("speech request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech request: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("speech request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed generateContentResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("speech request: decode response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("speech request: api error %d %s: %s",
			parsed.Error.Code, parsed.Error.Status, strings.TrimSpace(parsed.Error.Message))
	}

	for _, candidate := range parsed.Candidates {
		for _, p := range candidate.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("speech request: decode audio payload: %w", err)
			}
			if len(pcm) == 0 {
				return nil, errors.New("speech request: empty audio payload")
			}
			return pcm, nil
		}
	}
	return nil, errors.New("speech request: response carried no audio")
}

func (c *Client) isRetryable(ctx context.Context, err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	// The hard per-attempt deadline firing while the caller is still live
	// counts as a transient provider stall.
	if errors.Is(err, context.DeadlineExceeded) {
		return ctx.Err() == nil
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func markProviderError(err error) error {
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, stageSynthesis, "request", "authentication rejected", err)
		default:
			return services.Wrap(services.ErrValidation, stageSynthesis, "request", "provider rejected request", err)
		}
	}
	return err
}

func (c *Client) retryDelay(attempt int) time.Duration {
	if len(c.retryDelays) == 0 {
		return 0
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(c.retryDelays) {
		idx = len(c.retryDelays) - 1
	}
	return c.retryDelays[idx]
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
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
