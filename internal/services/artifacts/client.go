package artifacts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gistcast/internal/services"
)

const (
	defaultHTTPTimeout = 60 * time.Second

	stageUpload = "upload"
)

// Config captures the artifact store settings. An empty BaseURL disables
// uploads entirely.
type Config struct {
	BaseURL    string
	ServiceKey string
	Bucket     string
}

// Client uploads finished episodes to a Supabase-style storage bucket.
type Client struct {
	cfg        Config
	httpClient *http.Client
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

// NewClient constructs an artifact store client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg: Config{
			BaseURL:    strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			ServiceKey: strings.TrimSpace(cfg.ServiceKey),
			Bucket:     strings.TrimSpace(cfg.Bucket),
		},
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Enabled reports whether uploads are configured.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.BaseURL != ""
}

// Upload stores the object under the bucket and returns its public URL.
// Existing objects at the same path are overwritten.
func (c *Client) Upload(ctx context.Context, objectPath string, data []byte, contentType string) (string, error) {
	if !c.Enabled() {
		return "", services.Wrap(services.ErrConfiguration, stageUpload, "store", "artifact store not configured", nil)
	}
	objectPath = strings.Trim(strings.TrimSpace(objectPath), "/")
	if objectPath == "" {
		return "", services.Wrap(services.ErrValidation, stageUpload, "store", "object path required", nil)
	}
	if len(data) == 0 {
		return "", services.Wrap(services.ErrValidation, stageUpload, "store", "empty payload", nil)
	}
	if c.cfg.ServiceKey == "" {
		return "", services.Wrap(services.ErrConfiguration, stageUpload, "store", "service key required", nil)
	}
	if c.cfg.Bucket == "" {
		return "", services.Wrap(services.ErrConfiguration, stageUpload, "store", "bucket required", nil)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	endpoint := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.cfg.BaseURL, c.cfg.Bucket, objectPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("artifact upload: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.ServiceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", services.Wrap(services.ErrTransient, stageUpload, "store", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		detail := fmt.Errorf("storage returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		switch {
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return "", services.Wrap(services.ErrConfiguration, stageUpload, "store", "authentication rejected", detail)
		case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= http.StatusInternalServerError:
			return "", services.Wrap(services.ErrTransient, stageUpload, "store", "storage unavailable", detail)
		default:
			return "", services.Wrap(services.ErrValidation, stageUpload, "store", "storage rejected upload", detail)
		}
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	return c.PublicURL(objectPath), nil
}

// PublicURL returns the public address for an object in the bucket.
func (c *Client) PublicURL(objectPath string) string {
	if !c.Enabled() {
		return ""
	}
	objectPath = strings.Trim(strings.TrimSpace(objectPath), "/")
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.cfg.BaseURL, c.cfg.Bucket, objectPath)
}
