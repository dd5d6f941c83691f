// Package daemonctl provides the HTTP client the CLI uses to talk to a
// running gistcastd instance over its loopback API.
package daemonctl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"gistcast/internal/config"
)

const probeTimeout = 2 * time.Second

// Client issues authenticated requests against the daemon API.
type Client struct {
	base       string
	token      string
	httpClient *http.Client
}

// HealthResponse mirrors GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
	Queue  struct {
		Total      int `json:"total"`
		Queued     int `json:"queued"`
		Processing int `json:"processing"`
		Ready      int `json:"ready"`
		Failed     int `json:"failed"`
	} `json:"queue"`
}

// StatusResponse mirrors GET /api/status.
type StatusResponse struct {
	Running      bool   `json:"running"`
	Workers      int    `json:"workers"`
	QueueDBPath  string `json:"queue_db_path"`
	LockFilePath string `json:"lock_file_path"`
	Queue        struct {
		Total      int `json:"total"`
		Queued     int `json:"queued"`
		Processing int `json:"processing"`
		Ready      int `json:"ready"`
		Failed     int `json:"failed"`
	} `json:"queue"`
}

// JobSummary mirrors the job view returned by the enqueue endpoint.
type JobSummary struct {
	ID        int64  `json:"id"`
	SubjectID string `json:"subject_id"`
	Status    string `json:"status"`
}

// New builds a client for the configured API bind address.
func New(cfg *config.Config) *Client {
	return NewForAddress(cfg.Paths.APIBind, cfg.Paths.APIToken)
}

// NewForAddress builds a client for an explicit host:port, used when the
// daemon was bound to an ephemeral port.
func NewForAddress(addr, token string) *Client {
	return &Client{
		base:       "http://" + strings.TrimSpace(addr),
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Probe returns a client when the daemon answers its health endpoint,
// or nil when it is not running.
func Probe(cfg *config.Config) *Client {
	client := New(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	if _, err := client.Health(ctx); err != nil {
		return nil
	}
	return client
}

// Health fetches queue counts from the daemon.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var health HealthResponse
	err := c.get(ctx, "/api/health", &health)
	return health, err
}

// Status fetches the daemon runtime summary.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var status StatusResponse
	err := c.get(ctx, "/api/status", &status)
	return status, err
}

// Enqueue submits a new job through the daemon so idle workers wake
// immediately.
func (c *Client) Enqueue(ctx context.Context, subjectID, document string, targetMinutes int) (JobSummary, error) {
	payload, err := json.Marshal(map[string]any{
		"subject_id":     subjectID,
		"document":       document,
		"target_minutes": targetMinutes,
	})
	if err != nil {
		return JobSummary{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/jobs", bytes.NewReader(payload))
	if err != nil {
		return JobSummary{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return JobSummary{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return JobSummary{}, apiError(resp)
	}
	var job JobSummary
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return JobSummary{}, fmt.Errorf("decode response: %w", err)
	}
	return job, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return fmt.Errorf("daemon api: %s (status %d)", payload.Error, resp.StatusCode)
	}
	return fmt.Errorf("daemon api: unexpected status %d", resp.StatusCode)
}
