package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"gistcast/internal/daemon"
	"gistcast/internal/pipeline"
	"gistcast/internal/queue"
	"gistcast/internal/testsupport"
	"gistcast/internal/workflow"
)

type stubRunner struct{}

func (stubRunner) Run(ctx context.Context, req pipeline.Request, onProgress pipeline.Progress) (*pipeline.Result, error) {
	for _, stage := range []string{pipeline.StageOutline, pipeline.StageFirstHalf, pipeline.StageSecondHalf, pipeline.StageAudio} {
		onProgress(stage)
	}
	return &pipeline.Result{
		Audio:      []byte("ID3fake-episode"),
		Transcript: "Person1: Hello.",
		Sources:    []string{"TechBrief"},
	}, nil
}

func startDaemon(t *testing.T, opts ...testsupport.ConfigOption) (*daemon.Daemon, string) {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := queue.NewNotifier()
	pool := workflow.NewPool(cfg, store, notifier, stubRunner{}, nil)

	d, err := daemon.New(cfg, store, nil,
		daemon.WithNotifier(notifier),
		daemon.WithPool(pool))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("daemon.Start: %v", err)
	}
	t.Cleanup(d.Stop)
	return d, "http://" + d.APIAddr()
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	notifier := queue.NewNotifier()
	pool := workflow.NewPool(cfg, store, notifier, stubRunner{}, nil)

	first, err := daemon.New(cfg, store, nil,
		daemon.WithNotifier(notifier),
		daemon.WithPool(pool))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, store, nil,
		daemon.WithNotifier(queue.NewNotifier()),
		daemon.WithPool(workflow.NewPool(cfg, store, queue.NewNotifier(), stubRunner{}, nil)))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("expected second instance to fail lock acquisition")
	}
}

func TestAPIJobLifecycle(t *testing.T) {
	_, base := startDaemon(t)

	body := bytes.NewBufferString(`{"subject_id":"digest-7","document":"From TechBrief: chips are fast.","target_minutes":5}`)
	resp, err := http.Post(base+"/api/jobs", "application/json", body)
	if err != nil {
		t.Fatalf("POST /api/jobs: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var created struct {
		ID        int64  `json:"id"`
		SubjectID string `json:"subject_id"`
		Status    string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == 0 || created.SubjectID != "digest-7" || created.Status != "queued" {
		t.Fatalf("unexpected created job: %+v", created)
	}

	deadline := time.Now().Add(10 * time.Second)
	var fetched struct {
		Status      string `json:"status"`
		Sources     string `json:"sources"`
		ArtifactURL string `json:"artifact_url"`
	}
	for {
		r, err := http.Get(fmt.Sprintf("%s/api/queue/%d", base, created.ID))
		if err != nil {
			t.Fatalf("GET job: %v", err)
		}
		err = json.NewDecoder(r.Body).Decode(&fetched)
		r.Body.Close()
		if err != nil {
			t.Fatalf("decode job: %v", err)
		}
		if fetched.Status == "ready" || fetched.Status == "failed" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never finished, last status %q", fetched.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if fetched.Status != "ready" {
		t.Fatalf("job status = %q, want ready", fetched.Status)
	}
	if fetched.Sources != `["TechBrief"]` {
		t.Fatalf("sources = %q", fetched.Sources)
	}

	listResp, err := http.Get(base + "/api/queue?status=ready")
	if err != nil {
		t.Fatalf("GET /api/queue: %v", err)
	}
	defer listResp.Body.Close()
	var listing struct {
		Jobs []struct {
			ID int64 `json:"id"`
		} `json:"jobs"`
	}
	if err := json.NewDecoder(listResp.Body).Decode(&listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Jobs) != 1 || listing.Jobs[0].ID != created.ID {
		t.Fatalf("unexpected listing: %+v", listing)
	}
}

func TestAPIHealthAndStatus(t *testing.T) {
	d, base := startDaemon(t)

	resp, err := http.Get(base + "/api/health")
	if err != nil {
		t.Fatalf("GET /api/health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health status = %d", resp.StatusCode)
	}
	var health struct {
		Status string `json:"status"`
		Queue  struct {
			Total int `json:"total"`
		} `json:"queue"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health.Status != "ok" {
		t.Fatalf("health.status = %q", health.Status)
	}

	statusResp, err := http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer statusResp.Body.Close()
	var status daemon.Status
	if err := json.NewDecoder(statusResp.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.Running {
		t.Fatal("status.running = false, want true")
	}
	if status.Workers != d.Status(context.Background()).Workers {
		t.Fatalf("workers mismatch: %+v", status)
	}
}

func TestAPIBearerAuth(t *testing.T) {
	_, base := startDaemon(t, testsupport.WithAPIToken("sesame"))

	resp, err := http.Get(base + "/api/health")
	if err != nil {
		t.Fatalf("GET without token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodGet, base+"/api/health", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Authorization", "Bearer sesame")
	authed, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with token: %v", err)
	}
	authed.Body.Close()
	if authed.StatusCode != http.StatusOK {
		t.Fatalf("status with token = %d, want 200", authed.StatusCode)
	}

	req.Header.Set("Authorization", "Bearer wrong")
	denied, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with wrong token: %v", err)
	}
	denied.Body.Close()
	if denied.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status with wrong token = %d, want 401", denied.StatusCode)
	}
}

func TestAPIRejectsBadRequests(t *testing.T) {
	_, base := startDaemon(t)

	resp, err := http.Post(base+"/api/jobs", "application/json", bytes.NewBufferString(`{"document":"  "}`))
	if err != nil {
		t.Fatalf("POST empty document: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty document status = %d, want 400", resp.StatusCode)
	}

	listResp, err := http.Get(base + "/api/queue?status=bogus")
	if err != nil {
		t.Fatalf("GET bad status filter: %v", err)
	}
	listResp.Body.Close()
	if listResp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad filter status = %d, want 400", listResp.StatusCode)
	}

	missing, err := http.Get(base + "/api/queue/999999")
	if err != nil {
		t.Fatalf("GET missing job: %v", err)
	}
	missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Fatalf("missing job status = %d, want 404", missing.StatusCode)
	}
}
