package testsupport

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"gistcast/internal/config"
	"gistcast/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// EnqueueJob creates a queued job for tests using the provided store.
func EnqueueJob(t testing.TB, store *queue.Store, document string) *queue.Job {
	t.Helper()

	job, err := store.Enqueue(context.Background(), "test-subject", document, queue.Params{})
	if err != nil {
		t.Fatalf("store.Enqueue: %v", err)
	}
	return job
}

// BackdateClaim rewrites a job's claim timestamp, simulating a worker that
// stalled long ago.
func BackdateClaim(t testing.TB, store *queue.Store, jobID int64, age time.Duration) {
	t.Helper()

	db, err := sql.Open("sqlite", store.Path())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer db.Close()

	stamp := time.Now().UTC().Add(-age).Format(time.RFC3339Nano)
	if _, err := db.Exec(`UPDATE jobs SET claimed_at = ? WHERE id = ?`, stamp, jobID); err != nil {
		t.Fatalf("backdate claim: %v", err)
	}
}
