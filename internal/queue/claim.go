package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	completeVerifyAttempts = 3
	completeVerifyDelay    = time.Second
)

// Claim atomically hands the oldest queued job to a worker. It returns nil
// when nothing is queued. The select-and-flip runs as one UPDATE statement,
// so concurrent claimers cannot take the same job; SQLite's write lock plus
// busy retries serialize them.
func (s *Store) Claim(ctx context.Context, workerID string) (*Job, error) {
	ctx = ensureContext(ctx)
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, errors.New("claim: worker id is empty")
	}

	now := formatTime(time.Now())
	var claimed *Job
	err := retryOnBusy(ctx, func() error {
		claimed = nil
		row := s.db.QueryRowContext(ctx,
			`UPDATE jobs
            SET status = ?, claimed_by = ?, claimed_at = ?, progress_stage = NULL,
                error_message = NULL, updated_at = ?
            WHERE id = (
                SELECT id FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1
            ) AND status = ?
            RETURNING `+jobColumns,
			StatusProcessing, workerID, now, now, StatusQueued, StatusQueued,
		)
		job, err := scanJob(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("claim job: %w", err)
		}
		claimed = job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// SetProgressStage records the stage label a worker is currently executing.
// Callers treat failures as log-only; progress is best effort.
func (s *Store) SetProgressStage(ctx context.Context, id int64, stage string) error {
	_, err := s.execWithRetry(
		ensureContext(ctx),
		`UPDATE jobs SET progress_stage = ?, updated_at = ? WHERE id = ?`,
		nullableString(stage),
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set progress stage: %w", err)
	}
	return nil
}

// Complete marks a job ready with its result, then verifies the terminal row
// reads back before reporting success. A write that never becomes visible
// within the verification bound is an error.
func (s *Store) Complete(ctx context.Context, id int64, result Result) error {
	ctx = ensureContext(ctx)
	now := formatTime(time.Now())

	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
        SET status = ?, progress_stage = NULL, claimed_by = NULL, claimed_at = NULL,
            artifact_url = ?, artifact_bytes = ?, transcript = ?, sources_json = ?,
            error_message = NULL, updated_at = ?
        WHERE id = ?`,
		StatusReady,
		nullableString(result.ArtifactURL),
		result.ArtifactBytes,
		nullableString(result.Transcript),
		nullableString(result.SourcesJSON),
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("complete job %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("complete job %d: no row updated", id)
	}

	var lastErr error
	for attempt := 0; attempt < completeVerifyAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(completeVerifyDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		job, err := s.GetByID(ctx, id)
		if err != nil {
			lastErr = err
			continue
		}
		if job != nil && job.Status == StatusReady {
			return nil
		}
		lastErr = fmt.Errorf("job %d not visible as ready", id)
	}
	return fmt.Errorf("verify completion of job %d: %w", id, lastErr)
}

// Fail marks a job failed with an operator-facing message. When the update
// matches no row the failure is recorded via upsert instead so the signal is
// never lost.
func (s *Store) Fail(ctx context.Context, id int64, message string) error {
	ctx = ensureContext(ctx)
	now := formatTime(time.Now())
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown failure"
	}

	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
        SET status = ?, progress_stage = NULL, claimed_by = NULL, claimed_at = NULL,
            error_message = ?, updated_at = ?
        WHERE id = ?`,
		StatusFailed,
		message,
		now,
		id,
	)
	if err != nil {
		return fmt.Errorf("fail job %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("fail rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	_, err = s.execWithRetry(
		ctx,
		`INSERT INTO jobs (id, document, status, error_message, created_at, updated_at)
        VALUES (?, '', ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            status = excluded.status,
            error_message = excluded.error_message,
            claimed_by = NULL,
            claimed_at = NULL,
            updated_at = excluded.updated_at`,
		id,
		StatusFailed,
		message,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("record failure for job %d: %w", id, err)
	}
	return nil
}

// ResetStale returns processing jobs whose claim predates the cutoff back to
// queued, clearing claim fields. It returns the number of recovered jobs.
func (s *Store) ResetStale(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ensureContext(ctx),
		`UPDATE jobs
        SET status = ?, claimed_by = NULL, claimed_at = NULL,
            progress_stage = NULL, updated_at = ?
        WHERE status = ? AND claimed_at IS NOT NULL AND claimed_at < ?`,
		StatusQueued,
		formatTime(time.Now()),
		StatusProcessing,
		formatTime(olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("reset stale jobs: %w", err)
	}
	return res.RowsAffected()
}
