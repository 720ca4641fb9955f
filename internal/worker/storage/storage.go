package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/pixelfable/photobook-be/internal/worker/domain"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// ClaimNext atomically transitions the oldest queued job to processing and
// returns it. FOR UPDATE SKIP LOCKED makes racing workers skip each other's
// candidate rather than block, so exactly one claims a given job and the
// others observe no row and get ErrNoJobAvailable. This claim is the only
// cross-process coordination primitive.
func (s *Storage) ClaimNext(ctx context.Context) (*domain.Job, error) {
	query := `
		WITH next_job AS (
			SELECT job_id
			FROM photobook_jobs
			WHERE status = $1
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE photobook_jobs
		SET status = $2,
		    started_at = NOW(),
		    updated_at = NOW()
		WHERE job_id IN (SELECT job_id FROM next_job)
		  AND status = $1
		RETURNING job_id, owner_id, title, processed_count, total_count, payload
	`

	var job domain.Job
	err := s.db.QueryRowContext(ctx, query, domain.JobStatusQueued, domain.JobStatusProcessing).Scan(
		&job.JobID,
		&job.OwnerID,
		&job.Title,
		&job.ProcessedCount,
		&job.TotalCount,
		&job.Payload,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoJobAvailable
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	job.Status = domain.JobStatusProcessing

	s.logger.Info("Job claimed",
		slog.String("job_id", job.JobID),
		slog.Int("total_count", job.TotalCount),
	)

	return &job, nil
}

// ResetProgress reconfirms the image total and zeroes the processed counter
// before any image page is written.
func (s *Storage) ResetProgress(ctx context.Context, jobID string, totalCount int) error {
	query := `
		UPDATE photobook_jobs
		SET total_count = $2,
		    processed_count = 0,
		    updated_at = NOW()
		WHERE job_id = $1 AND status = $3
	`

	if _, err := s.db.ExecContext(ctx, query, jobID, totalCount, domain.JobStatusProcessing); err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}
	return nil
}

// UpdateProgress persists the processed-image counter so pollers can compute
// completion percentage.
func (s *Storage) UpdateProgress(ctx context.Context, jobID string, processedCount int) error {
	query := `
		UPDATE photobook_jobs
		SET processed_count = $2,
		    updated_at = NOW()
		WHERE job_id = $1 AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, jobID, processedCount, domain.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to update progress: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		s.logger.Warn("Progress update - no rows affected (job may not be processing)",
			slog.String("job_id", jobID),
		)
	}

	return nil
}

// MarkCompleted records the artifact location and finishes the job. The
// processed counter is forced to the total so pollers see 100%.
func (s *Storage) MarkCompleted(ctx context.Context, jobID, pdfPath, pdfURL string) error {
	query := `
		UPDATE photobook_jobs
		SET status = $2,
		    pdf_path = $3,
		    pdf_url = $4,
		    processed_count = total_count,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $1
	`

	if _, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusCompleted, pdfPath, pdfURL); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	s.logger.Info("Job completed",
		slog.String("job_id", jobID),
		slog.String("pdf_path", pdfPath),
	)

	return nil
}

// MarkFailed finishes the job with a human-readable message. Progress
// counters are left as they were when the failure occurred.
func (s *Storage) MarkFailed(ctx context.Context, jobID, errorMsg string) error {
	query := `
		UPDATE photobook_jobs
		SET status = $2,
		    error_message = $3,
		    completed_at = NOW(),
		    updated_at = NOW()
		WHERE job_id = $1
	`

	if _, err := s.db.ExecContext(ctx, query, jobID, domain.JobStatusFailed, errorMsg); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	s.logger.Info("Job marked failed",
		slog.String("job_id", jobID),
		slog.String("error_message", errorMsg),
	)

	return nil
}
