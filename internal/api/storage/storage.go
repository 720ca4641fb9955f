package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pixelfable/photobook-be/internal/api/domain"
	"github.com/pixelfable/photobook-be/internal/api/model"
	"github.com/pixelfable/photobook-be/shared/postgresql"
)

const jobColumns = `
	job_id, owner_id, title, status, processed_count, total_count,
	payload, pdf_path, pdf_url, error_message,
	created_at, started_at, completed_at, updated_at`

// Storage handles job-row access for the API service.
type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

// CreateJob inserts a new queued photobook job.
func (s *Storage) CreateJob(ctx context.Context, job *model.PhotobookJob) error {
	query := `
		INSERT INTO photobook_jobs (
			job_id, owner_id, title, status,
			processed_count, total_count, payload,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7,
			$8, $9
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.OwnerID,
		job.Title,
		job.Status,
		job.ProcessedCount,
		job.TotalCount,
		job.Payload,
		job.CreatedAt,
		job.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create photobook job: %w", err)
	}

	return nil
}

// GetJobByID fetches one job row for status polling.
func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*model.PhotobookJob, error) {
	var job model.PhotobookJob
	query := `
		SELECT ` + jobColumns + `
		FROM photobook_jobs
		WHERE job_id = $1
	`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get photobook job: %w", err)
	}

	return &job, nil
}

// JobFilter narrows the job listing.
type JobFilter struct {
	OwnerID  string
	Status   string
	PageSize int
	Cursor   *JobCursor
}

// JobCursor is the keyset position for cursor pagination, newest first.
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs returns up to PageSize+1 jobs matching the filter; the extra row
// tells the caller whether a next page exists.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]model.PhotobookJob, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM photobook_jobs
		WHERE 1=1
	`
	args := []interface{}{}
	argIdx := 1

	if filter.OwnerID != "" {
		query += fmt.Sprintf(" AND owner_id = $%d", argIdx)
		args = append(args, filter.OwnerID)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	// Order by created_at DESC, job_id DESC for consistent pagination
	query += " ORDER BY created_at DESC, job_id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []model.PhotobookJob
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list photobook jobs: %w", err)
	}

	return jobs, nil
}
