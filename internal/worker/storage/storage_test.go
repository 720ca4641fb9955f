package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelfable/photobook-be/internal/worker/domain"
)

// newTestStorage connects to the database named by TEST_DATABASE_URL and
// skips the test when it is unset, so these integration tests only run
// against a real PostgreSQL instance. SKIP LOCKED semantics cannot be
// exercised against a mock.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database integration test")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	migration, err := os.ReadFile("../../../migrations/001_create_photobook_jobs.sql")
	require.NoError(t, err)
	_, err = db.Exec(string(migration))
	require.NoError(t, err)

	// Each test starts from an empty queue.
	_, err = db.Exec(`TRUNCATE photobook_jobs`)
	require.NoError(t, err)

	return NewStorage(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func insertQueuedJob(t *testing.T, s *Storage, totalCount int) string {
	t.Helper()

	jobID := uuid.New().String()
	_, err := s.db.Exec(`
		INSERT INTO photobook_jobs (job_id, owner_id, title, status, total_count, payload)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, jobID, "owner-test", "Test Photobook", domain.JobStatusQueued, totalCount, `{"title":"Test Photobook","images":[]}`)
	require.NoError(t, err)

	t.Cleanup(func() {
		s.db.Exec(`DELETE FROM photobook_jobs WHERE job_id = $1`, jobID)
	})

	return jobID
}

func jobStatus(t *testing.T, s *Storage, jobID string) string {
	t.Helper()
	var status string
	require.NoError(t, s.db.Get(&status, `SELECT status FROM photobook_jobs WHERE job_id = $1`, jobID))
	return status
}

func TestStorage_ClaimNext(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	jobID := insertQueuedJob(t, s, 3)

	job, err := s.ClaimNext(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)

	assert.Equal(t, jobID, job.JobID)
	assert.Equal(t, domain.JobStatusProcessing, job.Status)
	assert.Equal(t, 3, job.TotalCount)
	assert.Equal(t, domain.JobStatusProcessing, jobStatus(t, s, jobID))
}

func TestStorage_ClaimNext_Empty(t *testing.T) {
	s := newTestStorage(t)

	job, err := s.ClaimNext(context.Background())
	assert.Nil(t, job)
	assert.True(t, errors.Is(err, domain.ErrNoJobAvailable))
}

func TestStorage_ClaimNext_SingleClaim(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	const jobCount = 5
	const workerCount = 8

	inserted := make(map[string]bool, jobCount)
	for i := 0; i < jobCount; i++ {
		inserted[insertQueuedJob(t, s, 1)] = true
	}

	// Racing claimers must hand out each job exactly once.
	var mu sync.Mutex
	claimed := make(map[string]int)

	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				job, err := s.ClaimNext(ctx)
				if err != nil {
					return
				}
				mu.Lock()
				claimed[job.JobID]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	for jobID := range inserted {
		assert.Equal(t, 1, claimed[jobID], "job %s claimed %d times", jobID, claimed[jobID])
	}
}

func TestStorage_ProgressAndCompletion(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	jobID := insertQueuedJob(t, s, 4)

	job, err := s.ClaimNext(ctx)
	require.NoError(t, err)
	require.Equal(t, jobID, job.JobID)

	require.NoError(t, s.ResetProgress(ctx, jobID, 4))
	require.NoError(t, s.UpdateProgress(ctx, jobID, 2))

	var processed int
	require.NoError(t, s.db.Get(&processed, `SELECT processed_count FROM photobook_jobs WHERE job_id = $1`, jobID))
	assert.Equal(t, 2, processed)

	pdfPath := fmt.Sprintf("photobooks/%s.pdf", jobID)
	require.NoError(t, s.MarkCompleted(ctx, jobID, pdfPath, "http://localhost:8080/files/"+pdfPath))

	var row struct {
		Status         string `db:"status"`
		ProcessedCount int    `db:"processed_count"`
		PDFPath        string `db:"pdf_path"`
	}
	require.NoError(t, s.db.Get(&row, `SELECT status, processed_count, pdf_path FROM photobook_jobs WHERE job_id = $1`, jobID))
	assert.Equal(t, domain.JobStatusCompleted, row.Status)
	assert.Equal(t, 4, row.ProcessedCount)
	assert.Equal(t, pdfPath, row.PDFPath)
}

func TestStorage_MarkFailed(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	jobID := insertQueuedJob(t, s, 2)

	job, err := s.ClaimNext(ctx)
	require.NoError(t, err)
	require.Equal(t, jobID, job.JobID)

	require.NoError(t, s.ResetProgress(ctx, jobID, 2))
	require.NoError(t, s.UpdateProgress(ctx, jobID, 1))
	require.NoError(t, s.MarkFailed(ctx, jobID, "image 2 (img-2): fetch image: unexpected status 404"))

	var row struct {
		Status         string `db:"status"`
		ProcessedCount int    `db:"processed_count"`
		ErrorMessage   string `db:"error_message"`
	}
	require.NoError(t, s.db.Get(&row, `SELECT status, processed_count, error_message FROM photobook_jobs WHERE job_id = $1`, jobID))
	assert.Equal(t, domain.JobStatusFailed, row.Status)
	// Failure preserves the progress reached before the error.
	assert.Equal(t, 1, row.ProcessedCount)
	assert.Contains(t, row.ErrorMessage, "unexpected status 404")
}

func TestStorage_UpdateProgress_NotProcessing(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	jobID := insertQueuedJob(t, s, 1)

	// Still queued, so the guarded update must not touch the row.
	require.NoError(t, s.UpdateProgress(ctx, jobID, 1))

	var processed int
	require.NoError(t, s.db.Get(&processed, `SELECT processed_count FROM photobook_jobs WHERE job_id = $1`, jobID))
	assert.Equal(t, 0, processed)
}
