package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelfable/photobook-be/internal/api/domain"
	"github.com/pixelfable/photobook-be/internal/api/model"
)

// newTestStorage connects to the database named by TEST_DATABASE_URL and
// skips the test when it is unset.
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

	_, err = db.Exec(`TRUNCATE photobook_jobs`)
	require.NoError(t, err)

	return &Storage{db: db}
}

func newQueuedJob(ownerID, title string, createdAt time.Time) *model.PhotobookJob {
	return &model.PhotobookJob{
		JobID:      uuid.New().String(),
		OwnerID:    ownerID,
		Title:      title,
		Status:     domain.JobStatusQueued,
		TotalCount: 2,
		Payload:    `{"title":"` + title + `","images":[]}`,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestStorage_CreateAndGetJob(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	job := newQueuedJob("owner-1", "Summer Trip", time.Now().UTC())
	require.NoError(t, s.CreateJob(ctx, job))

	got, err := s.GetJobByID(ctx, job.JobID)
	require.NoError(t, err)

	assert.Equal(t, job.JobID, got.JobID)
	assert.Equal(t, "owner-1", got.OwnerID)
	assert.Equal(t, "Summer Trip", got.Title)
	assert.Equal(t, domain.JobStatusQueued, got.Status)
	assert.Equal(t, 0, got.ProcessedCount)
	assert.Equal(t, 2, got.TotalCount)
	assert.False(t, got.PDFURL.Valid)
	assert.False(t, got.StartedAt.Valid)
}

func TestStorage_GetJobByID_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetJobByID(context.Background(), uuid.New().String())
	assert.True(t, errors.Is(err, domain.ErrJobNotFound))
}

func TestStorage_ListJobs(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	var jobIDs []string
	for i := 0; i < 5; i++ {
		job := newQueuedJob("owner-list", fmt.Sprintf("Book %d", i), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, s.CreateJob(ctx, job))
		jobIDs = append(jobIDs, job.JobID)
	}
	// A different owner's job must not leak into the listing.
	require.NoError(t, s.CreateJob(ctx, newQueuedJob("owner-other", "Other", base)))

	t.Run("first page newest first", func(t *testing.T) {
		jobs, err := s.ListJobs(ctx, JobFilter{OwnerID: "owner-list", PageSize: 2})
		require.NoError(t, err)

		// PageSize+1 rows signal a next page.
		require.Len(t, jobs, 3)
		assert.Equal(t, jobIDs[4], jobs[0].JobID)
		assert.Equal(t, jobIDs[3], jobs[1].JobID)
	})

	t.Run("cursor continues after last seen", func(t *testing.T) {
		jobs, err := s.ListJobs(ctx, JobFilter{
			OwnerID:  "owner-list",
			PageSize: 10,
			Cursor: &JobCursor{
				CreatedAt: base.Add(3 * time.Second),
				JobID:     jobIDs[3],
			},
		})
		require.NoError(t, err)

		require.Len(t, jobs, 3)
		assert.Equal(t, jobIDs[2], jobs[0].JobID)
		assert.Equal(t, jobIDs[1], jobs[1].JobID)
		assert.Equal(t, jobIDs[0], jobs[2].JobID)
	})

	t.Run("status filter", func(t *testing.T) {
		jobs, err := s.ListJobs(ctx, JobFilter{
			OwnerID:  "owner-list",
			Status:   domain.JobStatusCompleted,
			PageSize: 10,
		})
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})
}
