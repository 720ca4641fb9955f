package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pixelfable/photobook-be/internal/api/domain"
	"github.com/pixelfable/photobook-be/internal/api/dto"
	"github.com/pixelfable/photobook-be/internal/api/model"
	"github.com/pixelfable/photobook-be/internal/api/storage"
	"github.com/pixelfable/photobook-be/internal/metrics"
)

// CreatePhotobook handles POST /api/v1/photobooks
// Enqueues a new photobook generation job
func (h *PhotobookHandler) CreatePhotobook(c *gin.Context) {
	var req dto.CreatePhotobookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	payload, err := json.Marshal(dto.JobPayload{
		Title:  req.Title,
		Images: req.Images,
	})
	if err != nil {
		h.logger.Error("Failed to serialize job payload", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create photobook job",
		})
		return
	}

	now := time.Now()
	job := model.PhotobookJob{
		JobID:          uuid.New().String(),
		OwnerID:        req.OwnerID,
		Title:          req.Title,
		Status:         domain.JobStatusQueued,
		ProcessedCount: 0,
		TotalCount:     len(req.Images),
		Payload:        string(payload),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.storage.CreateJob(c.Request.Context(), &job); err != nil {
		h.logger.Error("Failed to create photobook job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create photobook job",
		})
		return
	}

	metrics.JobsEnqueued.Inc()

	// Wake up a worker. The message only triggers a drain; a lost message is
	// harmless because workers also poll on a timer.
	h.publishWakeup(c, job.JobID)

	h.logger.Info("Photobook job enqueued",
		slog.String("job_id", job.JobID),
		slog.String("owner_id", job.OwnerID),
		slog.Int("total_count", job.TotalCount),
	)

	c.JSON(http.StatusCreated, jobToDTO(&job))
}

// publishWakeup notifies workers that a queued job exists. Publish failures
// are logged but never fail the enqueue.
func (h *PhotobookHandler) publishWakeup(c *gin.Context, jobID string) {
	if h.rabbitClient == nil {
		return
	}

	body, err := json.Marshal(gin.H{"job_id": jobID})
	if err != nil {
		h.logger.Error("Failed to serialize wakeup message", slog.String("error", err.Error()))
		return
	}

	if err := h.rabbitClient.PublishWithRetry(c.Request.Context(), body, "application/json"); err != nil {
		h.logger.Warn("Failed to publish wakeup message, relying on worker poll",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}

// GetPhotobook handles GET /api/v1/photobooks/:job_id
// Returns the job status, progress counters, and result for pollers
func (h *PhotobookHandler) GetPhotobook(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		h.logger.Error("Invalid job_id format", slog.String("job_id", jobID), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Photobook job not found",
			})
			return
		}
		h.logger.Error("Failed to get photobook job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get photobook job",
		})
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}

// ListPhotobooks handles GET /api/v1/photobooks
// Lists jobs with optional owner/status filtering and cursor pagination
func (h *PhotobookHandler) ListPhotobooks(c *gin.Context) {
	var req dto.ListPhotobooksRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	filter := storage.JobFilter{
		OwnerID:  req.OwnerID,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	}

	jobs, err := h.storage.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list photobook jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list photobook jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.PhotobookJobDTO, len(jobs))
	for i := range jobs {
		jobResponse[i] = jobToDTO(&jobs[i])
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		cursorObj := storage.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.JobID,
		}
		nextCursor, err = EncodeJobCursor(&cursorObj)
		if err != nil {
			h.logger.Error("Failed to encode next cursor", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to encode next cursor",
			})
			return
		}
	}

	c.JSON(http.StatusOK, dto.ListPhotobooksResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

func jobToDTO(job *model.PhotobookJob) dto.PhotobookJobDTO {
	out := dto.PhotobookJobDTO{
		JobID:          job.JobID,
		OwnerID:        job.OwnerID,
		Title:          job.Title,
		Status:         job.Status,
		ProcessedCount: job.ProcessedCount,
		TotalCount:     job.TotalCount,
		PDFURL:         job.PDFURL.String,
		ErrorMessage:   job.ErrorMessage.String,
		CreatedAt:      job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      job.UpdatedAt.Format(time.RFC3339),
	}
	if job.StartedAt.Valid {
		out.StartedAt = job.StartedAt.Time.Format(time.RFC3339)
	}
	if job.CompletedAt.Valid {
		out.CompletedAt = job.CompletedAt.Time.Format(time.RFC3339)
	}
	return out
}
