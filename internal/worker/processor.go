package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pixelfable/photobook-be/internal/generator"
	"github.com/pixelfable/photobook-be/internal/metrics"
	"github.com/pixelfable/photobook-be/internal/pdf"
	"github.com/pixelfable/photobook-be/internal/worker/domain"
)

// processJob processes a single claimed job start-to-finish. Every failure is
// converted into a terminal failed state here; this function never lets an
// error escape into the drain loop.
func (w *Worker) processJob(ctx context.Context, job *domain.Job) {
	start := time.Now()

	w.logger.Info("Processing job",
		slog.String("job_id", job.JobID),
		slog.String("worker_id", w.workerID),
		slog.Int("total_count", job.TotalCount),
	)

	var payload domain.Payload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		w.failJob(ctx, job, start, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err))
		return
	}

	jobCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	// Reconfirm the image total before any image page is written.
	if err := w.storage.ResetProgress(jobCtx, job.JobID, len(payload.Images)); err != nil {
		w.failJob(ctx, job, start, err)
		return
	}

	pdfPath, pdfURL, err := w.runGeneration(jobCtx, job, payload)
	if err != nil {
		w.failJob(ctx, job, start, err)
		return
	}

	if err := w.storage.MarkCompleted(ctx, job.JobID, pdfPath, pdfURL); err != nil {
		w.logger.Error("Failed to mark job completed",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
		return
	}

	metrics.JobsProcessed.WithLabelValues(domain.JobStatusCompleted).Inc()
	metrics.JobDuration.Observe(time.Since(start).Seconds())

	w.logger.Info("Job completed successfully",
		slog.String("job_id", job.JobID),
		slog.String("pdf_path", pdfPath),
		slog.Duration("duration", time.Since(start)),
	)
}

// runGeneration assembles the document and streams it into the artifact
// store as it is produced. It returns the storage path and public URL on
// success; on any error no artifact is persisted.
func (w *Worker) runGeneration(ctx context.Context, job *domain.Job, payload domain.Payload) (string, string, error) {
	req := generator.Request{
		Title:  payload.Title,
		Images: make([]generator.Image, len(payload.Images)),
	}
	for i, img := range payload.Images {
		req.Images[i] = generator.Image{
			ID:   img.ID,
			Name: img.Name,
			URL:  img.URL,
		}
	}

	key := fmt.Sprintf("photobooks/%s.pdf", job.JobID)

	pr, pw := io.Pipe()

	type uploadResult struct {
		url string
		err error
	}
	resultCh := make(chan uploadResult, 1)

	go func() {
		url, err := w.store.Put(ctx, key, pr)
		if err != nil {
			// Unblock the writer if the upload dies first.
			pr.CloseWithError(err)
		}
		resultCh <- uploadResult{url: url, err: err}
	}()

	genErr := w.generator.Generate(ctx, pw, req, func(processed int) error {
		return w.storage.UpdateProgress(ctx, job.JobID, processed)
	})

	if genErr != nil {
		// Abort the in-flight upload; the store discards partial output.
		pw.CloseWithError(genErr)
		<-resultCh
		return "", "", genErr
	}

	if err := pw.Close(); err != nil {
		<-resultCh
		return "", "", fmt.Errorf("close document stream: %w", err)
	}

	result := <-resultCh
	if result.err != nil {
		return "", "", fmt.Errorf("upload artifact: %w", result.err)
	}

	return key, result.url, nil
}

// failJob records the terminal failed state. Object-order violations are a
// latent defect, not an environmental failure, so they get loud telemetry.
func (w *Worker) failJob(ctx context.Context, job *domain.Job, start time.Time, jobErr error) {
	if errors.Is(jobErr, pdf.ErrObjectOrder) {
		metrics.WriterInvariantViolations.Inc()
		w.logger.Error("Document writer invariant violated - this is a bug",
			slog.String("job_id", job.JobID),
			slog.Bool("invariant", true),
			slog.String("error", jobErr.Error()),
		)
	} else {
		w.logger.Error("Job failed",
			slog.String("job_id", job.JobID),
			slog.String("error", jobErr.Error()),
		)
	}

	// The job context may already be canceled by shutdown or timeout; the
	// terminal update must still land so pollers never see the row stranded
	// in processing.
	if err := w.storage.MarkFailed(context.WithoutCancel(ctx), job.JobID, jobErr.Error()); err != nil {
		w.logger.Error("Failed to mark job failed",
			slog.String("job_id", job.JobID),
			slog.String("error", err.Error()),
		)
	}

	metrics.JobsProcessed.WithLabelValues(domain.JobStatusFailed).Inc()
	metrics.JobDuration.Observe(time.Since(start).Seconds())
}
