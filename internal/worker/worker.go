package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pixelfable/photobook-be/internal/generator"
	"github.com/pixelfable/photobook-be/internal/worker/domain"
	wstorage "github.com/pixelfable/photobook-be/internal/worker/storage"
	"github.com/pixelfable/photobook-be/shared/blobstore"
	"github.com/pixelfable/photobook-be/shared/postgresql"
	"github.com/pixelfable/photobook-be/shared/rabbitmq"
)

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	DBClient      *postgresql.Client
	RabbitClient  *rabbitmq.Client
	Store         blobstore.Store
	Generator     *generator.Generator
	DrainInterval time.Duration
	JobTimeout    time.Duration
}

// Worker drains the photobook job queue: it claims queued jobs one at a time
// and processes each start-to-finish. RabbitMQ deliveries and a fallback
// ticker both only trigger the drain loop; the database claim is what
// actually assigns ownership of a job.
type Worker struct {
	logger        *slog.Logger
	storage       *wstorage.Storage
	rabbitClient  *rabbitmq.Client
	store         blobstore.Store
	generator     *generator.Generator
	drainInterval time.Duration
	jobTimeout    time.Duration
	workerID      string

	// drainCh has capacity 1 so concurrent triggers collapse into a single
	// pending drain; the dedicated drain goroutine guarantees only one loop
	// runs at a time within this process.
	drainCh  chan struct{}
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	hostname, _ := os.Hostname()
	workerID := fmt.Sprintf("%s-%s", hostname, uuid.New().String()[:8])

	drainInterval := cfg.DrainInterval
	if drainInterval <= 0 {
		drainInterval = 10 * time.Second
	}

	return &Worker{
		logger:        cfg.Logger,
		storage:       wstorage.NewStorage(cfg.DBClient.GetDB(), cfg.Logger),
		rabbitClient:  cfg.RabbitClient,
		store:         cfg.Store,
		generator:     cfg.Generator,
		drainInterval: drainInterval,
		jobTimeout:    cfg.JobTimeout,
		workerID:      workerID,
		drainCh:       make(chan struct{}, 1),
		stopChan:      make(chan struct{}),
	}
}

// Start begins processing jobs and blocks until the context is canceled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Duration("drain_interval", w.drainInterval),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	if w.rabbitClient != nil {
		deliveries, err := w.setupConsumer()
		if err != nil {
			return fmt.Errorf("failed to setup consumer: %w", err)
		}

		w.wg.Add(1)
		go w.startWakeupListener(ctx, deliveries)
	}

	w.wg.Add(1)
	go w.drainLoop(ctx)

	w.wg.Add(1)
	go w.pollLoop(ctx)

	// Drain anything already queued at startup.
	w.triggerDrain()

	<-ctx.Done()
	w.logger.Info("Worker context canceled, stopping...")
	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

// triggerDrain requests a drain. Non-blocking: if a drain is already pending
// or running the request collapses into it.
func (w *Worker) triggerDrain() {
	select {
	case w.drainCh <- struct{}{}:
	default:
	}
}

// pollLoop triggers the drain loop on a timer so queued jobs are picked up
// even if a wakeup message was lost.
func (w *Worker) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.drainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.triggerDrain()
		}
	}
}

// drainLoop is the single in-process drain loop: on each trigger it claims
// and processes jobs one at a time, oldest first, until no queued job
// remains.
func (w *Worker) drainLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Drain loop stopping - stopChan closed")
			return
		case <-ctx.Done():
			w.logger.Info("Drain loop stopping - context canceled")
			return
		case <-w.drainCh:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.storage.ClaimNext(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrNoJobAvailable) {
				return
			}
			w.logger.Error("Failed to claim job, will retry on next trigger",
				slog.String("error", err.Error()),
			)
			return
		}

		// All per-job failures are handled inside processJob; the drain loop
		// always proceeds to the next queued job.
		w.processJob(ctx, job)
	}
}
