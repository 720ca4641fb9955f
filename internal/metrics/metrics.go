package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Worker-side metrics. Registered on the default registry and exposed via the
// /metrics endpoints of both services.
var (
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photobook_jobs_processed_total",
		Help: "Photobook jobs that reached a terminal state, by outcome.",
	}, []string{"status"})

	JobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "photobook_job_duration_seconds",
		Help:    "Wall-clock time spent processing one photobook job.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 12),
	})

	ImagePrepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "photobook_image_prepare_duration_seconds",
		Help:    "Time spent fetching and re-encoding one source image.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	ImagePrepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "photobook_image_prepare_failures_total",
		Help: "Source images that failed to fetch or transcode.",
	})

	WriterInvariantViolations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "photobook_writer_invariant_violations_total",
		Help: "Document writer object-order violations. Any non-zero value is a bug.",
	})

	JobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "photobook_jobs_enqueued_total",
		Help: "Photobook jobs accepted by the API.",
	})
)
