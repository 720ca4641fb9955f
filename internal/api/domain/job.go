package domain

import (
	"errors"
)

// Photobook job lifecycle states: queued -> processing -> {completed, failed}.
// Terminal states are final; re-running requires a fresh enqueue.
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

var (
	ErrJobNotFound = errors.New("photobook job not found")
)
