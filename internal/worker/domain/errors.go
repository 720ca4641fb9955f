package domain

import "errors"

var (
	// ErrNoJobAvailable is returned by the claim when no queued job exists,
	// or when another worker won the race for the last one.
	ErrNoJobAvailable = errors.New("no queued job available")

	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidPayload is returned when the job payload JSON is malformed
	ErrInvalidPayload = errors.New("invalid job payload")
)
