package domain

// Job is a claimed photobook job as seen by the worker.
type Job struct {
	JobID          string
	OwnerID        string
	Title          string
	Status         string
	ProcessedCount int
	TotalCount     int
	Payload        string // JSON string, immutable once enqueued
}

// PhotobookImage references one source image to embed, in request order.
type PhotobookImage struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Payload is the deserialized job payload.
type Payload struct {
	Title  string           `json:"title"`
	Images []PhotobookImage `json:"images"`
}

// WakeupMessage is the RabbitMQ message published at enqueue time. It only
// nudges workers to drain; the job id is informational.
type WakeupMessage struct {
	JobID string `json:"job_id"`
}
