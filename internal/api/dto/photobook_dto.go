package dto

// PhotobookImageDTO references one source image to embed.
type PhotobookImageDTO struct {
	ID   string `json:"id" binding:"required"`
	Name string `json:"name"`
	URL  string `json:"url" binding:"required"`
}

// CreatePhotobookRequest is the enqueue payload. Images may be empty; the
// generated document then contains only the title page.
type CreatePhotobookRequest struct {
	Title   string              `json:"title" binding:"required"`
	OwnerID string              `json:"owner_id" binding:"required"`
	Images  []PhotobookImageDTO `json:"images"`
}

// JobPayload is the serialized request stored on the job row. It is immutable
// once enqueued; the worker deserializes it when processing.
type JobPayload struct {
	Title  string              `json:"title"`
	Images []PhotobookImageDTO `json:"images"`
}

// PhotobookJobDTO is the external view of a job row.
type PhotobookJobDTO struct {
	JobID          string `json:"job_id"`
	OwnerID        string `json:"owner_id"`
	Title          string `json:"title"`
	Status         string `json:"status"`
	ProcessedCount int    `json:"processed_count"`
	TotalCount     int    `json:"total_count"`
	PDFURL         string `json:"pdf_url,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	CreatedAt      string `json:"created_at"`
	StartedAt      string `json:"started_at,omitempty"`
	CompletedAt    string `json:"completed_at,omitempty"`
	UpdatedAt      string `json:"updated_at"`
}

// ListPhotobooksRequest holds query parameters for the job listing.
type ListPhotobooksRequest struct {
	OwnerID  string `form:"owner_id"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// ListPhotobooksResponse is one page of jobs plus an opaque continuation
// cursor when more results exist.
type ListPhotobooksResponse struct {
	Jobs       []PhotobookJobDTO `json:"jobs"`
	NextCursor string            `json:"next_cursor,omitempty"`
}
