package model

import (
	"database/sql"
	"time"
)

// PhotobookJob is the durable row backing one generation request.
type PhotobookJob struct {
	JobID          string         `db:"job_id"`
	OwnerID        string         `db:"owner_id"`
	Title          string         `db:"title"`
	Status         string         `db:"status"`
	ProcessedCount int            `db:"processed_count"`
	TotalCount     int            `db:"total_count"`
	Payload        string         `db:"payload"`
	PDFPath        sql.NullString `db:"pdf_path"`
	PDFURL         sql.NullString `db:"pdf_url"`
	ErrorMessage   sql.NullString `db:"error_message"`
	CreatedAt      time.Time      `db:"created_at"`
	StartedAt      sql.NullTime   `db:"started_at"`
	CompletedAt    sql.NullTime   `db:"completed_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
}
