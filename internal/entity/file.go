package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
)

// File is the per-document tracking row of a job, unique on (JobID, SourceFileID).
type File struct {
	ID           uuid.UUID        `json:"id"`
	JobID        uuid.UUID        `json:"job_id"`
	SourceFileID string           `json:"source_file_id"`
	Name         string           `json:"name"`
	MimeType     string           `json:"mime_type"`
	Status       constants.Status `json:"status"`
	ChunkCount   *int             `json:"chunk_count,omitempty"`
	Profile      *ResumeProfile   `json:"resume_profile,omitempty"`
	Error        *string          `json:"error,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// SourceFile is the metadata the orchestrator records for a listed document.
type SourceFile struct {
	ID       string
	Name     string
	MimeType string
}
