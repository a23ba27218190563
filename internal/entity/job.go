package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
)

// Job represents one folder-ingestion request.
type Job struct {
	ID         uuid.UUID        `json:"id"`
	FolderURL  string           `json:"folder_url"`
	Namespace  string           `json:"namespace"`
	Status     constants.Status `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	Error      *string          `json:"error,omitempty"`
}
