package async

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrQueueClosed is returned by Enqueue after Shutdown.
var ErrQueueClosed = errors.New("queue is shutting down")

// Task asks a worker to run one ingestion job.
type Task struct {
	JobID       uuid.UUID `json:"job_id"`
	Namespace   string    `json:"namespace"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// Submitter hands tasks to whatever executes them.
type Submitter interface {
	Enqueue(ctx context.Context, task Task) error
}

// Queue is a Submitter with an owned set of workers.
type Queue interface {
	Submitter
	Shutdown(ctx context.Context)
}

// JobRunner is the unit of work behind a task.
type JobRunner interface {
	RunJob(ctx context.Context, jobID uuid.UUID, namespace string) error
}

// TaskHandler executes one task to completion.
type TaskHandler interface {
	Run(ctx context.Context, task Task) error
}

// TaskHandlerFunc adapts a function to TaskHandler.
type TaskHandlerFunc func(ctx context.Context, task Task) error

func (f TaskHandlerFunc) Run(ctx context.Context, task Task) error { return f(ctx, task) }

func encodeTask(task Task) ([]byte, error) {
	if task.SubmittedAt.IsZero() {
		task.SubmittedAt = time.Now().UTC()
	}
	return json.Marshal(task)
}

func decodeTask(b []byte) (Task, error) {
	var t Task
	if err := json.Unmarshal(b, &t); err != nil {
		return Task{}, fmt.Errorf("decode task: %w", err)
	}
	if t.JobID == uuid.Nil {
		return Task{}, fmt.Errorf("decode task: missing job_id")
	}
	return t, nil
}
