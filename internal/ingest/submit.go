package ingest

import (
	"context"
	"log/slog"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/async"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/drive"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/entity"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/repository"
)

// Submit validates the request, creates a queued job and hands it to the
// submitter. The folder reference is stored as given. When enqueueing fails
// the job is left queued and the error is returned.
func Submit(ctx context.Context, jobs repository.JobRepository, submitter async.Submitter, folderRef, namespace string, logger *slog.Logger) (*entity.Job, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v := common.NewValidator().
		Field("folder_url", folderRef, common.Required, common.MaxLength(2048)).
		Field("namespace", namespace, common.Required, common.Namespace)
	if err := v.Error(); err != nil {
		return nil, err
	}
	if _, err := drive.ParseFolderID(folderRef); err != nil {
		return nil, err
	}

	job, err := jobs.Create(ctx, folderRef, namespace)
	if err != nil {
		return nil, err
	}
	if err := submitter.Enqueue(ctx, async.Task{JobID: job.ID, Namespace: namespace}); err != nil {
		logger.Error("ingest.submit.enqueue_failed", "job_id", job.ID, "error", err)
		return job, err
	}
	logger.Info("ingest.submit.ok", "job_id", job.ID, "namespace", namespace)
	return job, nil
}
