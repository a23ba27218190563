package async

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
)

// RetryPolicy bounds how often a failed task is run again.
type RetryPolicy struct {
	MaxRetries int
	Delay      time.Duration
}

// DefaultRetryPolicy allows two retries ten seconds apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 2, Delay: 10 * time.Second}
}

// Runner runs jobs under a RetryPolicy with a constant delay between attempts.
type Runner struct {
	jobs   JobRunner
	policy RetryPolicy
	logger *slog.Logger
}

func NewRunner(jobs JobRunner, policy RetryPolicy, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &Runner{jobs: jobs, policy: policy, logger: logger}
}

// Run executes task until it succeeds, fails permanently, the retries are
// used up or ctx is done. The last error is returned.
func (r *Runner) Run(ctx context.Context, task Task) error {
	log := r.logger.With("job_id", task.JobID, "namespace", task.Namespace)
	attempt := 0

	op := func() (struct{}, error) {
		attempt++
		err := r.jobs.RunJob(ctx, task.JobID, task.Namespace)
		if err == nil {
			return struct{}{}, nil
		}
		if permanent(err) {
			log.Error("task.ingest.permanent_failure", "attempt", attempt, "error", err)
			return struct{}{}, backoff.Permanent(err)
		}
		log.Warn("task.ingest.attempt_failed", "attempt", attempt, "max_attempts", r.policy.MaxRetries+1, "error", err)
		return struct{}{}, err
	}

	start := time.Now()
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.policy.Delay)),
		backoff.WithMaxTries(uint(r.policy.MaxRetries+1)),
		backoff.WithMaxElapsedTime(0),
	)
	if err != nil {
		log.Error("task.ingest.exhausted", "attempts", attempt, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return err
	}
	log.Info("task.ingest.ok", "attempts", attempt, "elapsed_ms", time.Since(start).Milliseconds())
	return nil
}

// permanent errors cannot be fixed by running the job again.
func permanent(err error) bool {
	return errors.Is(err, common.ErrNotFound) ||
		errors.Is(err, common.ErrInvalidInput) ||
		errors.Is(err, constants.ErrIllegalTransition) ||
		errors.Is(err, context.Canceled)
}
