package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/entity"
)

type JobRepository interface {
	Create(ctx context.Context, folderURL, namespace string) (*entity.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*entity.Job, error)
	// MarkRunning moves a job to running and clears its error. A job that
	// already ran is reopened.
	MarkRunning(ctx context.Context, id uuid.UUID) error
	// Finish moves a running job to succeeded or failed.
	Finish(ctx context.Context, id uuid.UUID, status constants.Status, errText *string) error
	// Fail records a job-level error.
	Fail(ctx context.Context, id uuid.UUID, message string) error
	List(ctx context.Context, limit int) ([]*entity.Job, error)
}

type jobRepo struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

func NewJobRepository(db *sql.DB, log *slog.Logger) JobRepository {
	if log == nil {
		log = slog.Default()
	}
	return &jobRepo{db: db, log: log, now: utcNow}
}

const jobColumns = `id, folder_url, namespace, status, error, created_at, started_at, finished_at`

func (r *jobRepo) Create(ctx context.Context, folderURL, namespace string) (*entity.Job, error) {
	job := &entity.Job{
		ID:        uuid.New(),
		FolderURL: folderURL,
		Namespace: namespace,
		Status:    constants.StatusQueued,
		CreatedAt: r.now(),
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ingest_jobs (id, folder_url, namespace, status, created_at) VALUES ($1, $2, $3, $4, $5)`,
		job.ID, job.FolderURL, job.Namespace, string(job.Status), job.CreatedAt,
	)
	if err != nil {
		r.log.Error("job create failed", "error", err)
		return nil, dbError("create job", err)
	}
	r.log.Info("job created", "job_id", job.ID, "namespace", namespace)
	return job, nil
}

func (r *jobRepo) Get(ctx context.Context, id uuid.UUID) (*entity.Job, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM ingest_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("job", id.String())
	}
	if err != nil {
		return nil, dbError("get job", err)
	}
	return job, nil
}

func (r *jobRepo) MarkRunning(ctx context.Context, id uuid.UUID) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		cur, err := jobStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := constants.Transition(cur, constants.StatusRunning); err != nil {
			if err := constants.Reopen(cur); err != nil {
				return err
			}
			r.log.Info("job reopened", "job_id", id, "from", cur)
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE ingest_jobs SET status = $2, error = NULL, started_at = $3, finished_at = NULL WHERE id = $1`,
			id, string(constants.StatusRunning), r.now(),
		)
		if err != nil {
			return dbError("mark job running", err)
		}
		return nil
	})
}

func (r *jobRepo) Finish(ctx context.Context, id uuid.UUID, status constants.Status, errText *string) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		cur, err := jobStatus(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := constants.Transition(cur, status); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE ingest_jobs SET status = $2, error = $3, finished_at = $4 WHERE id = $1`,
			id, string(status), nullString(errText), r.now(),
		)
		if err != nil {
			return dbError("finish job", err)
		}
		return nil
	})
}

func (r *jobRepo) Fail(ctx context.Context, id uuid.UUID, message string) error {
	return r.Finish(ctx, id, constants.StatusFailed, &message)
}

func (r *jobRepo) List(ctx context.Context, limit int) ([]*entity.Job, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM ingest_jobs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, dbError("list jobs", err)
	}
	defer rows.Close()

	var out []*entity.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, dbError("scan job", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func jobStatus(ctx context.Context, tx *sql.Tx, id uuid.UUID) (constants.Status, error) {
	var s string
	err := tx.QueryRowContext(ctx, `SELECT status FROM ingest_jobs WHERE id = $1`, id).Scan(&s)
	if errors.Is(err, sql.ErrNoRows) {
		return "", notFound("job", id.String())
	}
	if err != nil {
		return "", dbError("read job status", err)
	}
	return constants.Status(s), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(s rowScanner) (*entity.Job, error) {
	var (
		job               entity.Job
		status            string
		errText           sql.NullString
		started, finished sql.NullTime
	)
	if err := s.Scan(&job.ID, &job.FolderURL, &job.Namespace, &status, &errText,
		&job.CreatedAt, &started, &finished); err != nil {
		return nil, err
	}
	job.Status = constants.Status(status)
	job.Error = stringPtr(errText)
	job.StartedAt = timePtr(started)
	job.FinishedAt = timePtr(finished)
	return &job, nil
}

func utcNow() time.Time { return time.Now().UTC() }

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func notFound(kind, id string) error {
	return common.NewAppError(common.CodeNotFound, fmt.Sprintf("%s %s not found", kind, id), common.ErrNotFound)
}

func dbError(op string, err error) error {
	return common.NewAppError(common.CodeDatabase, op, errors.Join(common.ErrDatabase, err))
}
