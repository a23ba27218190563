package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/entity"
)

type FileRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*entity.File, error)
	GetBySource(ctx context.Context, jobID uuid.UUID, sourceFileID string) (*entity.File, error)
	// UpsertRunning creates the (job, source file) row or resets an existing
	// one to running with no error.
	UpsertRunning(ctx context.Context, jobID uuid.UUID, src entity.SourceFile) (*entity.File, error)
	// RecordFailure creates or updates the row directly as failed.
	RecordFailure(ctx context.Context, jobID uuid.UUID, src entity.SourceFile, errText string) (*entity.File, error)
	MarkSucceeded(ctx context.Context, id uuid.UUID, profile *entity.ResumeProfile, chunkCount int) error
	MarkFailed(ctx context.Context, id uuid.UUID, profile *entity.ResumeProfile, errText string) error
	ListByJob(ctx context.Context, jobID uuid.UUID) ([]*entity.File, error)
	// ListSucceededWithProfile returns succeeded files that carry a profile,
	// newest first. An empty namespace matches every job.
	ListSucceededWithProfile(ctx context.Context, namespace string) ([]*entity.File, error)
}

type fileRepo struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

func NewFileRepository(db *sql.DB, log *slog.Logger) FileRepository {
	if log == nil {
		log = slog.Default()
	}
	return &fileRepo{db: db, log: log, now: utcNow}
}

const (
	fileColumns          = `f.id, f.job_id, f.source_file_id, f.name, f.mime_type, f.status, f.chunk_count, f.resume_profile, f.error, f.created_at, f.updated_at`
	fileReturningColumns = `id, job_id, source_file_id, name, mime_type, status, chunk_count, resume_profile, error, created_at, updated_at`
)

func (r *fileRepo) Get(ctx context.Context, id uuid.UUID) (*entity.File, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM ingest_files f WHERE f.id = $1`, id)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("file", id.String())
	}
	if err != nil {
		return nil, dbError("get file", err)
	}
	return f, nil
}

func (r *fileRepo) GetBySource(ctx context.Context, jobID uuid.UUID, sourceFileID string) (*entity.File, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM ingest_files f WHERE f.job_id = $1 AND f.source_file_id = $2`,
		jobID, sourceFileID)
	f, err := scanFile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("file", sourceFileID)
	}
	if err != nil {
		return nil, dbError("get file by source", err)
	}
	return f, nil
}

func (r *fileRepo) UpsertRunning(ctx context.Context, jobID uuid.UUID, src entity.SourceFile) (*entity.File, error) {
	return r.upsert(ctx, jobID, src, constants.StatusRunning, nil)
}

func (r *fileRepo) RecordFailure(ctx context.Context, jobID uuid.UUID, src entity.SourceFile, errText string) (*entity.File, error) {
	return r.upsert(ctx, jobID, src, constants.StatusFailed, &errText)
}

func (r *fileRepo) upsert(ctx context.Context, jobID uuid.UUID, src entity.SourceFile, status constants.Status, errText *string) (*entity.File, error) {
	now := r.now()
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO ingest_files (id, job_id, source_file_id, name, mime_type, status, error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
		ON CONFLICT (job_id, source_file_id) DO UPDATE SET
			name = excluded.name,
			mime_type = excluded.mime_type,
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at
		RETURNING `+fileReturningColumns,
		uuid.New(), jobID, src.ID, src.Name, src.MimeType, string(status), nullString(errText), now,
	)
	f, err := scanFile(row)
	if err != nil {
		r.log.Error("file upsert failed", "job_id", jobID, "source_file_id", src.ID, "error", err)
		return nil, dbError("upsert file", err)
	}
	return f, nil
}

func (r *fileRepo) MarkSucceeded(ctx context.Context, id uuid.UUID, profile *entity.ResumeProfile, chunkCount int) error {
	return r.finish(ctx, id, constants.StatusSucceeded, profile, &chunkCount, nil)
}

func (r *fileRepo) MarkFailed(ctx context.Context, id uuid.UUID, profile *entity.ResumeProfile, errText string) error {
	return r.finish(ctx, id, constants.StatusFailed, profile, nil, &errText)
}

func (r *fileRepo) finish(ctx context.Context, id uuid.UUID, status constants.Status, profile *entity.ResumeProfile, chunkCount *int, errText *string) error {
	profileJSON, err := marshalProfile(profile)
	if err != nil {
		return err
	}
	var chunks sql.NullInt64
	if chunkCount != nil {
		chunks = sql.NullInt64{Int64: int64(*chunkCount), Valid: true}
	}

	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		var cur string
		err := tx.QueryRowContext(ctx, `SELECT status FROM ingest_files WHERE id = $1`, id).Scan(&cur)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound("file", id.String())
		}
		if err != nil {
			return dbError("read file status", err)
		}
		if err := constants.Transition(constants.Status(cur), status); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE ingest_files SET status = $2, resume_profile = $3, chunk_count = $4, error = $5, updated_at = $6 WHERE id = $1`,
			id, string(status), profileJSON, chunks, nullString(errText), r.now(),
		)
		if err != nil {
			return dbError("finish file", err)
		}
		return nil
	})
}

func (r *fileRepo) ListByJob(ctx context.Context, jobID uuid.UUID) ([]*entity.File, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM ingest_files f WHERE f.job_id = $1 ORDER BY f.created_at, f.name`, jobID)
	if err != nil {
		return nil, dbError("list files", err)
	}
	return collectFiles(rows)
}

func (r *fileRepo) ListSucceededWithProfile(ctx context.Context, namespace string) ([]*entity.File, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+fileColumns+`
		FROM ingest_files f
		JOIN ingest_jobs j ON j.id = f.job_id
		WHERE f.status = $1 AND f.resume_profile IS NOT NULL AND (j.namespace = $2 OR $2 = '')
		ORDER BY f.updated_at DESC`,
		string(constants.StatusSucceeded), namespace)
	if err != nil {
		return nil, dbError("list profiles", err)
	}
	return collectFiles(rows)
}

func collectFiles(rows *sql.Rows) ([]*entity.File, error) {
	defer rows.Close()
	var out []*entity.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, dbError("scan file", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("iterate files", err)
	}
	return out, nil
}

// marshalProfile encodes profile for storage with the embedding removed.
func marshalProfile(profile *entity.ResumeProfile) (sql.NullString, error) {
	if profile == nil {
		return sql.NullString{}, nil
	}
	stored := profile.WithoutEmbedding()
	b, err := json.Marshal(stored)
	if err != nil {
		return sql.NullString{}, dbError("encode profile", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func scanFile(s rowScanner) (*entity.File, error) {
	var (
		f       entity.File
		status  string
		chunks  sql.NullInt64
		profile sql.NullString
		errText sql.NullString
	)
	if err := s.Scan(&f.ID, &f.JobID, &f.SourceFileID, &f.Name, &f.MimeType, &status,
		&chunks, &profile, &errText, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.Status = constants.Status(status)
	f.Error = stringPtr(errText)
	if chunks.Valid {
		n := int(chunks.Int64)
		f.ChunkCount = &n
	}
	if profile.Valid && profile.String != "" {
		var p entity.ResumeProfile
		if err := json.Unmarshal([]byte(profile.String), &p); err != nil {
			return nil, err
		}
		f.Profile = &p
	}
	return &f, nil
}
