package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/entity"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	logger := slog.Default()
	db, err := OpenSQLite(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(context.Background(), db, DialectSQLite, logger))
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, Migrate(context.Background(), db, DialectSQLite, slog.Default()))
	require.NoError(t, HealthCheck(context.Background(), db, 0, slog.Default()))
}

func TestJobRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	jobs := NewJobRepository(newTestDB(t), nil)

	job, err := jobs.Create(ctx, "https://drive.google.com/drive/folders/abc", "team-a")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusQueued, job.Status)

	got, err := jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "team-a", got.Namespace)
	assert.Nil(t, got.StartedAt)

	err = jobs.Finish(ctx, job.ID, constants.StatusSucceeded, nil)
	assert.ErrorIs(t, err, constants.ErrIllegalTransition)

	require.NoError(t, jobs.MarkRunning(ctx, job.ID))
	require.NoError(t, jobs.Fail(ctx, job.ID, "listing failed"))

	got, err = jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, got.Status)
	require.NotNil(t, got.Error)
	assert.Equal(t, "listing failed", *got.Error)
	assert.NotNil(t, got.FinishedAt)

	// reprocess
	require.NoError(t, jobs.MarkRunning(ctx, job.ID))
	got, err = jobs.Get(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusRunning, got.Status)
	assert.Nil(t, got.Error)
	assert.Nil(t, got.FinishedAt)

	list, err := jobs.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestJobRepository_NotFound(t *testing.T) {
	jobs := NewJobRepository(newTestDB(t), nil)
	_, err := jobs.Get(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.True(t, errors.Is(jobs.MarkRunning(context.Background(), uuid.New()), common.ErrNotFound))
}

func TestFileRepository_UpsertNeverDuplicates(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	jobs := NewJobRepository(db, nil)
	files := NewFileRepository(db, nil)

	job, err := jobs.Create(ctx, "folder", "ns")
	require.NoError(t, err)
	src := entity.SourceFile{ID: "drive-1", Name: "cv.pdf", MimeType: constants.MimePDF}

	first, err := files.UpsertRunning(ctx, job.ID, src)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusRunning, first.Status)

	require.NoError(t, files.MarkFailed(ctx, first.ID, nil, "boom"))

	src.Name = "cv-renamed.pdf"
	second, err := files.UpsertRunning(ctx, job.ID, src)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, constants.StatusRunning, second.Status)
	assert.Nil(t, second.Error)
	assert.Equal(t, "cv-renamed.pdf", second.Name)

	all, err := files.ListByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestFileRepository_ProfileStoredWithoutEmbedding(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	jobs := NewJobRepository(db, nil)
	files := NewFileRepository(db, nil)

	job, err := jobs.Create(ctx, "folder", "ns")
	require.NoError(t, err)
	f, err := files.UpsertRunning(ctx, job.ID, entity.SourceFile{ID: "d1", Name: "a.txt", MimeType: constants.MimePlainText})
	require.NoError(t, err)

	years := 3.0
	p := &entity.ResumeProfile{
		TotalYearsExperience: &years,
		Skills:               []string{"go"},
		OverallSummary:       "summary",
		SummaryEmbedding:     []float32{0.1, 0.2},
	}
	require.NoError(t, files.MarkSucceeded(ctx, f.ID, p, 0))
	assert.Len(t, p.SummaryEmbedding, 2, "caller's profile is not mutated")

	var raw string
	require.NoError(t, db.QueryRow(`SELECT resume_profile FROM ingest_files WHERE id = $1`, f.ID).Scan(&raw))
	assert.NotContains(t, raw, "overall_summary_embedding")

	got, err := files.Get(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.StatusSucceeded, got.Status)
	require.NotNil(t, got.Profile)
	assert.Empty(t, got.Profile.SummaryEmbedding)
	require.NotNil(t, got.ChunkCount)
	assert.Equal(t, 0, *got.ChunkCount)

	err = files.MarkFailed(ctx, f.ID, nil, "late")
	assert.ErrorIs(t, err, constants.ErrIllegalTransition)
}

func TestFileRepository_RecordFailureAndListProfiles(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	jobs := NewJobRepository(db, nil)
	files := NewFileRepository(db, nil)

	jobA, err := jobs.Create(ctx, "folder-a", "a")
	require.NoError(t, err)
	jobB, err := jobs.Create(ctx, "folder-b", "b")
	require.NoError(t, err)

	failed, err := files.RecordFailure(ctx, jobA.ID, entity.SourceFile{ID: "s1", Name: "link", MimeType: constants.MimeShortcut}, "shortcut target missing")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusFailed, failed.Status)
	require.NotNil(t, failed.Error)

	for _, j := range []*entity.Job{jobA, jobB} {
		f, err := files.UpsertRunning(ctx, j.ID, entity.SourceFile{ID: "ok", Name: "cv.txt", MimeType: constants.MimePlainText})
		require.NoError(t, err)
		require.NoError(t, files.MarkSucceeded(ctx, f.ID, &entity.ResumeProfile{Skills: []string{"go"}}, 0))
	}

	all, err := files.ListSucceededWithProfile(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyA, err := files.ListSucceededWithProfile(ctx, "a")
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, jobA.ID, onlyA[0].JobID)

	bySource, err := files.GetBySource(ctx, jobA.ID, "s1")
	require.NoError(t, err)
	assert.Equal(t, failed.ID, bySource.ID)
}
