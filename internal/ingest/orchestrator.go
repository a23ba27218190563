package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/drive"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/entity"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/repository"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/textextract"
)

const textPreviewChars = 300

// TextExtractor turns fetched bytes into text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, mimeType string) (textextract.Result, error)
}

// ProfileBuilder returns a profile and the name of the strategy that built it.
type ProfileBuilder interface {
	Build(ctx context.Context, fileID, text string) (*entity.ResumeProfile, string, error)
}

// Embedder embeds stored passages.
type Embedder interface {
	EmbedPassages(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorPublisher upserts one vector into the index.
type VectorPublisher interface {
	Publish(ctx context.Context, namespace, id string, vector []float32, metadata map[string]any) error
}

// Deps are the collaborators of an Orchestrator. Embedder and Publisher may be
// nil; files then fail with INDEX_UNAVAILABLE.
type Deps struct {
	Source    drive.Source
	Extractor TextExtractor
	Profiles  ProfileBuilder
	Embedder  Embedder
	Publisher VectorPublisher
	Jobs      repository.JobRepository
	Files     repository.FileRepository
}

// Orchestrator runs one ingestion job: list the folder, then fetch, extract,
// profile, embed and publish every file in listing order.
type Orchestrator struct {
	deps          Deps
	maxPDFBytes   int64
	resolveFolder func(ref string) (string, error)
	logger        *slog.Logger
}

type Option func(*Orchestrator)

// WithMaxPDFBytes overrides the PDF size ceiling.
func WithMaxPDFBytes(n int64) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxPDFBytes = n
		}
	}
}

// WithFolderResolver replaces drive.ParseFolderID for turning a job's folder
// reference into a folder id.
func WithFolderResolver(fn func(ref string) (string, error)) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.resolveFolder = fn
		}
	}
}

func NewOrchestrator(deps Deps, logger *slog.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	o := &Orchestrator{
		deps:          deps,
		maxPDFBytes:   constants.DefaultMaxPDFBytes,
		resolveFolder: drive.ParseFolderID,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunJob processes every file of the job's folder. File failures are recorded
// on their rows and fail the job at the end; only job-level failures (unknown
// job, bad folder reference, listing errors) are returned.
func (o *Orchestrator) RunJob(ctx context.Context, jobID uuid.UUID, namespace string) error {
	start := time.Now()
	ctx = common.WithJobID(ctx, jobID.String())
	log := o.logger.With("job_id", jobID, "namespace", namespace)
	ctx = common.WithLogger(ctx, o.logger.With("namespace", namespace))

	job, err := o.deps.Jobs.Get(ctx, jobID)
	if err != nil {
		log.Error("ingest.job.load_failed", "error", err)
		return err
	}
	if err := o.deps.Jobs.MarkRunning(ctx, jobID); err != nil {
		log.Error("ingest.job.start_failed", "error", err)
		return err
	}
	log.Info("ingest.job.start", "folder", job.FolderURL)

	folderID, err := o.resolveFolder(job.FolderURL)
	if err != nil {
		return o.failJob(ctx, log, jobID, err)
	}
	files, err := o.deps.Source.ListFolder(ctx, folderID)
	if err != nil {
		return o.failJob(ctx, log, jobID, err)
	}
	log.Info("ingest.job.listed", "folder_id", folderID, "count", len(files))

	failed := 0
	for _, meta := range files {
		if err := ctx.Err(); err != nil {
			return o.failJob(ctx, log, jobID, fmt.Errorf("job interrupted: %w", err))
		}
		if !o.processEntry(ctx, log, job, namespace, meta) {
			failed++
		}
	}

	status := constants.StatusSucceeded
	var errText *string
	if failed > 0 {
		status = constants.StatusFailed
		msg := fmt.Sprintf("%d of %d files failed", failed, len(files))
		errText = &msg
	}
	if err := o.deps.Jobs.Finish(context.WithoutCancel(ctx), jobID, status, errText); err != nil {
		log.Error("ingest.job.finish_failed", "error", err)
		return err
	}
	log.Info("ingest.job.done",
		"status", status,
		"files", len(files),
		"failed", failed,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

func (o *Orchestrator) failJob(ctx context.Context, log *slog.Logger, jobID uuid.UUID, cause error) error {
	log.Error("ingest.job.failed", "code", common.ErrorCode(cause), "error", cause)
	if err := o.deps.Jobs.Fail(context.WithoutCancel(ctx), jobID, cause.Error()); err != nil {
		log.Error("ingest.job.finish_failed", "error", err)
	}
	return cause
}

// processEntry handles one listed entry and reports whether it succeeded.
func (o *Orchestrator) processEntry(ctx context.Context, log *slog.Logger, job *entity.Job, namespace string, meta drive.FileMeta) bool {
	if meta.IsShortcut() {
		target, err := o.deps.Source.ResolveShortcut(ctx, meta)
		if err != nil {
			log.Warn("ingest.file.shortcut_failed", "source_file_id", meta.ID, "name", meta.Name, "error", err)
			if _, rerr := o.deps.Files.RecordFailure(ctx, job.ID, sourceOf(meta), err.Error()); rerr != nil {
				log.Error("ingest.file.record_failed", "source_file_id", meta.ID, "error", rerr)
			}
			return false
		}
		meta = target
	}

	rec, err := o.deps.Files.UpsertRunning(ctx, job.ID, sourceOf(meta))
	if err != nil {
		log.Error("ingest.file.record_failed", "source_file_id", meta.ID, "error", err)
		return false
	}
	flog := log.With("file_id", rec.ID, "source_file_id", meta.ID, "name", meta.Name)
	return o.processFile(ctx, flog, job, namespace, rec, meta)
}

func (o *Orchestrator) processFile(ctx context.Context, log *slog.Logger, job *entity.Job, namespace string, rec *entity.File, meta drive.FileMeta) (ok bool) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("ingest.file.panic", "panic", r)
			o.markFailed(ctx, log, rec.ID, nil, fmt.Errorf("panic while processing file: %v", r))
			ok = false
		}
	}()

	profile, err := o.buildProfile(ctx, log, rec, meta)
	if err != nil {
		o.markFailed(ctx, log, rec.ID, nil, err)
		return false
	}

	vector := profile.SummaryEmbedding
	profile.ClearEmbedding()

	if err := o.publish(ctx, namespace, job, rec, meta, profile, vector); err != nil {
		o.markFailed(ctx, log, rec.ID, profile, err)
		return false
	}

	if err := o.deps.Files.MarkSucceeded(ctx, rec.ID, profile, 0); err != nil {
		o.markFailed(ctx, log, rec.ID, profile, fmt.Errorf("record success: %w", err))
		return false
	}
	log.Info("ingest.file.ok", "elapsed_ms", time.Since(start).Milliseconds())
	return true
}

// buildProfile fetches, extracts, profiles and embeds one file.
func (o *Orchestrator) buildProfile(ctx context.Context, log *slog.Logger, rec *entity.File, meta drive.FileMeta) (*entity.ResumeProfile, error) {
	mime := constants.NormalizeMime(meta.MimeType)
	if mime == constants.MimePDF && meta.Size > o.maxPDFBytes {
		return nil, common.OversizedInput(meta.Size, o.maxPDFBytes)
	}
	if !textextract.Supports(mime) {
		return nil, common.UnsupportedFormat(mime)
	}

	var (
		data []byte
		err  error
	)
	if mime == constants.MimeGoogleDoc {
		data, err = o.deps.Source.Export(ctx, meta.ID, constants.MimePlainText)
	} else {
		data, err = o.deps.Source.Download(ctx, meta.ID)
	}
	if err != nil {
		return nil, err
	}
	if mime == constants.MimePDF && int64(len(data)) > o.maxPDFBytes {
		return nil, common.OversizedInput(int64(len(data)), o.maxPDFBytes)
	}

	res, err := o.deps.Extractor.Extract(ctx, data, mime)
	if err != nil {
		return nil, err
	}
	log.Debug("ingest.file.extracted", "method", res.Method, "chars", len(res.Text))

	profile, strategy, err := o.deps.Profiles.Build(ctx, rec.ID.String(), res.Text)
	if err != nil {
		return nil, err
	}
	log.Debug("ingest.file.profiled", "strategy", strategy, "skills", len(profile.Skills))

	profile.SummaryEmbedding = o.embedSummary(ctx, log, profile.OverallSummary)
	return profile, nil
}

// embedSummary returns nil when there is nothing to embed or embedding fails.
func (o *Orchestrator) embedSummary(ctx context.Context, log *slog.Logger, summary string) []float32 {
	summary = strings.TrimSpace(summary)
	if summary == "" || o.deps.Embedder == nil {
		return nil
	}
	vecs, err := o.deps.Embedder.EmbedPassages(ctx, []string{summary})
	if err != nil || len(vecs) == 0 {
		log.Warn("ingest.file.embed_failed", "error", err)
		return nil
	}
	return vecs[0]
}

func (o *Orchestrator) publish(ctx context.Context, namespace string, job *entity.Job, rec *entity.File, meta drive.FileMeta, profile *entity.ResumeProfile, vector []float32) error {
	if o.deps.Publisher == nil {
		return common.IndexUnavailable("vector index not configured", nil)
	}
	if len(vector) == 0 {
		return common.IndexUnavailable("summary embedding is empty", nil)
	}
	return o.deps.Publisher.Publish(ctx, namespace, rec.ID.String(), vector, VectorMetadata(job, rec, meta, profile))
}

// VectorMetadata is the payload stored with a summary vector.
func VectorMetadata(job *entity.Job, rec *entity.File, meta drive.FileMeta, profile *entity.ResumeProfile) map[string]any {
	preview := []rune(strings.TrimSpace(profile.OverallSummary))
	if len(preview) > textPreviewChars {
		preview = preview[:textPreviewChars]
	}
	return map[string]any{
		"file_id":      rec.ID.String(),
		"file_name":    meta.Name,
		"job_id":       job.ID.String(),
		"source":       constants.VectorSourceSummary,
		"text_preview": string(preview),
	}
}

func (o *Orchestrator) markFailed(ctx context.Context, log *slog.Logger, id uuid.UUID, profile *entity.ResumeProfile, cause error) {
	log.Warn("ingest.file.failed", "code", common.ErrorCode(cause), "error", cause)
	if profile != nil {
		profile.ClearEmbedding()
	}
	if err := o.deps.Files.MarkFailed(context.WithoutCancel(ctx), id, profile, cause.Error()); err != nil {
		log.Error("ingest.file.record_failed", "error", err)
	}
}

func sourceOf(meta drive.FileMeta) entity.SourceFile {
	return entity.SourceFile{ID: meta.ID, Name: meta.Name, MimeType: meta.MimeType}
}
