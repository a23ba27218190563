package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/embed"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/entity"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/vectors"
)

const DefaultTopK = 5

// Modes reported in Result.Mode.
const (
	ModeJobDescription = "job_description"
	ModeFilter         = "filter"
	ModeVectorFallback = "vector_fallback"
	ModeNone           = "none"
)

// ProfileSource lists stored profiles for a namespace.
type ProfileSource interface {
	ListSucceededWithProfile(ctx context.Context, namespace string) ([]*entity.File, error)
}

// QueryEmbedder embeds search text.
type QueryEmbedder interface {
	EmbedQueries(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorQuerier runs nearest-neighbour queries.
type VectorQuerier interface {
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]vectors.Match, error)
}

// Request is one question against a namespace.
type Request struct {
	Question          string
	LastQuestion      string
	Namespace         string
	TopK              int
	AllowVectorSearch bool
}

// Hit is one matched resume. Profile is set for filter matches; Score and
// Metadata for vector matches.
type Hit struct {
	FileID   string
	FileName string
	Score    float32
	Profile  *entity.ResumeProfile
	Metadata map[string]any
}

type Result struct {
	Mode  string
	Query Query
	Hits  []Hit
}

// Service answers recruiter questions over ingested profiles.
type Service struct {
	profiles   ProfileSource
	classifier *Classifier
	embedder   QueryEmbedder
	index      VectorQuerier
	logger     *slog.Logger
}

// NewService wires the search collaborators. embedder and index may be nil;
// vector modes then return no hits.
func NewService(profiles ProfileSource, classifier *Classifier, embedder QueryEmbedder, index VectorQuerier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if classifier == nil {
		classifier = NewClassifier(nil, logger)
	}
	return &Service{profiles: profiles, classifier: classifier, embedder: embedder, index: index, logger: logger}
}

func (s *Service) Ask(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	v := common.NewValidator().
		Field("question", req.Question, common.Required, common.MaxLength(20000))
	if req.Namespace != "" {
		v.Field("namespace", req.Namespace, common.Namespace)
	}
	if err := v.Error(); err != nil {
		return nil, err
	}
	if req.TopK <= 0 {
		req.TopK = DefaultTopK
	}
	log := s.logger.With("namespace", req.Namespace)

	if LooksLikeJobDescription(req.Question) {
		hits, err := s.vectorSearch(ctx, req.Namespace, req.Question, req.TopK)
		if err != nil {
			return nil, err
		}
		log.Info("search.ask.ok", "mode", ModeJobDescription, "hits", len(hits),
			"elapsed_ms", time.Since(start).Milliseconds())
		return &Result{Mode: ModeJobDescription, Hits: hits}, nil
	}

	q := s.classifier.Classify(ctx, req.Question)
	files, err := s.profiles.ListSucceededWithProfile(ctx, req.Namespace)
	if err != nil {
		return nil, err
	}
	hits := Filter(files, q)
	if len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}
	if len(hits) > 0 {
		log.Info("search.ask.ok", "mode", ModeFilter, "skill", q.Skill, "hits", len(hits),
			"elapsed_ms", time.Since(start).Milliseconds())
		return &Result{Mode: ModeFilter, Query: q, Hits: hits}, nil
	}

	if req.AllowVectorSearch {
		text := req.Question
		if last := strings.TrimSpace(req.LastQuestion); last != "" {
			text = last + "\n" + text
		}
		hits, err := s.vectorSearch(ctx, req.Namespace, text, req.TopK)
		if err != nil {
			return nil, err
		}
		log.Info("search.ask.ok", "mode", ModeVectorFallback, "hits", len(hits),
			"elapsed_ms", time.Since(start).Milliseconds())
		return &Result{Mode: ModeVectorFallback, Query: q, Hits: hits}, nil
	}

	log.Info("search.ask.ok", "mode", ModeNone, "elapsed_ms", time.Since(start).Milliseconds())
	return &Result{Mode: ModeNone, Query: q}, nil
}

// Filter keeps files whose profile satisfies q, in input order. An empty
// query matches nothing.
func Filter(files []*entity.File, q Query) []Hit {
	if q.Empty() {
		return nil
	}
	var out []Hit
	for _, f := range files {
		p := f.Profile
		if p == nil {
			continue
		}
		if !matches(p, q) {
			continue
		}
		out = append(out, Hit{FileID: f.ID.String(), FileName: f.Name, Profile: p})
	}
	return out
}

func matches(p *entity.ResumeProfile, q Query) bool {
	if q.Skill == "" {
		return p.TotalYearsExperience != nil && *p.TotalYearsExperience >= *q.MinYears
	}
	if !p.HasSkill(q.Skill) {
		return false
	}
	if q.MinYears == nil {
		return true
	}
	years, ok := p.SkillExperienceYears[q.Skill]
	return ok && years >= *q.MinYears
}

// vectorSearch embeds text in overlapping chunks, queries each chunk and
// keeps the best score per point.
func (s *Service) vectorSearch(ctx context.Context, namespace, text string, topK int) ([]Hit, error) {
	if s.embedder == nil || s.index == nil {
		s.logger.Warn("search.vector.unavailable")
		return nil, nil
	}
	chunks := embed.ChunkText(text, embed.DefaultChunkSize, embed.DefaultChunkOverlap)
	if len(chunks) == 0 {
		return nil, nil
	}
	vecs, err := s.embedder.EmbedQueries(ctx, chunks)
	if err != nil {
		return nil, err
	}

	best := map[string]vectors.Match{}
	for _, v := range vecs {
		if len(v) == 0 {
			continue
		}
		found, err := s.index.Query(ctx, namespace, v, topK)
		if err != nil {
			return nil, err
		}
		for _, m := range found {
			if cur, ok := best[m.ID]; !ok || m.Score > cur.Score {
				best[m.ID] = m
			}
		}
	}

	merged := make([]vectors.Match, 0, len(best))
	for _, m := range best {
		merged = append(merged, m)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})
	if len(merged) > topK {
		merged = merged[:topK]
	}

	hits := make([]Hit, 0, len(merged))
	for _, m := range merged {
		h := Hit{FileID: m.ID, Score: m.Score, Metadata: m.Metadata}
		if id, ok := m.Metadata["file_id"].(string); ok {
			h.FileID = id
		}
		if name, ok := m.Metadata["file_name"].(string); ok {
			h.FileName = name
		}
		hits = append(hits, h)
	}
	s.logger.Debug("search.vector.ok", "chunks", len(chunks), "hits", len(hits))
	return hits, nil
}
