package embed

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// e5-style role prefixes.
const (
	QueryPrefix   = "query: "
	PassagePrefix = "passage: "
)

// Generator wraps a Model and returns L2-normalized vectors.
type Generator struct {
	model     Model
	prefixing bool
	log       *slog.Logger
}

type Option func(*Generator)

// WithPrefixing enables the query/passage prefixes used by e5 models.
func WithPrefixing(on bool) Option {
	return func(g *Generator) { g.prefixing = on }
}

func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.log = l
		}
	}
}

func NewGenerator(model Model, opts ...Option) (*Generator, error) {
	if model == nil {
		return nil, fmt.Errorf("embed: model is required")
	}
	g := &Generator{model: model, log: slog.Default()}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// Embed returns one unit-length vector per text.
func (g *Generator) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	start := time.Now()
	vecs, err := g.model.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("embed: model returned %d vectors for %d texts", len(vecs), len(texts))
	}
	for i := range vecs {
		vecs[i] = Normalize(vecs[i])
	}
	g.log.Debug("embed.ok", "count", len(texts), "elapsed_ms", time.Since(start).Milliseconds())
	return vecs, nil
}

// EmbedQueries embeds search queries.
func (g *Generator) EmbedQueries(ctx context.Context, texts []string) ([][]float32, error) {
	return g.Embed(ctx, g.prefixed(QueryPrefix, texts))
}

// EmbedPassages embeds stored documents.
func (g *Generator) EmbedPassages(ctx context.Context, texts []string) ([][]float32, error) {
	return g.Embed(ctx, g.prefixed(PassagePrefix, texts))
}

func (g *Generator) prefixed(prefix string, texts []string) []string {
	if !g.prefixing {
		return texts
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = prefix + t
	}
	return out
}

// Normalize scales v to unit length. A zero vector is returned unchanged.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	n := float32(math.Sqrt(sum))
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = x / n
	}
	return out
}
