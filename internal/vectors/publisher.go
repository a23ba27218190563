package vectors

import (
	"context"
	"log/slog"
	"time"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
)

// Publisher writes single vectors to an Index. A nil index means the vector
// index is not configured and every call fails with ErrIndexUnavailable.
type Publisher struct {
	index Index
	log   *slog.Logger
}

func NewPublisher(index Index, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{index: index, log: logger}
}

// Configured reports whether an index is attached.
func (p *Publisher) Configured() bool {
	return p != nil && p.index != nil
}

// Publish upserts one point under namespace.
func (p *Publisher) Publish(ctx context.Context, namespace, id string, vector []float32, metadata map[string]any) error {
	if !p.Configured() {
		return common.IndexUnavailable("vector index not configured", nil)
	}
	if len(vector) == 0 {
		return common.IndexUnavailable("empty vector for "+id, nil)
	}

	start := time.Now()
	err := p.index.Upsert(ctx, namespace, []Point{{ID: id, Vector: vector, Metadata: metadata}})
	if err != nil {
		p.log.Error("vectors.upsert.failed", "namespace", namespace, "vector_id", id, "error", err)
		return common.IndexUnavailable("upsert "+id, err)
	}
	p.log.Info("vectors.upsert.ok",
		"namespace", namespace,
		"vector_id", id,
		"dim", len(vector),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Query returns up to topK nearest points in namespace.
func (p *Publisher) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	if !p.Configured() {
		return nil, common.IndexUnavailable("vector index not configured", nil)
	}
	if topK <= 0 {
		topK = 5
	}
	matches, err := p.index.Query(ctx, namespace, vector, topK)
	if err != nil {
		p.log.Error("vectors.query.failed", "namespace", namespace, "error", err)
		return nil, common.IndexUnavailable("query", err)
	}
	return matches, nil
}
