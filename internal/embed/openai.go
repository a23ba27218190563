package embed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIConfig points at an OpenAI-compatible embeddings endpoint.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string // "none" for local servers without auth
	Model   string
}

// OpenAIModel is a Model backed by an OpenAI-compatible embeddings API.
type OpenAIModel struct {
	embedder embeddings.Embedder
	log      *slog.Logger
}

func NewOpenAIModel(cfg OpenAIConfig, logger *slog.Logger) (*OpenAIModel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.APIKey == "" {
		cfg.APIKey = "none"
	}
	client, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("embeddings client: %w", err)
	}
	e, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, fmt.Errorf("embedder: %w", err)
	}
	return &OpenAIModel{embedder: e, log: logger}, nil
}

func (m *OpenAIModel) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	m.log.Debug("embed.openai.request", "count", len(texts))
	out, err := m.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		m.log.Error("embed.openai.failed", "count", len(texts), "error", err)
		return nil, err
	}
	return out, nil
}
