package embed

import "context"

// Model turns texts into raw vectors, one per text, in order.
type Model interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}
