package vectors

import "context"

// Point is one vector with its caller-chosen id and metadata.
type Point struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
}

// Match is one query hit, best first.
type Match struct {
	ID       string
	Score    float32
	Metadata map[string]any
}

// Index is an external vector index partitioned by namespace.
// Upserting an existing id replaces the point.
type Index interface {
	Upsert(ctx context.Context, namespace string, points []Point) error
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Match, error)
}
