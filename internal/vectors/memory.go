package vectors

import (
	"context"
	"math"
	"sort"
	"sync"
)

// MemoryIndex is an in-process Index with exact cosine scoring, used for
// local runs and tests.
type MemoryIndex struct {
	mu     sync.RWMutex
	points map[string]map[string]Point
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{points: map[string]map[string]Point{}}
}

func (m *MemoryIndex) Upsert(_ context.Context, namespace string, points []Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ns := m.points[namespace]
	if ns == nil {
		ns = map[string]Point{}
		m.points[namespace] = ns
	}
	for _, p := range points {
		v := make([]float32, len(p.Vector))
		copy(v, p.Vector)
		ns[p.ID] = Point{ID: p.ID, Vector: v, Metadata: p.Metadata}
	}
	return nil
}

func (m *MemoryIndex) Query(_ context.Context, namespace string, vector []float32, topK int) ([]Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Match, 0, len(m.points[namespace]))
	for _, p := range m.points[namespace] {
		out = append(out, Match{ID: p.ID, Score: cosine(vector, p.Vector), Metadata: p.Metadata})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// Len returns the number of points stored under namespace.
func (m *MemoryIndex) Len(namespace string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points[namespace])
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
