package embed

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// HashModel is an offline Model: a bag of lowercase word tokens hashed into a
// fixed number of buckets with FNV-1a. Identical input gives identical output.
type HashModel struct {
	dim int
}

func NewHashModel(dim int) *HashModel {
	if dim <= 0 {
		dim = 384
	}
	return &HashModel{dim: dim}
}

func (m *HashModel) Dimension() int { return m.dim }

func (m *HashModel) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *HashModel) vector(text string) []float32 {
	v := make([]float32, m.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(m.dim))
		if sum&(1<<63) != 0 {
			v[idx]--
		} else {
			v[idx]++
		}
	}
	return v
}
