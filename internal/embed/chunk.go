package embed

import "strings"

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 150
)

// ChunkText collapses whitespace and cuts text into windows of size runes that
// overlap by overlap runes.
func ChunkText(text string, size, overlap int) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	r := []rune(text)
	step := size - overlap
	var out []string
	for start := 0; start < len(r); start += step {
		end := start + size
		if end > len(r) {
			end = len(r)
		}
		out = append(out, string(r[start:end]))
		if end == len(r) {
			break
		}
	}
	return out
}
