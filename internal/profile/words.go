package profile

import "strings"

// Summary word bounds for model-built profiles.
const (
	SummaryMinWords = 190
	SummaryMaxWords = 200
	OverviewWords   = 120
)

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// FirstNWords returns the first n whitespace-separated words joined by single spaces.
func FirstNWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
