package constants

import "strings"

// KnownSkills is the fixed skill vocabulary, in match priority order.
var KnownSkills = []string{
	"python", "django", "fastapi", "flask",
	"java", "spring", "javascript", "typescript",
	"react", "node", "nodejs", "express",
	"sql", "postgresql", "mysql", "mongodb",
	"redis", "kafka", "docker", "kubernetes",
	"aws", "azure", "gcp",
}

// VectorSourceSummary tags vectors built from a profile summary.
const VectorSourceSummary = "resume_overall_summary"

// IsKnownSkill reports whether s (any case) is in KnownSkills.
func IsKnownSkill(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, k := range KnownSkills {
		if k == s {
			return true
		}
	}
	return false
}
