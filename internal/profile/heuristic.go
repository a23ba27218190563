package profile

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/entity"
)

const (
	projectWindow = 60
	maxProjects   = 5
)

var (
	reYears         = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*\+?\s*(?:years|yrs)\b`)
	reCompanyLabel  = regexp.MustCompile(`(?i)Company\s*[:\-]\s*([A-Za-z0-9 &.,]+).*?(\d+(?:\.\d+)?)\s*(?:years|yrs)\b`)
	reCompanyDash   = regexp.MustCompile(`(?i)^([A-Za-z0-9 &.,]{2,})\s*[-–]\s*(\d+(?:\.\d+)?)\s*(?:years|yrs)\b`)
	reProjectsHead  = regexp.MustCompile(`(?i)\bprojects?\b`)
	reProjectLine   = regexp.MustCompile(`(?i)^(?:project\s*[:\-]\s*)?(.{3,80}?)(?:\s*[:\-]\s*(.+))?$`)
	reProjectsTitle = regexp.MustCompile(`(?i)^projects?$`)

	skillPatterns     = map[string]*regexp.Regexp{}
	skillYearPatterns = map[string]*regexp.Regexp{}
)

func init() {
	for _, s := range constants.KnownSkills {
		q := regexp.QuoteMeta(s)
		skillPatterns[s] = regexp.MustCompile(`\b` + q + `\b`)
		skillYearPatterns[s] = regexp.MustCompile(`\b` + q + `\b\s*[:\-–]\s*(\d+(?:\.\d+)?)\s*(?:years|yrs)\b`)
	}
}

// HeuristicBuilder builds a profile from regular expressions and a fixed skill
// vocabulary. It is total: any input, including empty, yields a profile.
type HeuristicBuilder struct{}

func NewHeuristicBuilder() *HeuristicBuilder { return &HeuristicBuilder{} }

func (HeuristicBuilder) Build(_ context.Context, text string) (*entity.ResumeProfile, error) {
	return BuildHeuristic(text), nil
}

// BuildHeuristic is the pure form of HeuristicBuilder.Build.
func BuildHeuristic(text string) *entity.ResumeProfile {
	lower := strings.ToLower(text)
	skills := extractSkills(lower)

	return normalizeProfile(&entity.ResumeProfile{
		TotalYearsExperience:   extractTotalYears(lower),
		Skills:                 skills,
		SkillExperienceYears:   extractSkillYears(lower, skills),
		OverallSummary:         FirstNWords(text, SummaryMaxWords),
		OverviewForRAG:         FirstNWords(text, OverviewWords),
		CompanyExperienceYears: extractCompanies(text),
		Projects:               extractProjects(text),
	})
}

func extractTotalYears(lower string) *float64 {
	var best *float64
	for _, m := range reYears.FindAllStringSubmatch(lower, -1) {
		f, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if best == nil || f > *best {
			v := f
			best = &v
		}
	}
	return best
}

// extractSkills returns vocabulary skills in order of first appearance.
func extractSkills(lower string) []string {
	type hit struct {
		skill string
		pos   int
	}
	var hits []hit
	for _, s := range constants.KnownSkills {
		if loc := skillPatterns[s].FindStringIndex(lower); loc != nil {
			hits = append(hits, hit{skill: s, pos: loc[0]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.skill)
	}
	return out
}

func extractSkillYears(lower string, skills []string) map[string]float64 {
	out := map[string]float64{}
	for _, s := range skills {
		m := skillYearPatterns[s].FindStringSubmatch(lower)
		if m == nil {
			continue
		}
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			out[s] = f
		}
	}
	return out
}

func extractCompanies(text string) map[string]float64 {
	out := map[string]float64{}
	for _, line := range strings.Split(text, "\n") {
		l := strings.TrimSpace(line)
		if l == "" {
			continue
		}
		m := reCompanyLabel.FindStringSubmatch(l)
		if m == nil {
			m = reCompanyDash.FindStringSubmatch(l)
		}
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		yrs, err := strconv.ParseFloat(m[2], 64)
		if name == "" || err != nil {
			continue
		}
		if cur, ok := out[name]; !ok || yrs > cur {
			out[name] = yrs
		}
	}
	return out
}

func extractProjects(text string) []entity.Project {
	lines := strings.Split(text, "\n")
	start := -1
	for i, ln := range lines {
		if reProjectsHead.MatchString(ln) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	end := start + projectWindow
	if end > len(lines) {
		end = len(lines)
	}

	var out []entity.Project
	for _, ln := range lines[start+1 : end] {
		l := strings.TrimSpace(ln)
		if l == "" {
			continue
		}
		m := reProjectLine.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if reProjectsTitle.MatchString(name) {
			continue
		}
		p := entity.Project{ProjectName: name}
		if desc := strings.TrimSpace(m[2]); desc != "" {
			p.ProjectDescription = &desc
		}
		out = append(out, p)
		if len(out) >= maxProjects {
			break
		}
	}
	return out
}
