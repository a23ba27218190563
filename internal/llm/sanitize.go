package llm

import (
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// SanitizeProfileFields normalizes a decoded profile object in place, the
// lenient way: numeric maps lose null and non-numeric entries, numeric
// strings become numbers, skills are lowercased and deduplicated, projects
// without a name are dropped. Returns what was dropped, for logging.
//
// Values stay in encoding/json shapes (float64, []any, map[string]any) so the
// result can be schema-validated directly.
func SanitizeProfileFields(m map[string]any, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}
	var dropped []string

	for _, key := range []string{"skill_experience_years", "company_experience_years"} {
		clean, d := cleanFloatMap(m[key])
		m[key] = clean
		for _, k := range d {
			dropped = append(dropped, key+"."+k)
		}
	}

	switch v := m["total_years_experience"].(type) {
	case nil:
	default:
		if f, ok := toFloat(v); ok {
			m["total_years_experience"] = f
		} else {
			m["total_years_experience"] = nil
			dropped = append(dropped, "total_years_experience(type)")
		}
	}

	m["skills"] = cleanSkills(m["skills"])

	projects, d := cleanProjects(m["projects"])
	m["projects"] = projects
	dropped = append(dropped, d...)

	for _, key := range []string{"overall_summary", "overview_for_rag"} {
		switch v := m[key].(type) {
		case nil:
		case string:
			m[key] = strings.TrimSpace(v)
		default:
			m[key] = nil
			dropped = append(dropped, key+"(type)")
		}
	}

	if len(dropped) > 0 {
		logger.Warn("llm.profile.lenient_sanitize_applied", "dropped", dropped)
	}
	return dropped
}

func cleanFloatMap(v any) (map[string]any, []string) {
	out := map[string]any{}
	raw, ok := v.(map[string]any)
	if !ok {
		return out, nil
	}
	var dropped []string
	for k, val := range raw {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		f, ok := toFloat(val)
		if !ok {
			dropped = append(dropped, k)
			continue
		}
		out[k] = f
	}
	return out, dropped
}

// toFloat accepts finite numbers only; "NaN" and "Inf" parse but cannot be
// schema-validated.
func toFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case string:
		var err error
		if f, err = strconv.ParseFloat(strings.TrimSpace(t), 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func cleanSkills(v any) []any {
	out := []any{}
	raw, ok := v.([]any)
	if !ok {
		return out
	}
	seen := map[string]struct{}{}
	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			continue
		}
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func cleanProjects(v any) ([]any, []string) {
	out := []any{}
	raw, ok := v.([]any)
	if !ok {
		return out, nil
	}
	var dropped []string
	for i, item := range raw {
		p, ok := item.(map[string]any)
		if !ok {
			dropped = append(dropped, "projects["+strconv.Itoa(i)+"](type)")
			continue
		}
		name, _ := p["project_name"].(string)
		name = strings.TrimSpace(name)
		if name == "" {
			dropped = append(dropped, "projects["+strconv.Itoa(i)+"](no name)")
			continue
		}
		clean := map[string]any{"project_name": name, "domain": nil, "project_description": nil}
		for _, k := range []string{"domain", "project_description"} {
			if s, ok := p[k].(string); ok && strings.TrimSpace(s) != "" {
				clean[k] = strings.TrimSpace(s)
			}
		}
		out = append(out, clean)
	}
	return out, dropped
}
