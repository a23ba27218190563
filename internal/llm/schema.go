package llm

// BuildProfileJSONSchema returns the JSON-Schema (draft 2020-12 subset) the
// sanitized profile object must satisfy.
func BuildProfileJSONSchema() map[string]any {
	numberMap := map[string]any{
		"type":                 "object",
		"additionalProperties": map[string]any{"type": "number", "minimum": 0},
	}
	nullableString := map[string]any{"type": []any{"string", "null"}}

	props := map[string]any{
		"total_years_experience": map[string]any{"type": []any{"number", "null"}, "minimum": 0},
		"skills": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string", "minLength": 1},
		},
		"skill_experience_years":   numberMap,
		"overall_summary":          nullableString,
		"overview_for_rag":         nullableString,
		"company_experience_years": numberMap,
		"projects": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"domain":              nullableString,
					"project_name":        map[string]any{"type": "string", "minLength": 1},
					"project_description": nullableString,
				},
				"required": []string{"project_name"},
			},
		},
	}

	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}
