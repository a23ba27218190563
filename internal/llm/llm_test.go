package llm

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
)

func TestParseObject(t *testing.T) {
	obj, err := ParseObject(`{"skills":["go"]}`)
	require.NoError(t, err)
	assert.Equal(t, []any{"go"}, obj["skills"])

	obj, err = ParseObject("Sure! Here it is:\n```json\n{\"overall_summary\": \"x\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "x", obj["overall_summary"])

	for _, bad := range []string{"", "   ", "no json here", "{not json}", "[1,2,3]"} {
		_, err := ParseObject(bad)
		assert.True(t, errors.Is(err, common.ErrMalformedModelOutput), "input %q", bad)
	}
}

func TestSanitizeProfileFields(t *testing.T) {
	m := map[string]any{
		"total_years_experience": "4.5",
		"skills":                 []any{"Go", " go ", "Python", 3, ""},
		"skill_experience_years": map[string]any{
			"go":     3.0,
			"python": "2",
			"rust":   nil,
			"java":   true,
			"c":      "lots",
		},
		"company_experience_years": "not a map",
		"projects": []any{
			map[string]any{"project_name": "Search", "domain": "web", "project_description": 5},
			map[string]any{"domain": "ml"},
			"junk",
		},
		"overall_summary": "  hello  ",
	}

	dropped := SanitizeProfileFields(m, nil)

	assert.Equal(t, 4.5, m["total_years_experience"])
	assert.Equal(t, []any{"go", "python"}, m["skills"])
	assert.Equal(t, map[string]any{"go": 3.0, "python": 2.0}, m["skill_experience_years"])
	assert.Equal(t, map[string]any{}, m["company_experience_years"])
	require.Len(t, m["projects"], 1)
	p := m["projects"].([]any)[0].(map[string]any)
	assert.Equal(t, "Search", p["project_name"])
	assert.Equal(t, "web", p["domain"])
	assert.Nil(t, p["project_description"])
	assert.Equal(t, "hello", m["overall_summary"])

	joined := strings.Join(dropped, ",")
	assert.Contains(t, joined, "skill_experience_years.rust")
	assert.Contains(t, joined, "skill_experience_years.java")
	assert.Contains(t, joined, "skill_experience_years.c")

	assert.NoError(t, ValidateJSONAgainstSchema(BuildProfileJSONSchema(), m))
}

func TestProfileSchema_RejectsBadShapes(t *testing.T) {
	schema := BuildProfileJSONSchema()

	assert.Error(t, ValidateJSONAgainstSchema(schema, map[string]any{
		"skill_experience_years": map[string]any{"go": "three"},
	}))
	assert.Error(t, ValidateJSONAgainstSchema(schema, map[string]any{
		"projects": []any{map[string]any{"domain": "x"}},
	}))
	assert.Error(t, ValidateJSONAgainstSchema(schema, map[string]any{
		"total_years_experience": -1.0,
	}))
	assert.NoError(t, ValidateJSONAgainstSchema(schema, map[string]any{
		"total_years_experience": nil,
		"overall_summary":        nil,
	}))
}

func TestPrompts(t *testing.T) {
	long := strings.Repeat("a", MaxInputChars+500)
	assert.Len(t, []rune(CapInput(long)), MaxInputChars)
	assert.Equal(t, "abc", CapInput("  abc \n"))

	req := BuildProfileRequest("resume body")
	assert.Equal(t, 1200, req.MaxTokens)
	assert.Contains(t, req.User, "resume body")

	exp := BuildExpansionRequest("resume body", "short summary")
	assert.Equal(t, 800, exp.MaxTokens)
	assert.Contains(t, exp.User, "CURRENT SUMMARY:\nshort summary")
	assert.Contains(t, exp.System, "190 and 200 words")
}

func TestSanitizeProfileFields_DropsNonFiniteNumbers(t *testing.T) {
	m := map[string]any{
		"total_years_experience": "NaN",
		"skill_experience_years": map[string]any{
			"go":   "NaN",
			"rust": "+Inf",
			"sql":  "-infinity",
			"java": "3",
		},
		"company_experience_years": map[string]any{"Acme": "Inf"},
	}

	dropped := SanitizeProfileFields(m, nil)

	assert.Nil(t, m["total_years_experience"])
	assert.Equal(t, map[string]any{"java": 3.0}, m["skill_experience_years"])
	assert.Equal(t, map[string]any{}, m["company_experience_years"])
	joined := strings.Join(dropped, ",")
	for _, want := range []string{"total_years_experience(type)", "skill_experience_years.go", "skill_experience_years.rust", "skill_experience_years.sql", "company_experience_years.Acme"} {
		assert.Contains(t, joined, want)
	}

	assert.NoError(t, ValidateJSONAgainstSchema(BuildProfileJSONSchema(), m))
}
