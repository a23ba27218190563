package llm

import "strings"

// MaxInputChars caps the resume text sent to the model.
const MaxInputChars = 12000

const profileSystemPrompt = `You are an expert resume parser.
Return ONLY valid JSON (no markdown, no explanation, no extra text).
The JSON MUST match this schema:
{
  "total_years_experience": number|null,
  "skills": string[],
  "skill_experience_years": { [skill: string]: number },
  "overall_summary": string|null,
  "company_experience_years": { [company: string]: number },
  "projects": [ { "domain": string|null, "project_name": string, "project_description": string|null } ]
}
Rules:
- skills must be lowercase
- If unknown, use null or empty list/dict
- Years must be numbers (example 2.5)
- overall_summary must be an overall summary of the ENTIRE resume (not only the Summary section).
- overall_summary must be between 190 and 200 words.
- Do not use bullet points in overall_summary; write as a paragraph.
- For skill_experience_years and company_experience_years: NEVER use null values. If unknown, omit the key or use an empty object {}.`

const expansionSystemPrompt = `Return ONLY valid JSON.
Schema: { "overall_summary": string }
Rules:
- overall_summary must be between 190 and 200 words
- single paragraph, no bullet points
- must summarize the ENTIRE resume`

// CapInput trims text and cuts it to MaxInputChars runes.
func CapInput(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) > MaxInputChars {
		return string(r[:MaxInputChars])
	}
	return text
}

// BuildProfileRequest is the main profile extraction call.
func BuildProfileRequest(resumeText string) Request {
	return Request{
		System:      profileSystemPrompt,
		User:        "Resume text:\n\n" + resumeText,
		Temperature: 0,
		MaxTokens:   1200,
	}
}

// BuildExpansionRequest asks for a longer summary of the same resume.
func BuildExpansionRequest(resumeText, currentSummary string) Request {
	var b strings.Builder
	b.WriteString("Expand the summary to meet the 190-200 word requirement using the resume text.\n\n")
	b.WriteString("RESUME TEXT:\n")
	b.WriteString(resumeText)
	b.WriteString("\n\nCURRENT SUMMARY:\n")
	b.WriteString(currentSummary)
	b.WriteString("\n")
	return Request{
		System:      expansionSystemPrompt,
		User:        b.String(),
		Temperature: 0,
		MaxTokens:   800,
	}
}
