package entity

// ResumeProfile is the structured artifact built for one resume.
//
// SummaryEmbedding is transient: it travels from the embedding step to the
// vector index and must be cleared before the profile is stored.
type ResumeProfile struct {
	TotalYearsExperience   *float64           `json:"total_years_experience"`
	Skills                 []string           `json:"skills"`
	SkillExperienceYears   map[string]float64 `json:"skill_experience_years"`
	OverallSummary         string             `json:"overall_summary"`
	SummaryEmbedding       []float32          `json:"overall_summary_embedding,omitempty"`
	OverviewForRAG         string             `json:"overview_for_rag,omitempty"`
	CompanyExperienceYears map[string]float64 `json:"company_experience_years"`
	Projects               []Project          `json:"projects"`
}

// Project is one project mention in a resume.
type Project struct {
	Domain             *string `json:"domain"`
	ProjectName        string  `json:"project_name"`
	ProjectDescription *string `json:"project_description"`
}

// WithoutEmbedding returns a shallow copy with the embedding removed.
func (p ResumeProfile) WithoutEmbedding() ResumeProfile {
	p.SummaryEmbedding = nil
	return p
}

// ClearEmbedding drops the transient vector in place.
func (p *ResumeProfile) ClearEmbedding() {
	if p != nil {
		p.SummaryEmbedding = nil
	}
}

// HasSkill reports whether skill (already lowercase) is listed.
func (p *ResumeProfile) HasSkill(skill string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Skills {
		if s == skill {
			return true
		}
	}
	return false
}
