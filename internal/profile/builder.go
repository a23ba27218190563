package profile

import (
	"context"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/entity"
)

// Builder derives a ResumeProfile from extracted text.
type Builder interface {
	Build(ctx context.Context, text string) (*entity.ResumeProfile, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, text string) (*entity.ResumeProfile, error)

func (f BuilderFunc) Build(ctx context.Context, text string) (*entity.ResumeProfile, error) {
	return f(ctx, text)
}

func normalizeProfile(p *entity.ResumeProfile) *entity.ResumeProfile {
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.SkillExperienceYears == nil {
		p.SkillExperienceYears = map[string]float64{}
	}
	if p.CompanyExperienceYears == nil {
		p.CompanyExperienceYears = map[string]float64{}
	}
	if p.Projects == nil {
		p.Projects = []entity.Project{}
	}
	return p
}
