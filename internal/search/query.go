package search

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/Ersuniltoadster/resume-filter-chatbot/constants"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/llm"
)

const (
	jdMinChars        = 400
	classifyMaxTokens = 120
)

var (
	reMinYears    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*\+?\s*(?:years|yrs)\b`)
	skillPatterns = map[string]*regexp.Regexp{}

	jdKeywords = []string{
		"job description",
		"responsibilities",
		"requirements",
		"qualifications",
		"we are looking for",
		"must have",
		"nice to have",
		"what you will do",
	}
)

func init() {
	for _, s := range constants.KnownSkills {
		skillPatterns[s] = regexp.MustCompile(`\b` + regexp.QuoteMeta(s) + `\b`)
	}
}

// Query is the structured filter pulled out of a question.
type Query struct {
	Skill    string   `json:"skill,omitempty"`
	MinYears *float64 `json:"min_years,omitempty"`
}

// Empty reports whether the query filters on nothing.
func (q Query) Empty() bool { return q.Skill == "" && q.MinYears == nil }

// ParseQuery takes the first vocabulary skill (in vocabulary order) that
// appears as a whole word, and the first "N years" figure.
func ParseQuery(question string) Query {
	lower := strings.ToLower(question)
	var q Query
	for _, s := range constants.KnownSkills {
		if skillPatterns[s].MatchString(lower) {
			q.Skill = s
			break
		}
	}
	if m := reMinYears.FindStringSubmatch(lower); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			q.MinYears = &f
		}
	}
	return q
}

// LooksLikeJobDescription reports whether text reads as a pasted job posting
// rather than a short question.
func LooksLikeJobDescription(text string) bool {
	if len([]rune(strings.TrimSpace(text))) >= jdMinChars {
		return true
	}
	lower := strings.ToLower(text)
	for _, k := range jdKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// Classifier turns a question into a Query, asking the model when one is
// configured and falling back to ParseQuery.
type Classifier struct {
	llm llm.Completer
	log *slog.Logger
}

func NewClassifier(completer llm.Completer, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{llm: completer, log: logger}
}

func (c *Classifier) Classify(ctx context.Context, question string) Query {
	if c == nil || c.llm == nil {
		return ParseQuery(question)
	}
	log := common.LoggerFromContext(ctx, c.log)
	q, err := c.classifyWithModel(ctx, question)
	if err != nil {
		log.Warn("search.classify.fallback", "code", common.ErrorCode(err), "error", err)
		return ParseQuery(question)
	}
	log.Debug("search.classify.ok", "skill", q.Skill, "min_years", q.MinYears)
	return q
}

func (c *Classifier) classifyWithModel(ctx context.Context, question string) (Query, error) {
	raw, err := c.llm.Complete(ctx, llm.Request{
		System: `You extract search filters from recruiter questions about resumes.
Return ONLY a JSON object: {"skill": string or null, "min_years": number or null}.
"skill" is one lowercase technology name. "min_years" is the minimum years of experience asked for.`,
		User:        question,
		Temperature: 0,
		MaxTokens:   classifyMaxTokens,
	})
	if err != nil {
		return Query{}, err
	}
	obj, err := llm.ParseObject(raw)
	if err != nil {
		return Query{}, err
	}

	var q Query
	switch v := obj["skill"].(type) {
	case nil:
	case string:
		q.Skill = strings.ToLower(strings.TrimSpace(v))
	default:
		return Query{}, common.MalformedModelOutput(fmt.Sprintf("skill has type %T", v), nil)
	}
	switch v := obj["min_years"].(type) {
	case nil:
	case float64:
		if v < 0 {
			return Query{}, common.MalformedModelOutput("min_years is negative", nil)
		}
		q.MinYears = &v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return Query{}, common.MalformedModelOutput("min_years is not a number", err)
		}
		q.MinYears = &f
	default:
		return Query{}, common.MalformedModelOutput(fmt.Sprintf("min_years has type %T", v), nil)
	}
	return q, nil
}
