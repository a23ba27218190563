package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/entity"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/llm"
)

// ModelBuilder asks a chat model for the profile, validates the answer and
// expands a short summary once.
type ModelBuilder struct {
	llm    llm.Completer
	schema *jsonschema.Schema
	log    *slog.Logger
}

func NewModelBuilder(completer llm.Completer, logger *slog.Logger) (*ModelBuilder, error) {
	if completer == nil {
		return nil, fmt.Errorf("model builder: completer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	schema, err := llm.CompileSchema(llm.BuildProfileJSONSchema())
	if err != nil {
		return nil, fmt.Errorf("model builder: %w", err)
	}
	return &ModelBuilder{llm: completer, schema: schema, log: logger}, nil
}

func (b *ModelBuilder) Build(ctx context.Context, text string) (*entity.ResumeProfile, error) {
	log := common.LoggerFromContext(ctx, b.log)
	start := time.Now()
	text = llm.CapInput(text)

	log.Info("llm.profile.start", "text_len", len(text))

	raw, err := b.llm.Complete(ctx, llm.BuildProfileRequest(text))
	if err != nil {
		return nil, fmt.Errorf("profile completion: %w", err)
	}

	obj, err := llm.ParseObject(raw)
	if err != nil {
		return nil, err
	}
	llm.SanitizeProfileFields(obj, log)
	if err := b.schema.Validate(obj); err != nil {
		return nil, common.MalformedModelOutput("profile does not match schema", err)
	}

	p, err := decodeProfile(obj)
	if err != nil {
		return nil, err
	}

	if WordCount(p.OverallSummary) < SummaryMinWords {
		if expanded, ok := b.expandSummary(ctx, log, text, p.OverallSummary); ok {
			p.OverallSummary = expanded
		}
	}
	p.OverallSummary = FirstNWords(p.OverallSummary, SummaryMaxWords)

	log.Info("llm.profile.ok",
		"skills", len(p.Skills),
		"summary_words", WordCount(p.OverallSummary),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return normalizeProfile(p), nil
}

// expandSummary makes exactly one expansion call. Failures are logged and
// reported as ok=false so the caller keeps the current summary.
func (b *ModelBuilder) expandSummary(ctx context.Context, log *slog.Logger, text, current string) (string, bool) {
	log.Info("llm.profile.expand", "summary_words", WordCount(current))

	raw, err := b.llm.Complete(ctx, llm.BuildExpansionRequest(text, current))
	if err != nil {
		log.Warn("llm.profile.expand_failed", "error", err)
		return "", false
	}
	obj, err := llm.ParseObject(raw)
	if err != nil {
		log.Warn("llm.profile.expand_failed", "error", err)
		return "", false
	}
	s, ok := obj["overall_summary"].(string)
	if !ok || strings.TrimSpace(s) == "" {
		log.Warn("llm.profile.expand_failed", "error", "no overall_summary string")
		return "", false
	}
	return strings.TrimSpace(s), true
}

func decodeProfile(obj map[string]any) (*entity.ResumeProfile, error) {
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, common.MalformedModelOutput("re-encode profile", err)
	}
	var p entity.ResumeProfile
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, common.MalformedModelOutput("decode profile", err)
	}
	p.ClearEmbedding()
	return &p, nil
}
