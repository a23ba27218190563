package profile

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/common"
	"github.com/Ersuniltoadster/resume-filter-chatbot/internal/entity"
)

// Strategy is one named entry in a Chain.
type Strategy struct {
	Name    string
	Builder Builder
}

// Chain tries its strategies in order; the first success wins.
type Chain struct {
	strategies []Strategy
	log        *slog.Logger
}

// NewChain builds [model, heuristic] when model is non-nil, else [heuristic].
func NewChain(model Builder, logger *slog.Logger) *Chain {
	var s []Strategy
	if model != nil {
		s = append(s, Strategy{Name: "model", Builder: model})
	}
	s = append(s, Strategy{Name: "heuristic", Builder: NewHeuristicBuilder()})
	return NewChainOf(logger, s...)
}

// NewChainOf builds a chain from an explicit strategy list.
func NewChainOf(logger *slog.Logger, strategies ...Strategy) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{strategies: strategies, log: logger}
}

// Build returns the first successful profile and the strategy name that built it.
func (c *Chain) Build(ctx context.Context, fileID, text string) (*entity.ResumeProfile, string, error) {
	log := common.LoggerFromContext(ctx, c.log)
	var lastErr error
	for _, s := range c.strategies {
		p, err := buildRecovered(ctx, s, text)
		if err == nil && p != nil {
			return p, s.Name, nil
		}
		if err == nil {
			err = fmt.Errorf("%s builder returned no profile", s.Name)
		}
		log.Warn("profile.strategy.failed",
			"file_id", fileID,
			"strategy", s.Name,
			"code", common.ErrorCode(err),
			"error", err,
		)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no profile strategies configured")
	}
	return nil, "", lastErr
}

// buildRecovered turns a builder panic into an error so the next strategy runs.
func buildRecovered(ctx context.Context, s Strategy, text string) (p *entity.ResumeProfile, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("%s builder panicked: %v", s.Name, r)
		}
	}()
	return s.Builder.Build(ctx, text)
}
