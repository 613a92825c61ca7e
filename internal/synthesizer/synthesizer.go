package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devinsight/devinsight/internal/llm"
	"github.com/devinsight/devinsight/internal/retry"
	"github.com/devinsight/devinsight/pkg/models"
)

// ErrGenerationUnavailable is returned when the generative model cannot
// produce an answer after retries.
var ErrGenerationUnavailable = errors.New("answer generation unavailable")

// Synthesizer turns retrieved candidates into a grounded natural language
// answer with cited sources.
type Synthesizer struct {
	provider llm.Provider
	budget   int
	policy   retry.Policy
	logger   *zap.Logger
	now      func() time.Time
}

// New creates a Synthesizer. budget is the context character budget used
// to bound how many candidates enter the prompt.
func New(provider llm.Provider, budget int, policy retry.Policy, logger *zap.Logger) *Synthesizer {
	if budget <= 0 {
		budget = 12000
	}
	return &Synthesizer{
		provider: provider,
		budget:   budget,
		policy:   policy,
		logger:   logger,
		now:      time.Now,
	}
}

// Synthesize generates an answer for query grounded in candidates. Empty
// candidates short-circuit to the canned no-data result without calling
// the model.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, candidates []models.RetrievalCandidate) (models.AnswerResult, error) {
	if len(candidates) == 0 {
		return models.NoDataResult(), nil
	}

	contextBlock, used := s.buildContext(candidates)
	prompt := renderPrompt(s.now(), contextBlock, query)

	var raw string
	err := s.policy.Do(ctx, func() error {
		var callErr error
		raw, callErr = s.provider.Complete(ctx, systemInstruction, prompt)
		if callErr != nil {
			s.logger.Warn("generation attempt failed", zap.Error(callErr))
		}
		return callErr
	})
	if err != nil {
		return models.AnswerResult{}, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	answer := strings.TrimSpace(raw)
	if answer == "" {
		return models.AnswerResult{}, fmt.Errorf("%w: model returned empty answer", ErrGenerationUnavailable)
	}

	sources := make([]models.SourceRef, 0, len(used))
	for _, c := range used {
		sources = append(sources, models.SourceFromCandidate(c))
	}

	return models.AnswerResult{
		Answer:     answer,
		Sources:    sources,
		NumSources: len(sources),
	}, nil
}

// buildContext renders candidates in rank order until the character budget
// is reached. Candidates that do not fit are dropped and excluded from the
// cited sources.
func (s *Synthesizer) buildContext(candidates []models.RetrievalCandidate) (string, []models.RetrievalCandidate) {
	var b strings.Builder
	used := make([]models.RetrievalCandidate, 0, len(candidates))

	for _, c := range candidates {
		block := formatCandidate(c)
		if b.Len() > 0 && b.Len()+len(block)+1 > s.budget {
			s.logger.Debug("context budget reached",
				zap.Int("included", len(used)),
				zap.Int("dropped", len(candidates)-len(used)))
			break
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(block)
		used = append(used, c)
	}
	return b.String(), used
}
