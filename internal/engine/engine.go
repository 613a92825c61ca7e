package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/devinsight/devinsight/pkg/models"
)

// Retriever produces ranked candidates for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int, f models.Filters) ([]models.RetrievalCandidate, error)
}

// Synthesizer turns candidates into a grounded answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, candidates []models.RetrievalCandidate) (models.AnswerResult, error)
}

// Engine is the query-side facade: one call from question to cited
// answer.
type Engine struct {
	retriever   Retriever
	synthesizer Synthesizer
	topK        int
	logger      *zap.Logger
}

// New creates an Engine answering with at most topK sources.
func New(retriever Retriever, synthesizer Synthesizer, topK int, logger *zap.Logger) *Engine {
	if topK <= 0 {
		topK = 10
	}
	return &Engine{
		retriever:   retriever,
		synthesizer: synthesizer,
		topK:        topK,
		logger:      logger,
	}
}

// Answer retrieves candidates for query and synthesizes a grounded
// response. Retrieval and generation failures pass through unwrapped
// so callers can match the sentinel errors.
func (e *Engine) Answer(ctx context.Context, query string, f models.Filters) (models.AnswerResult, error) {
	start := time.Now()

	candidates, err := e.retriever.Retrieve(ctx, query, e.topK, f)
	if err != nil {
		return models.AnswerResult{}, err
	}

	result, err := e.synthesizer.Synthesize(ctx, query, candidates)
	if err != nil {
		return models.AnswerResult{}, err
	}

	e.logger.Info("query answered",
		zap.Int("candidates", len(candidates)),
		zap.Int("sources", result.NumSources),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}
