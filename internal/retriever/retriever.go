package retriever

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/devinsight/devinsight/pkg/models"
)

// Embedder embeds a single query text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Index is the hybrid search surface of the vector index.
type Index interface {
	Search(ctx context.Context, vector []float32, queryText string, k int, f models.Filters) ([]models.RetrievalCandidate, error)
}

// Retriever turns a query string into a ranked, deduplicated set of
// candidates. An empty result is a valid outcome, distinct from a
// retrieval failure.
type Retriever struct {
	embedder Embedder
	index    Index
	minScore float64
	logger   *zap.Logger
}

// New creates a retriever. Candidates scoring under minScore are
// dropped.
func New(embedder Embedder, index Index, minScore float64, logger *zap.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		minScore: minScore,
		logger:   logger,
	}
}

// Retrieve embeds the query, searches the index, and post-processes
// the hits: one candidate per logical record (best chunk wins), floor
// on relevance, ranks reassigned.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, f models.Filters) ([]models.RetrievalCandidate, error) {
	if topK <= 0 {
		topK = 10
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	// Over-fetch so deduplication doesn't shrink the result below topK.
	hits, err := r.index.Search(ctx, vector, query, topK*2, f)
	if err != nil {
		return nil, err
	}

	candidates := dedupe(hits)

	kept := candidates[:0]
	for _, c := range candidates {
		if c.Score >= r.minScore {
			kept = append(kept, c)
		}
	}

	if len(kept) > topK {
		kept = kept[:topK]
	}
	for i := range kept {
		kept[i].Rank = i + 1
	}

	r.logger.Debug("retrieval complete",
		zap.String("query", query),
		zap.Int("hits", len(hits)),
		zap.Int("candidates", len(kept)))

	return kept, nil
}

// dedupe keeps only the best-scoring chunk per record. Input is in
// score order, so the first occurrence wins.
func dedupe(hits []models.RetrievalCandidate) []models.RetrievalCandidate {
	seen := make(map[int64]bool, len(hits))
	out := make([]models.RetrievalCandidate, 0, len(hits))
	for _, hit := range hits {
		if seen[hit.Document.RecordID] {
			continue
		}
		seen[hit.Document.RecordID] = true
		out = append(out, hit)
	}
	return out
}
