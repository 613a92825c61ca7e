package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devinsight/devinsight/internal/retriever"
	"github.com/devinsight/devinsight/internal/retry"
	"github.com/devinsight/devinsight/internal/synthesizer"
	"github.com/devinsight/devinsight/pkg/models"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

type stubIndex struct {
	hits []models.RetrievalCandidate
}

func (s *stubIndex) Search(context.Context, []float32, string, int, models.Filters) ([]models.RetrievalCandidate, error) {
	return s.hits, nil
}

type stubLLM struct {
	calls int
}

func (s *stubLLM) Complete(_ context.Context, _, _ string) (string, error) {
	s.calls++
	return "the CI build issue was reported twice and is still open", nil
}

func (s *stubLLM) Close() error { return nil }

func newTestEngine(index *stubIndex, llm *stubLLM) *Engine {
	logger := zap.NewNop()
	ret := retriever.New(stubEmbedder{}, index, 0.01, logger)
	syn := synthesizer.New(llm, 12000, retry.DefaultPolicy(), logger)
	return New(ret, syn, 10, logger)
}

// Two index entries for the same record (duplicate chunk text) must
// collapse into one cited source.
func TestAnswer_DuplicateRecordYieldsSingleSource(t *testing.T) {
	doc := func(docID string, score float64, state string, created time.Time) models.RetrievalCandidate {
		return models.RetrievalCandidate{
			Document: models.IndexedDocument{
				DocID:     docID,
				RecordID:  42,
				Title:     "Build fails on CI",
				Text:      "Build fails on CI",
				State:     state,
				RepoName:  "acme/widgets",
				CreatedAt: created,
			},
			Score: score,
		}
	}

	index := &stubIndex{hits: []models.RetrievalCandidate{
		doc("chunk-a", 0.92, "open", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)),
		doc("chunk-b", 0.87, "closed", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)),
	}}
	llm := &stubLLM{}

	e := newTestEngine(index, llm)
	result, err := e.Answer(context.Background(), "build failures", models.Filters{})
	require.NoError(t, err)

	require.Len(t, result.Sources, 1)
	assert.Equal(t, 1, result.NumSources)
	assert.Equal(t, int64(42), result.Sources[0].RecordID)
	assert.Equal(t, "open", result.Sources[0].State, "higher-scoring chunk wins")
	assert.Equal(t, 1, llm.calls)
}

// An empty index produces the canned no-data result and never reaches
// the generative model.
func TestAnswer_EmptyIndexEndToEnd(t *testing.T) {
	llm := &stubLLM{}
	e := newTestEngine(&stubIndex{}, llm)

	result, err := e.Answer(context.Background(), "anything", models.Filters{})
	require.NoError(t, err)

	assert.Equal(t, "no data found", result.Answer)
	assert.Empty(t, result.Sources)
	assert.Zero(t, result.NumSources)
	assert.Zero(t, llm.calls)
}
