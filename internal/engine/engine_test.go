package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devinsight/devinsight/internal/synthesizer"
	"github.com/devinsight/devinsight/internal/vectordb"
	"github.com/devinsight/devinsight/pkg/models"
)

type fakeRetriever struct {
	candidates []models.RetrievalCandidate
	err        error
	gotTopK    int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ string, topK int, _ models.Filters) ([]models.RetrievalCandidate, error) {
	f.gotTopK = topK
	return f.candidates, f.err
}

type fakeSynthesizer struct {
	result models.AnswerResult
	err    error
	calls  int
	got    []models.RetrievalCandidate
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _ string, candidates []models.RetrievalCandidate) (models.AnswerResult, error) {
	f.calls++
	f.got = candidates
	if f.err != nil {
		return models.AnswerResult{}, f.err
	}
	if len(candidates) == 0 {
		return models.NoDataResult(), nil
	}
	return f.result, nil
}

func TestAnswer_PassesCandidatesThrough(t *testing.T) {
	candidates := []models.RetrievalCandidate{
		{Document: models.IndexedDocument{RecordID: 7, Title: "broken build"}, Score: 0.9, Rank: 1},
	}
	ret := &fakeRetriever{candidates: candidates}
	syn := &fakeSynthesizer{result: models.AnswerResult{
		Answer:     "the build broke on tuesday",
		Sources:    []models.SourceRef{{RecordID: 7}},
		NumSources: 1,
	}}

	e := New(ret, syn, 5, zap.NewNop())
	result, err := e.Answer(context.Background(), "why did the build break?", models.Filters{})
	require.NoError(t, err)

	assert.Equal(t, "the build broke on tuesday", result.Answer)
	assert.Equal(t, 1, result.NumSources)
	assert.Equal(t, 5, ret.gotTopK)
	assert.Equal(t, candidates, syn.got)
}

func TestAnswer_EmptyIndexYieldsNoDataResult(t *testing.T) {
	ret := &fakeRetriever{}
	syn := &fakeSynthesizer{}

	e := New(ret, syn, 10, zap.NewNop())
	result, err := e.Answer(context.Background(), "anything at all", models.Filters{})
	require.NoError(t, err)

	assert.Equal(t, models.NoDataAnswer, result.Answer)
	assert.Zero(t, result.NumSources)
	assert.Equal(t, 1, syn.calls, "synthesizer decides the no-data path")
}

func TestAnswer_RetrievalSentinelPassesThrough(t *testing.T) {
	ret := &fakeRetriever{err: vectordb.ErrRetrievalUnavailable}
	syn := &fakeSynthesizer{}

	e := New(ret, syn, 10, zap.NewNop())
	_, err := e.Answer(context.Background(), "q", models.Filters{})
	assert.ErrorIs(t, err, vectordb.ErrRetrievalUnavailable)
	assert.Zero(t, syn.calls)
}

func TestAnswer_GenerationSentinelPassesThrough(t *testing.T) {
	ret := &fakeRetriever{candidates: []models.RetrievalCandidate{
		{Document: models.IndexedDocument{RecordID: 1, CreatedAt: time.Now()}, Score: 0.5, Rank: 1},
	}}
	syn := &fakeSynthesizer{err: synthesizer.ErrGenerationUnavailable}

	e := New(ret, syn, 10, zap.NewNop())
	_, err := e.Answer(context.Background(), "q", models.Filters{})
	assert.ErrorIs(t, err, synthesizer.ErrGenerationUnavailable)
}

func TestAnswer_WrappedSentinelStillMatches(t *testing.T) {
	ret := &fakeRetriever{err: errors.Join(errors.New("qdrant: connection refused"), vectordb.ErrRetrievalUnavailable)}
	e := New(ret, &fakeSynthesizer{}, 10, zap.NewNop())

	_, err := e.Answer(context.Background(), "q", models.Filters{})
	assert.ErrorIs(t, err, vectordb.ErrRetrievalUnavailable)
}
