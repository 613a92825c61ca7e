package retriever

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/devinsight/devinsight/internal/vectordb"
	"github.com/devinsight/devinsight/pkg/models"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 0}, nil
}

type fakeIndex struct {
	hits []models.RetrievalCandidate
	err  error
}

func (f *fakeIndex) Search(ctx context.Context, vector []float32, queryText string, k int, filters models.Filters) ([]models.RetrievalCandidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func cand(docID string, recordID int64, score float64) models.RetrievalCandidate {
	return models.RetrievalCandidate{
		Document: models.IndexedDocument{DocID: docID, RecordID: recordID, CreatedAt: time.Now()},
		Score:    score,
	}
}

func TestRetrieve_DeduplicatesByRecord(t *testing.T) {
	// Two chunks of record 1; only the higher-scoring chunk survives.
	index := &fakeIndex{hits: []models.RetrievalCandidate{
		cand("doc-1a", 1, 0.9),
		cand("doc-2", 2, 0.8),
		cand("doc-1b", 1, 0.7),
	}}
	r := New(fakeEmbedder{}, index, 0, zap.NewNop())

	got, err := r.Retrieve(context.Background(), "build failures", 10, models.Filters{})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "doc-1a", got[0].Document.DocID)
	assert.Equal(t, "doc-2", got[1].Document.DocID)
}

func TestRetrieve_AppliesMinScoreFloor(t *testing.T) {
	index := &fakeIndex{hits: []models.RetrievalCandidate{
		cand("doc-1", 1, 0.9),
		cand("doc-2", 2, 0.001),
	}}
	r := New(fakeEmbedder{}, index, 0.01, zap.NewNop())

	got, err := r.Retrieve(context.Background(), "anything", 10, models.Filters{})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "doc-1", got[0].Document.DocID)
}

func TestRetrieve_EmptyIsNotAnError(t *testing.T) {
	r := New(fakeEmbedder{}, &fakeIndex{}, 0.01, zap.NewNop())

	got, err := r.Retrieve(context.Background(), "nothing matches", 10, models.Filters{})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRetrieve_PropagatesUnavailable(t *testing.T) {
	index := &fakeIndex{err: vectordb.ErrRetrievalUnavailable}
	r := New(fakeEmbedder{}, index, 0, zap.NewNop())

	_, err := r.Retrieve(context.Background(), "anything", 10, models.Filters{})
	require.ErrorIs(t, err, vectordb.ErrRetrievalUnavailable)
}

func TestRetrieve_TrimsAndRanks(t *testing.T) {
	index := &fakeIndex{hits: []models.RetrievalCandidate{
		cand("doc-1", 1, 0.9),
		cand("doc-2", 2, 0.8),
		cand("doc-3", 3, 0.7),
	}}
	r := New(fakeEmbedder{}, index, 0, zap.NewNop())

	got, err := r.Retrieve(context.Background(), "anything", 2, models.Filters{})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, 2, got[1].Rank)
}
