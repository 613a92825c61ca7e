package vectordb

import (
	"sort"

	"github.com/devinsight/devinsight/pkg/models"
)

// fuse combines the two retrieval legs with Reciprocal Rank Fusion:
// score = Σ weight/(k + rank) over the legs a document appears in.
// Rank-based fusion avoids normalizing incomparable raw scores.
// Ordering is fused score descending, then created_at descending for
// a deterministic tie-break.
func fuse(params FusionParams, vectorLeg, keywordLeg []models.IndexedDocument) []models.RetrievalCandidate {
	scores := make(map[string]float64)
	docs := make(map[string]models.IndexedDocument)

	for rank, doc := range vectorLeg {
		scores[doc.DocID] += params.VectorWeight / float64(params.RRFK+rank+1)
		docs[doc.DocID] = doc
	}

	keywordWeight := 1.0 - params.VectorWeight
	for rank, doc := range keywordLeg {
		scores[doc.DocID] += keywordWeight / float64(params.RRFK+rank+1)
		if _, exists := docs[doc.DocID]; !exists {
			docs[doc.DocID] = doc
		}
	}

	fused := make([]models.RetrievalCandidate, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, models.RetrievalCandidate{
			Document: docs[id],
			Score:    score,
		})
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		if !fused[i].Document.CreatedAt.Equal(fused[j].Document.CreatedAt) {
			return fused[i].Document.CreatedAt.After(fused[j].Document.CreatedAt)
		}
		return fused[i].Document.DocID < fused[j].Document.DocID
	})

	return fused
}
