package vectordb

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/devinsight/devinsight/pkg/models"
)

// Search runs hybrid retrieval: a dense-vector leg and a keyword leg
// (vector search restricted to full-text matches on the stored text),
// fused with reciprocal rank fusion. Filters run inside the index so
// k stays meaningful. Ties on fused score break by recency.
func (c *Client) Search(ctx context.Context, vector []float32, queryText string, k int, f models.Filters) ([]models.RetrievalCandidate, error) {
	if k <= 0 {
		k = 10
	}
	baseFilter := buildFilter(f)

	// Over-fetch per leg so fusion has something to rank.
	candidateK := k * 2
	if candidateK < 20 {
		candidateK = 20
	}

	vectorLeg, err := c.queryLeg(ctx, vector, candidateK, baseFilter)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}

	var keywordLeg []models.IndexedDocument
	if queryText != "" {
		keywordLeg, err = c.queryLeg(ctx, vector, candidateK, withTextMatch(baseFilter, queryText))
		if err != nil {
			// The vector leg already answered, so degrade instead of
			// failing the whole search.
			c.logger.Warn("keyword leg failed, using vector results only", zap.Error(err))
			keywordLeg = nil
		}
	}

	fused := fuse(c.fusion, vectorLeg, keywordLeg)
	if len(fused) > k {
		fused = fused[:k]
	}
	for i := range fused {
		fused[i].Rank = i + 1
	}
	return fused, nil
}

// queryLeg runs one kNN query and returns documents in rank order.
func (c *Client) queryLeg(ctx context.Context, vector []float32, limit int, filter *qdrant.Filter) ([]models.IndexedDocument, error) {
	points, err := c.qdrant.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         filter,
	})
	if err != nil {
		return nil, err
	}

	docs := make([]models.IndexedDocument, 0, len(points))
	for _, point := range points {
		doc := payloadToDocument(point.GetPayload())
		doc.DocID = point.GetId().GetUuid()
		docs = append(docs, doc)
	}
	return docs, nil
}

// buildFilter translates Filters into index-side conditions.
func buildFilter(f models.Filters) *qdrant.Filter {
	if f.IsZero() {
		return nil
	}

	var must []*qdrant.Condition
	if f.State != "" {
		must = append(must, qdrant.NewMatchKeyword("state", f.State))
	}
	if f.RepoName != "" {
		must = append(must, qdrant.NewMatchKeyword("repo_name", f.RepoName))
	}
	if f.Contributor != "" {
		must = append(must, qdrant.NewMatchKeyword("contributor_login", f.Contributor))
	}
	if !f.CreatedAfter.IsZero() || !f.CreatedBefore.IsZero() {
		r := &qdrant.Range{}
		if !f.CreatedAfter.IsZero() {
			r.Gte = qdrant.PtrOf(float64(f.CreatedAfter.Unix()))
		}
		if !f.CreatedBefore.IsZero() {
			r.Lte = qdrant.PtrOf(float64(f.CreatedBefore.Unix()))
		}
		must = append(must, qdrant.NewRange("created_at_ts", r))
	}

	return &qdrant.Filter{Must: must}
}

// withTextMatch adds a full-text condition to a copy of filter.
func withTextMatch(filter *qdrant.Filter, queryText string) *qdrant.Filter {
	out := &qdrant.Filter{}
	if filter != nil {
		out.Must = append(out.Must, filter.Must...)
		out.MustNot = filter.MustNot
		out.Should = filter.Should
	}
	out.Must = append(out.Must, qdrant.NewMatchText("text", queryText))
	return out
}

// payloadToDocument converts a Qdrant payload back to a document.
func payloadToDocument(payload map[string]*qdrant.Value) models.IndexedDocument {
	doc := models.IndexedDocument{}

	if v := payload["record_id"]; v != nil {
		doc.RecordID = v.GetIntegerValue()
	}
	if v := payload["number"]; v != nil {
		doc.Number = int(v.GetIntegerValue())
	}
	if v := payload["title"]; v != nil {
		doc.Title = v.GetStringValue()
	}
	if v := payload["text"]; v != nil {
		doc.Text = v.GetStringValue()
	}
	if v := payload["state"]; v != nil {
		doc.State = v.GetStringValue()
	}
	if v := payload["repo_name"]; v != nil {
		doc.RepoName = v.GetStringValue()
	}
	if v := payload["creator"]; v != nil {
		doc.Creator = v.GetStringValue()
	}
	if v := payload["url"]; v != nil {
		doc.URL = v.GetStringValue()
	}
	if v := payload["contributor_login"]; v != nil {
		doc.ContributorLogin = v.GetStringValue()
	}
	if v := payload["commit_count"]; v != nil {
		doc.CommitCount = int(v.GetIntegerValue())
	}
	if v := payload["content_hash"]; v != nil {
		doc.ContentHash = v.GetStringValue()
	}
	if v := payload["created_at"]; v != nil {
		doc.CreatedAt, _ = time.Parse(time.RFC3339, v.GetStringValue())
	}
	if v := payload["closed_at"]; v != nil {
		doc.ClosedAt, _ = time.Parse(time.RFC3339, v.GetStringValue())
	}
	if v := payload["labels"]; v != nil {
		if list := v.GetListValue(); list != nil {
			for _, item := range list.Values {
				doc.Labels = append(doc.Labels, item.GetStringValue())
			}
		}
	}

	return doc
}
