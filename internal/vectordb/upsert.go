package vectordb

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/devinsight/devinsight/pkg/models"
)

// Upsert inserts or updates a single document. The point ID is the
// document's deterministic UUID, so repeats overwrite.
func (c *Client) Upsert(ctx context.Context, doc *models.IndexedDocument) error {
	return c.UpsertBatch(ctx, []*models.IndexedDocument{doc})
}

// UpsertBatch inserts or updates multiple documents atomically per point.
func (c *Client) UpsertBatch(ctx context.Context, docs []*models.IndexedDocument) error {
	points := make([]*qdrant.PointStruct, len(docs))
	for i, doc := range docs {
		if len(doc.Vector) != c.dimensions {
			return fmt.Errorf("document %s vector has %d dimensions, index wants %d",
				doc.DocID, len(doc.Vector), c.dimensions)
		}
		points[i] = documentToPoint(doc)
	}

	_, err := c.qdrant.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("batch upsert failed: %w", err)
	}
	return nil
}

// Delete removes a point by document ID.
func (c *Client) Delete(ctx context.Context, docID string) error {
	_, err := c.qdrant.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: c.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{qdrant.NewIDUUID(docID)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}
	return nil
}

// ContentHashes scrolls the collection and returns docID -> content
// hash for every stored document. The pipeline uses it to skip
// records whose content is unchanged.
func (c *Client) ContentHashes(ctx context.Context) (map[string]string, error) {
	hashes := make(map[string]string)

	var offset *qdrant.PointId
	for {
		points, nextOffset, err := c.qdrant.ScrollAndOffset(ctx, &qdrant.ScrollPoints{
			CollectionName: c.collection,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(500)),
			WithPayload:    qdrant.NewWithPayloadInclude("content_hash"),
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
		}
		if len(points) == 0 {
			break
		}

		for _, point := range points {
			id := point.GetId().GetUuid()
			if v := point.GetPayload()["content_hash"]; v != nil {
				hashes[id] = v.GetStringValue()
			}
		}

		if nextOffset == nil {
			break
		}
		offset = nextOffset
	}

	return hashes, nil
}

// documentToPoint converts an IndexedDocument to a Qdrant point
func documentToPoint(doc *models.IndexedDocument) *qdrant.PointStruct {
	labelValues := make([]*qdrant.Value, len(doc.Labels))
	for i, label := range doc.Labels {
		labelValues[i] = qdrant.NewValueString(label)
	}

	payload := map[string]*qdrant.Value{
		"record_id":         qdrant.NewValueInt(doc.RecordID),
		"number":            qdrant.NewValueInt(int64(doc.Number)),
		"title":             qdrant.NewValueString(doc.Title),
		"text":              qdrant.NewValueString(doc.Text),
		"state":             qdrant.NewValueString(doc.State),
		"repo_name":         qdrant.NewValueString(doc.RepoName),
		"creator":           qdrant.NewValueString(doc.Creator),
		"url":               qdrant.NewValueString(doc.URL),
		"contributor_login": qdrant.NewValueString(doc.ContributorLogin),
		"commit_count":      qdrant.NewValueInt(int64(doc.CommitCount)),
		"content_hash":      qdrant.NewValueString(doc.ContentHash),
		"created_at":        qdrant.NewValueString(doc.CreatedAt.UTC().Format(time.RFC3339)),
		"created_at_ts":     qdrant.NewValueInt(doc.CreatedAt.Unix()),
		"labels": {
			Kind: &qdrant.Value_ListValue{
				ListValue: &qdrant.ListValue{Values: labelValues},
			},
		},
	}
	if !doc.ClosedAt.IsZero() {
		payload["closed_at"] = qdrant.NewValueString(doc.ClosedAt.UTC().Format(time.RFC3339))
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(doc.DocID),
		Vectors: qdrant.NewVectors(doc.Vector...),
		Payload: payload,
	}
}
