package vectordb

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
)

// EnsureCollection creates the collection if it doesn't exist. An
// existing collection with a different vector width is rejected: the
// embedding dimension is a persisted contract of the index.
func (c *Client) EnsureCollection(ctx context.Context) error {
	exists, err := c.qdrant.CollectionExists(ctx, c.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}

	if exists {
		info, err := c.qdrant.GetCollectionInfo(ctx, c.collection)
		if err != nil {
			return fmt.Errorf("failed to inspect collection: %w", err)
		}
		if params := info.GetConfig().GetParams().GetVectorsConfig().GetParams(); params != nil {
			if int(params.GetSize()) != c.dimensions {
				return fmt.Errorf("%w: collection has %d, config wants %d",
					ErrDimensionMismatch, params.GetSize(), c.dimensions)
			}
		}
		return nil
	}

	err = c.qdrant.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(c.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	// Payload indexes so filters run inside the index instead of
	// post-hoc over candidates.
	indexes := []struct {
		field     string
		fieldType qdrant.FieldType
	}{
		{"state", qdrant.FieldType_FieldTypeKeyword},
		{"repo_name", qdrant.FieldType_FieldTypeKeyword},
		{"contributor_login", qdrant.FieldType_FieldTypeKeyword},
		{"record_id", qdrant.FieldType_FieldTypeInteger},
		{"created_at_ts", qdrant.FieldType_FieldTypeInteger},
		{"text", qdrant.FieldType_FieldTypeText},
	}

	for _, idx := range indexes {
		_, err = c.qdrant.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: c.collection,
			FieldName:      idx.field,
			FieldType:      qdrant.PtrOf(idx.fieldType),
		})
		if err != nil {
			// Index creation failure is not fatal
			c.logger.Warn("failed to create payload index",
				zap.String("field", idx.field), zap.Error(err))
		}
	}

	return nil
}

// DeleteCollection removes the collection; used by full rebuilds.
func (c *Client) DeleteCollection(ctx context.Context) error {
	return c.qdrant.DeleteCollection(ctx, c.collection)
}

// Count returns the exact number of indexed documents.
func (c *Client) Count(ctx context.Context) (uint64, error) {
	n, err := c.qdrant.Count(ctx, &qdrant.CountPoints{
		CollectionName: c.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}
	return n, nil
}
