package vectordb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"

	"github.com/devinsight/devinsight/internal/config"
)

// ErrRetrievalUnavailable marks search failures caused by the index
// being unreachable. Callers check it with errors.Is; it is never
// masked as an empty result set.
var ErrRetrievalUnavailable = errors.New("vector index unavailable")

// ErrDimensionMismatch is returned when an existing collection was
// built with a different vector width. The only fix is a full rebuild.
var ErrDimensionMismatch = errors.New("collection dimension mismatch: full re-index required")

// Client wraps Qdrant operations for one collection.
type Client struct {
	qdrant     *qdrant.Client
	collection string
	dimensions int
	fusion     FusionParams
	logger     *zap.Logger
}

// FusionParams controls hybrid-search score fusion.
type FusionParams struct {
	RRFK         int     // reciprocal rank constant, typically 60
	VectorWeight float64 // weight of the vector leg, remainder to keyword leg
}

// NewClient creates a new Qdrant-backed index client.
func NewClient(cfg *config.QdrantConfig, dimensions int, fusion FusionParams, logger *zap.Logger) (*Client, error) {
	host, port := parseHostPort(cfg.URL)

	// cloud.qdrant.io endpoints require TLS
	useTLS := strings.Contains(host, "qdrant.io") || strings.Contains(host, "qdrant.cloud")

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	if fusion.RRFK <= 0 {
		fusion.RRFK = 60
	}
	if fusion.VectorWeight <= 0 || fusion.VectorWeight > 1 {
		fusion.VectorWeight = 0.5
	}

	return &Client{
		qdrant:     client,
		collection: cfg.Collection,
		dimensions: dimensions,
		fusion:     fusion,
		logger:     logger,
	}, nil
}

// parseHostPort extracts host and port from URL string
func parseHostPort(url string) (string, int) {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")

	if idx := strings.LastIndex(url, ":"); idx != -1 {
		host := url[:idx]
		var port int
		_, _ = fmt.Sscanf(url[idx+1:], "%d", &port)
		if port == 0 {
			port = 6334
		}
		return host, port
	}

	return url, 6334
}

// Collection returns the collection name this client operates on.
func (c *Client) Collection() string {
	return c.collection
}

// Close closes the connection
func (c *Client) Close() error {
	if c.qdrant != nil {
		return c.qdrant.Close()
	}
	return nil
}
