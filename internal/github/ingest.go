package github

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/devinsight/devinsight/internal/recordstore"
	"github.com/devinsight/devinsight/pkg/models"
)

// Fetcher is the read surface of the GitHub client the ingestor uses.
type Fetcher interface {
	ListAllIssues(ctx context.Context, fullRepo string, since time.Time, pageSize int) ([]models.Record, error)
	ListContributors(ctx context.Context, fullRepo string) ([]Contributor, error)
}

// Ingestor pulls issue activity from GitHub, enriches it with
// contributor commit totals, and loads it into the warehouse.
type Ingestor struct {
	client   Fetcher
	store    recordstore.Store
	pageSize int
	logger   *zap.Logger
}

// NewIngestor creates an Ingestor writing to store.
func NewIngestor(client Fetcher, store recordstore.Store, pageSize int, logger *zap.Logger) *Ingestor {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Ingestor{
		client:   client,
		store:    store,
		pageSize: pageSize,
		logger:   logger,
	}
}

// IngestRepo loads one repository's issues into the warehouse and
// returns the number of records written.
func (in *Ingestor) IngestRepo(ctx context.Context, fullRepo string, since time.Time) (int, error) {
	if _, _, err := ParseRepo(fullRepo); err != nil {
		return 0, err
	}

	records, err := in.client.ListAllIssues(ctx, fullRepo, since, in.pageSize)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch issues for %s: %w", fullRepo, err)
	}
	in.logger.Info("issues fetched",
		zap.String("repo", fullRepo),
		zap.Int("count", len(records)))

	contributors, err := in.client.ListContributors(ctx, fullRepo)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch contributors for %s: %w", fullRepo, err)
	}

	records = MergeContributorStats(records, contributors)

	if err := in.store.InsertRecords(ctx, records); err != nil {
		return 0, fmt.Errorf("failed to load records for %s: %w", fullRepo, err)
	}
	return len(records), nil
}

// IngestAll loads every configured repository. A failing repo aborts
// the run; partial loads stay in the warehouse and are safe to retry.
func (in *Ingestor) IngestAll(ctx context.Context, repos []string, since time.Time) (int, error) {
	total := 0
	for _, repo := range repos {
		n, err := in.IngestRepo(ctx, repo, since)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
