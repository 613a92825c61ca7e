package recordstore

import (
	"context"
	"time"

	"github.com/devinsight/devinsight/pkg/models"
)

// Store is the warehouse interface consumed by the indexing pipeline
// and the reporting endpoints. Implementations: BigQuery (production)
// and Memory (tests, local runs).
type Store interface {
	// FetchRecords returns records updated at or after since. A zero
	// since returns everything.
	FetchRecords(ctx context.Context, since time.Time) ([]models.Record, error)

	// InsertRecords appends records to the warehouse.
	InsertRecords(ctx context.Context, records []models.Record) error

	// AggregateStats computes the reporting rollup.
	AggregateStats(ctx context.Context, f StatsFilters) (Stats, error)

	// RecentRecords returns the newest records by creation time.
	RecentRecords(ctx context.Context, limit int) ([]models.Record, error)

	Close() error
}

// StatsFilters restricts the aggregate rollup.
type StatsFilters struct {
	RepoName string
	Since    time.Time
}

// ContributorStat is one row of the top-contributors rollup.
type ContributorStat struct {
	Name    string `json:"name"`
	Commits int    `json:"commits"`
}

// Blocker is an open issue surfaced in the report.
type Blocker struct {
	Title     string    `json:"title"`
	RepoName  string    `json:"repo_name"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

// Stats is the aggregate reporting rollup.
type Stats struct {
	OpenCount          int               `json:"open"`
	ClosedCount        int               `json:"closed"`
	AvgResolutionHours float64           `json:"avg_resolution_hrs"`
	TopContributors    []ContributorStat `json:"contributors"`
	Blockers           []Blocker         `json:"blockers"`
}
