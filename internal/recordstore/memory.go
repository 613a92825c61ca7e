package recordstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/devinsight/devinsight/pkg/models"
)

// MemoryStore is an in-memory Store for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[int64]models.Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[int64]models.Record)}
}

// FetchRecords returns records updated at or after since, oldest first.
func (s *MemoryStore) FetchRecords(ctx context.Context, since time.Time) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Record
	for _, rec := range s.records {
		if since.IsZero() || !rec.UpdatedAt.Before(since) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// InsertRecords stores records, overwriting by ID.
func (s *MemoryStore) InsertRecords(ctx context.Context, records []models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.records[rec.ID] = rec
	}
	return nil
}

// AggregateStats computes the reporting rollup over the stored records.
func (s *MemoryStore) AggregateStats(ctx context.Context, f StatsFilters) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats Stats
	var resolutionSum float64
	var resolved int
	commits := make(map[string]int)

	for _, rec := range s.records {
		if f.RepoName != "" && rec.RepoName != f.RepoName {
			continue
		}
		if !f.Since.IsZero() && rec.CreatedAt.Before(f.Since) {
			continue
		}

		switch rec.State {
		case "open":
			stats.OpenCount++
			stats.Blockers = append(stats.Blockers, Blocker{
				Title:     rec.Title,
				RepoName:  rec.RepoName,
				State:     rec.State,
				CreatedAt: rec.CreatedAt,
			})
		case "closed":
			stats.ClosedCount++
			if rec.ClosedAt != nil {
				resolutionSum += rec.ClosedAt.Sub(rec.CreatedAt).Hours()
				resolved++
			}
		}

		if rec.ContributorLogin != "" && rec.CommitCount > commits[rec.ContributorLogin] {
			commits[rec.ContributorLogin] = rec.CommitCount
		}
	}

	if resolved > 0 {
		stats.AvgResolutionHours = resolutionSum / float64(resolved)
	}

	for name, count := range commits {
		stats.TopContributors = append(stats.TopContributors, ContributorStat{Name: name, Commits: count})
	}
	sort.Slice(stats.TopContributors, func(i, j int) bool {
		return stats.TopContributors[i].Commits > stats.TopContributors[j].Commits
	})
	if len(stats.TopContributors) > 5 {
		stats.TopContributors = stats.TopContributors[:5]
	}

	sort.Slice(stats.Blockers, func(i, j int) bool {
		return stats.Blockers[i].CreatedAt.After(stats.Blockers[j].CreatedAt)
	})
	if len(stats.Blockers) > 5 {
		stats.Blockers = stats.Blockers[:5]
	}

	return stats, nil
}

// RecentRecords returns the newest records by creation time.
func (s *MemoryStore) RecentRecords(ctx context.Context, limit int) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	out := make([]models.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}
