package recordstore

import (
	"context"
	"testing"
	"time"

	"github.com/devinsight/devinsight/pkg/models"
)

func seedStore(t *testing.T) *MemoryStore {
	t.Helper()
	store := NewMemoryStore()

	base := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	closed := base.Add(48 * time.Hour)

	records := []models.Record{
		{
			ID: 1, Title: "flaky test on arm64", State: "open", RepoName: "octo/demo",
			ContributorLogin: "alice", CommitCount: 120,
			CreatedAt: base, UpdatedAt: base,
		},
		{
			ID: 2, Title: "docs typo", State: "closed", RepoName: "octo/demo",
			ContributorLogin: "bob", CommitCount: 40,
			CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(72 * time.Hour), ClosedAt: &closed,
		},
		{
			ID: 3, Title: "crash on startup", State: "open", RepoName: "octo/other",
			ContributorLogin: "alice", CommitCount: 120,
			CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(2 * time.Hour),
		},
	}
	if err := store.InsertRecords(context.Background(), records); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestMemoryStore_FetchRecordsSince(t *testing.T) {
	store := seedStore(t)

	all, err := store.FetchRecords(context.Background(), time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("fetch all = %d records, want 3", len(all))
	}

	since := time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC)
	recent, err := store.FetchRecords(context.Background(), since)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].ID != 2 {
		t.Errorf("fetch since = %v, want only record 2", recent)
	}
}

func TestMemoryStore_AggregateStats(t *testing.T) {
	store := seedStore(t)

	stats, err := store.AggregateStats(context.Background(), StatsFilters{})
	if err != nil {
		t.Fatal(err)
	}

	if stats.OpenCount != 2 || stats.ClosedCount != 1 {
		t.Errorf("counts = %d open / %d closed, want 2/1", stats.OpenCount, stats.ClosedCount)
	}
	if stats.AvgResolutionHours != 48 {
		t.Errorf("avg resolution = %v, want 48", stats.AvgResolutionHours)
	}
	if len(stats.TopContributors) == 0 || stats.TopContributors[0].Name != "alice" {
		t.Errorf("top contributor = %v, want alice", stats.TopContributors)
	}
	if len(stats.Blockers) != 2 || stats.Blockers[0].Title != "crash on startup" {
		t.Errorf("blockers = %v, want newest open first", stats.Blockers)
	}
}

func TestMemoryStore_AggregateStatsFiltered(t *testing.T) {
	store := seedStore(t)

	stats, err := store.AggregateStats(context.Background(), StatsFilters{RepoName: "octo/other"})
	if err != nil {
		t.Fatal(err)
	}
	if stats.OpenCount != 1 || stats.ClosedCount != 0 {
		t.Errorf("filtered counts = %d/%d, want 1/0", stats.OpenCount, stats.ClosedCount)
	}
}

func TestMemoryStore_RecentRecords(t *testing.T) {
	store := seedStore(t)

	recent, err := store.RecentRecords(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent = %d records, want 2", len(recent))
	}
	if recent[0].ID != 3 || recent[1].ID != 2 {
		t.Errorf("recent order = [%d %d], want [3 2]", recent[0].ID, recent[1].ID)
	}
}
