package recordstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/devinsight/devinsight/internal/config"
	"github.com/devinsight/devinsight/pkg/models"
)

// BigQueryStore reads and writes the warehouse table of issues merged
// with contributor stats.
type BigQueryStore struct {
	client  *bigquery.Client
	dataset string
	table   string
}

// NewBigQueryStore connects to the configured project.
func NewBigQueryStore(ctx context.Context, cfg *config.WarehouseConfig) (*BigQueryStore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := bigquery.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create BigQuery client: %w", err)
	}

	return &BigQueryStore{
		client:  client,
		dataset: cfg.Dataset,
		table:   cfg.Table,
	}, nil
}

// tableID returns the fully qualified table name for SQL.
func (s *BigQueryStore) tableID() string {
	return fmt.Sprintf("`%s.%s.%s`", s.client.Project(), s.dataset, s.table)
}

// recordRow is the BigQuery row shape of the warehouse schema.
type recordRow struct {
	IssueID          int64                  `bigquery:"issue_id"`
	Number           bigquery.NullInt64     `bigquery:"number"`
	Title            bigquery.NullString    `bigquery:"title"`
	Body             bigquery.NullString    `bigquery:"body"`
	CreatedAt        bigquery.NullTimestamp `bigquery:"created_at"`
	UpdatedAt        bigquery.NullTimestamp `bigquery:"updated_at"`
	ClosedAt         bigquery.NullTimestamp `bigquery:"closed_at"`
	State            bigquery.NullString    `bigquery:"state"`
	RepoName         bigquery.NullString    `bigquery:"repo_name"`
	Creator          bigquery.NullString    `bigquery:"creator"`
	CreatorType      bigquery.NullString    `bigquery:"creator_type"`
	IsPR             bigquery.NullBool      `bigquery:"is_pr"`
	Labels           []string               `bigquery:"labels"`
	Assignees        []string               `bigquery:"assignees"`
	CommentsCount    bigquery.NullInt64     `bigquery:"comments_count"`
	HTMLURL          bigquery.NullString    `bigquery:"html_url"`
	ContributorLogin bigquery.NullString    `bigquery:"contributor_login"`
	ContributorRole  bigquery.NullString    `bigquery:"contributor_role"`
	Contributions    bigquery.NullInt64     `bigquery:"contributions"`
	CommitCount      bigquery.NullInt64     `bigquery:"commit_count"`
}

func (r *recordRow) toRecord() models.Record {
	rec := models.Record{
		ID:               r.IssueID,
		Number:           int(r.Number.Int64),
		Title:            r.Title.StringVal,
		Body:             r.Body.StringVal,
		State:            r.State.StringVal,
		RepoName:         r.RepoName.StringVal,
		Creator:          r.Creator.StringVal,
		CreatorType:      r.CreatorType.StringVal,
		IsPR:             r.IsPR.Bool,
		Labels:           r.Labels,
		Assignees:        r.Assignees,
		CommentsCount:    int(r.CommentsCount.Int64),
		URL:              r.HTMLURL.StringVal,
		ContributorLogin: r.ContributorLogin.StringVal,
		ContributorRole:  r.ContributorRole.StringVal,
		Contributions:    int(r.Contributions.Int64),
		CommitCount:      int(r.CommitCount.Int64),
	}
	if r.CreatedAt.Valid {
		rec.CreatedAt = r.CreatedAt.Timestamp
	}
	if r.UpdatedAt.Valid {
		rec.UpdatedAt = r.UpdatedAt.Timestamp
	}
	if r.ClosedAt.Valid {
		closed := r.ClosedAt.Timestamp
		rec.ClosedAt = &closed
	}
	return rec
}

// FetchRecords returns records updated at or after since.
func (s *BigQueryStore) FetchRecords(ctx context.Context, since time.Time) ([]models.Record, error) {
	sql := fmt.Sprintf("SELECT * FROM %s", s.tableID())
	q := s.client.Query(sql)
	if !since.IsZero() {
		q = s.client.Query(sql + " WHERE updated_at >= @since")
		q.Parameters = []bigquery.QueryParameter{{Name: "since", Value: since}}
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("warehouse query failed: %w", err)
	}

	var records []models.Record
	for {
		var row recordRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("warehouse row read failed: %w", err)
		}
		records = append(records, row.toRecord())
	}

	return records, nil
}

// InsertRecords appends records via the streaming inserter.
func (s *BigQueryStore) InsertRecords(ctx context.Context, records []models.Record) error {
	rows := make([]*recordRow, len(records))
	for i, rec := range records {
		rows[i] = fromRecord(rec)
	}

	inserter := s.client.Dataset(s.dataset).Table(s.table).Inserter()
	if err := inserter.Put(ctx, rows); err != nil {
		return fmt.Errorf("warehouse insert failed: %w", err)
	}
	return nil
}

func fromRecord(rec models.Record) *recordRow {
	row := &recordRow{
		IssueID:          rec.ID,
		Number:           bigquery.NullInt64{Int64: int64(rec.Number), Valid: true},
		Title:            bigquery.NullString{StringVal: rec.Title, Valid: true},
		Body:             bigquery.NullString{StringVal: rec.Body, Valid: true},
		State:            bigquery.NullString{StringVal: rec.State, Valid: true},
		RepoName:         bigquery.NullString{StringVal: rec.RepoName, Valid: true},
		Creator:          bigquery.NullString{StringVal: rec.Creator, Valid: true},
		CreatorType:      bigquery.NullString{StringVal: rec.CreatorType, Valid: true},
		IsPR:             bigquery.NullBool{Bool: rec.IsPR, Valid: true},
		Labels:           rec.Labels,
		Assignees:        rec.Assignees,
		CommentsCount:    bigquery.NullInt64{Int64: int64(rec.CommentsCount), Valid: true},
		HTMLURL:          bigquery.NullString{StringVal: rec.URL, Valid: true},
		ContributorLogin: bigquery.NullString{StringVal: rec.ContributorLogin, Valid: true},
		ContributorRole:  bigquery.NullString{StringVal: rec.ContributorRole, Valid: true},
		Contributions:    bigquery.NullInt64{Int64: int64(rec.Contributions), Valid: true},
		CommitCount:      bigquery.NullInt64{Int64: int64(rec.CommitCount), Valid: true},
		CreatedAt:        bigquery.NullTimestamp{Timestamp: rec.CreatedAt, Valid: !rec.CreatedAt.IsZero()},
		UpdatedAt:        bigquery.NullTimestamp{Timestamp: rec.UpdatedAt, Valid: !rec.UpdatedAt.IsZero()},
	}
	if rec.ClosedAt != nil {
		row.ClosedAt = bigquery.NullTimestamp{Timestamp: *rec.ClosedAt, Valid: true}
	}
	return row
}

// AggregateStats runs the reporting rollup in SQL.
func (s *BigQueryStore) AggregateStats(ctx context.Context, f StatsFilters) (Stats, error) {
	var stats Stats
	where := "WHERE TRUE"
	var params []bigquery.QueryParameter
	if f.RepoName != "" {
		where += " AND repo_name = @repo"
		params = append(params, bigquery.QueryParameter{Name: "repo", Value: f.RepoName})
	}
	if !f.Since.IsZero() {
		where += " AND created_at >= @since"
		params = append(params, bigquery.QueryParameter{Name: "since", Value: f.Since})
	}

	statsSQL := fmt.Sprintf(`
		SELECT
			COUNTIF(state = 'closed') AS closed,
			COUNTIF(state = 'open') AS open,
			ROUND(AVG(
				CASE WHEN closed_at IS NOT NULL
				THEN TIMESTAMP_DIFF(closed_at, created_at, HOUR) END
			), 1) AS avg_resolution_hrs
		FROM %s %s`, s.tableID(), where)

	q := s.client.Query(statsSQL)
	q.Parameters = params
	it, err := q.Read(ctx)
	if err != nil {
		return stats, fmt.Errorf("stats query failed: %w", err)
	}
	var counts struct {
		Closed           int64                `bigquery:"closed"`
		Open             int64                `bigquery:"open"`
		AvgResolutionHrs bigquery.NullFloat64 `bigquery:"avg_resolution_hrs"`
	}
	if err := it.Next(&counts); err != nil && err != iterator.Done {
		return stats, fmt.Errorf("stats row read failed: %w", err)
	}
	stats.OpenCount = int(counts.Open)
	stats.ClosedCount = int(counts.Closed)
	stats.AvgResolutionHours = counts.AvgResolutionHrs.Float64

	contribSQL := fmt.Sprintf(`
		SELECT contributor_login AS name, MAX(commit_count) AS commits
		FROM %s %s AND contributor_login IS NOT NULL AND contributor_login != ''
		GROUP BY contributor_login
		ORDER BY commits DESC
		LIMIT 5`, s.tableID(), where)

	q = s.client.Query(contribSQL)
	q.Parameters = params
	it, err = q.Read(ctx)
	if err != nil {
		return stats, fmt.Errorf("contributor query failed: %w", err)
	}
	for {
		var row struct {
			Name    string `bigquery:"name"`
			Commits int64  `bigquery:"commits"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("contributor row read failed: %w", err)
		}
		stats.TopContributors = append(stats.TopContributors, ContributorStat{Name: row.Name, Commits: int(row.Commits)})
	}

	blockerSQL := fmt.Sprintf(`
		SELECT title, repo_name, state, created_at
		FROM %s %s AND state = 'open'
		ORDER BY created_at DESC
		LIMIT 5`, s.tableID(), where)

	q = s.client.Query(blockerSQL)
	q.Parameters = params
	it, err = q.Read(ctx)
	if err != nil {
		return stats, fmt.Errorf("blocker query failed: %w", err)
	}
	for {
		var row struct {
			Title     bigquery.NullString    `bigquery:"title"`
			RepoName  bigquery.NullString    `bigquery:"repo_name"`
			State     bigquery.NullString    `bigquery:"state"`
			CreatedAt bigquery.NullTimestamp `bigquery:"created_at"`
		}
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("blocker row read failed: %w", err)
		}
		b := Blocker{
			Title:    row.Title.StringVal,
			RepoName: row.RepoName.StringVal,
			State:    row.State.StringVal,
		}
		if row.CreatedAt.Valid {
			b.CreatedAt = row.CreatedAt.Timestamp
		}
		stats.Blockers = append(stats.Blockers, b)
	}

	return stats, nil
}

// RecentRecords returns the newest records by creation time.
func (s *BigQueryStore) RecentRecords(ctx context.Context, limit int) ([]models.Record, error) {
	if limit <= 0 {
		limit = 20
	}

	sql := fmt.Sprintf("SELECT * FROM %s ORDER BY created_at DESC LIMIT @limit", s.tableID())
	q := s.client.Query(sql)
	q.Parameters = []bigquery.QueryParameter{{Name: "limit", Value: int64(limit)}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("recent query failed: %w", err)
	}

	var records []models.Record
	for {
		var row recordRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("recent row read failed: %w", err)
		}
		records = append(records, row.toRecord())
	}

	return records, nil
}

// Close releases the client.
func (s *BigQueryStore) Close() error {
	return s.client.Close()
}
