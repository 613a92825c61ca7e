package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/devinsight/devinsight/internal/pipeline"
)

func newIndexCmd() *cobra.Command {
	var (
		since    string
		rebuild  bool
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index warehouse records into the vector database",
		Long: `Embed warehouse records and upsert them into the vector database.
Unchanged records are skipped by content hash, so repeated runs are cheap.
Use --since for an incremental run and --rebuild to drop and recreate the
collection first.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			sinceTime, err := parseSince(since)
			if err != nil {
				return fmt.Errorf("invalid --since value: %w", err)
			}

			store, err := newStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open warehouse: %w", err)
			}
			defer store.Close()

			provider, closeProvider, err := newEmbedProvider(cfg, logger)
			if err != nil {
				return err
			}
			defer closeProvider()

			index, err := newIndexClient(cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to create index client: %w", err)
			}
			defer index.Close()

			p := pipeline.New(
				store,
				newBatcher(cfg, provider, logger),
				index,
				cfg.Pipeline.BatchSize,
				cfg.Pipeline.Concurrency,
				rpsLimiter(cfg.RateLimits.QdrantRPS),
				logger,
			)

			stats, err := p.Run(ctx, pipeline.Options{
				Since:    sinceTime,
				Rebuild:  rebuild,
				Progress: progress,
			})
			if err != nil {
				return fmt.Errorf("indexing failed: %w", err)
			}

			fmt.Printf("Indexed %d/%d records (%d skipped, %d failed) in %dms\n",
				stats.Indexed, stats.Total, stats.Skipped, stats.Failed, stats.DurationMs)
			if count, err := index.Count(ctx); err == nil {
				fmt.Printf("Collection %s now holds %d documents\n", index.Collection(), count)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "only records updated in this window (e.g. 24h, 7d)")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "drop the collection and re-index everything")
	cmd.Flags().BoolVar(&progress, "progress", true, "show a progress bar")

	return cmd
}

// parseSince parses durations like "24h" or "7d" into the cutoff time.
// Empty input means a full run.
func parseSince(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}

	if len(s) > 1 && s[len(s)-1] == 'd' {
		days, err := strconv.Atoi(s[:len(s)-1])
		if err != nil {
			return time.Time{}, fmt.Errorf("bad day count %q", s)
		}
		return time.Now().Add(-time.Duration(days) * 24 * time.Hour), nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return time.Time{}, err
	}
	return time.Now().Add(-d), nil
}
