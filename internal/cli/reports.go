package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devinsight/devinsight/internal/recordstore"
)

func newReportsCmd() *cobra.Command {
	var (
		repo  string
		since string
	)

	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Print the issue activity report",
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

			stats, err := store.AggregateStats(ctx, recordstore.StatsFilters{
				RepoName: repo,
				Since:    sinceTime,
			})
			if err != nil {
				return fmt.Errorf("report query failed: %w", err)
			}

			fmt.Printf("Issues: %d open, %d closed (avg resolution %.1fh)\n",
				stats.OpenCount, stats.ClosedCount, stats.AvgResolutionHours)

			if len(stats.TopContributors) > 0 {
				fmt.Println("\nTop contributors:")
				for _, c := range stats.TopContributors {
					fmt.Printf("  %-24s %d commits\n", c.Name, c.Commits)
				}
			}

			if len(stats.Blockers) > 0 {
				fmt.Println("\nOpen blockers:")
				for _, b := range stats.Blockers {
					fmt.Printf("  - %s (%s, opened %s)\n",
						b.Title, b.RepoName, b.CreatedAt.Format("2006-01-02"))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "restrict to one repository (owner/repo)")
	cmd.Flags().StringVar(&since, "since", "", "only issues created in this window (e.g. 30d)")

	return cmd
}
