package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devinsight/devinsight/internal/github"
)

func newIngestCmd() *cobra.Command {
	var (
		repo  string
		since string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Pull GitHub activity into the warehouse",
		Long: `Fetch issues and contributor commit totals from GitHub and load them
into the warehouse. With --repo a single repository is ingested,
otherwise every repository from the config.`,
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

			repos := cfg.GitHub.Repositories
			if repo != "" {
				repos = []string{repo}
			}
			if len(repos) == 0 {
				return fmt.Errorf("no repositories configured; set github.repositories or pass --repo")
			}

			store, err := newStore(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open warehouse: %w", err)
			}
			defer store.Close()

			client, err := github.NewClient(rpsLimiter(cfg.RateLimits.GitHubRPS), logger)
			if err != nil {
				return fmt.Errorf("failed to create GitHub client: %w", err)
			}
			defer client.Close()

			ingestor := github.NewIngestor(client, store, cfg.GitHub.PageSize, logger)
			total, err := ingestor.IngestAll(ctx, repos, sinceTime)
			if err != nil {
				return fmt.Errorf("ingestion failed after %d records: %w", total, err)
			}

			fmt.Printf("Loaded %d records from %d repositories\n", total, len(repos))
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "single repository to ingest (owner/repo)")
	cmd.Flags().StringVar(&since, "since", "", "only issues updated in this window (e.g. 24h, 7d)")

	return cmd
}
