package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devinsight/devinsight/pkg/models"
)

func newAskCmd() *cobra.Command {
	var (
		repoFilter  string
		stateFilter string
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the indexed GitHub activity",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question cannot be empty")
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			eng, cleanup, err := newEngine(cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := eng.Answer(ctx, question, models.Filters{
				RepoName: repoFilter,
				State:    stateFilter,
			})
			if err != nil {
				return fmt.Errorf("query failed: %w", err)
			}

			fmt.Println(result.Answer)
			if result.NumSources > 0 {
				fmt.Printf("\nSources (%d):\n", result.NumSources)
				for _, src := range result.Sources {
					fmt.Printf("  - [%s] %s (%s, score %.3f)\n",
						src.State, src.Title, src.RepoName, src.Score)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repoFilter, "repo", "", "restrict to one repository (owner/repo)")
	cmd.Flags().StringVar(&stateFilter, "state", "", "restrict to issue state (open/closed)")

	return cmd
}
