package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	version = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "devinsight",
	Short: "GitHub activity analytics with retrieval-augmented answers",
	Long: `devinsight ingests GitHub issue and contributor activity into a
warehouse, indexes it into a vector database, and answers natural
language questions about it with cited sources.

Uses Gemini/OpenAI embeddings + Qdrant hybrid search for retrieval.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")

	rootCmd.AddCommand(newIngestCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newAskCmd())
	rootCmd.AddCommand(newReportsCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("devinsight version %s\n", version)
		},
	}
}
