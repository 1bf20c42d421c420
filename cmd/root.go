package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "indexd",
	Short: "indexd - file indexing status tracker and re-indexing daemon",
	Long: `indexd watches a directory tree of documents, keeps a durable
per-file indexing status table, and pushes new or modified files into an
OpenSearch index on a fixed schedule. Files deleted from the tree are
removed from the index before their records are marked deleted, so the
status table never claims a cleanup that did not happen.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(statusCmd)
}
