package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var scanDryRun bool

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one discovery pass over the watched root",
	Long: `
The scan command walks the watched root once, compares every file
against the status table, and queues new or modified files as PENDING.
Files missing from disk are reported as deletion candidates; their
records are only marked deleted by the daemon after the downstream
index entry is removed.

With --dry-run, the diff is computed and printed but nothing is
persisted.
`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "Report the diff without updating the status table")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, svc, _, err := openDiscovery(cfg)
	if err != nil {
		return err
	}

	result, err := svc.Scan(scanDryRun)
	if err != nil {
		return fmt.Errorf("discovery scan failed: %w", err)
	}

	fmt.Println(strings.Repeat("=", 50))
	if scanDryRun {
		fmt.Println("DISCOVERY DRY RUN")
	} else {
		fmt.Println("DISCOVERY RESULTS")
	}
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Files Scanned:       %d\n", result.ScannedCount)
	fmt.Printf("New:                 %d\n", result.NewCount)
	fmt.Printf("Modified:            %d\n", result.ModifiedCount)
	fmt.Printf("Resurrected:         %d\n", result.ResurrectedCount)
	fmt.Printf("Unchanged:           %d\n", result.UnchangedCount)
	fmt.Printf("Deletion Candidates: %d\n", result.DeletedCount)
	fmt.Printf("Queued for Indexing: %d\n", len(result.ToIndex))

	if len(result.ToIndex) > 0 {
		fmt.Println("\nQueued files:")
		for _, record := range result.ToIndex {
			fmt.Printf("  %-10s %s\n", record.IndexingStatus, record.RelativePath)
		}
	}
	if len(result.Deleted) > 0 {
		fmt.Println("\nDeletion candidates:")
		for _, record := range result.Deleted {
			fmt.Printf("  %s\n", record.RelativePath)
		}
	}

	if scanDryRun {
		fmt.Println("\nThis was a dry run. The status table was not modified.")
	}
	return nil
}
