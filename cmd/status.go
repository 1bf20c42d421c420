package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/localmind/indexd/internal/metrics"
	"github.com/localmind/indexd/internal/statustore"
	"github.com/localmind/indexd/internal/types"
)

var (
	statusFilter string
	historyLimit int
	showHistory  bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the indexing status table",
	Long: `
The status command prints record counts by status and the rows of the
status table. Use --status to filter rows and --history to show recent
cycle statistics instead.
`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFilter, "status", "", "Filter rows by status (PENDING, RUNNING, COMPLETE, FAILED, DELETED_FROM_STORE)")
	statusCmd.Flags().BoolVar(&showHistory, "history", false, "Show recent cycle history instead of file records")
	statusCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of history rows to show with --history")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if showHistory {
		return printHistory(cfg.MetricsDBPath)
	}

	tracker, err := statustore.NewTracker(cfg.StatusFilePath)
	if err != nil {
		return fmt.Errorf("failed to open status table: %w", err)
	}

	var filter *types.IndexingStatus
	if statusFilter != "" {
		parsed, err := types.ParseIndexingStatus(statusFilter)
		if err != nil {
			return err
		}
		filter = &parsed
	}

	counts := tracker.Counts()
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("STATUS TABLE: %s (%d records)\n", cfg.StatusFilePath, tracker.Len())
	fmt.Println(strings.Repeat("=", 50))
	for _, status := range []types.IndexingStatus{
		types.StatusPending, types.StatusRunning, types.StatusComplete,
		types.StatusFailed, types.StatusDeletedFromStore,
	} {
		fmt.Printf("  %-20s %d\n", status, counts[status])
	}

	records := tracker.List(filter)
	if len(records) == 0 {
		return nil
	}

	fmt.Println()
	for _, record := range records {
		line := fmt.Sprintf("  %-20s %s (modified %s",
			record.IndexingStatus, record.RelativePath,
			record.LastModifiedTime.Format(time.RFC3339))
		if record.LastIndexedTime != nil {
			line += fmt.Sprintf(", indexed %s", record.LastIndexedTime.Format(time.RFC3339))
		}
		line += ")"
		if record.ErrorMessage != "" {
			line += fmt.Sprintf("\n%24serror: %s", "", record.ErrorMessage)
		}
		fmt.Println(line)
	}
	return nil
}

func printHistory(dbPath string) error {
	var (
		store *metrics.Store
		err   error
	)
	if dbPath != "" {
		store, err = metrics.NewStoreWithPath(dbPath)
	} else {
		store, err = metrics.NewStore()
	}
	if err != nil {
		return fmt.Errorf("failed to open cycle history: %w", err)
	}
	defer func() { _ = store.Close() }()

	cycles, err := store.RecentCycles(historyLimit)
	if err != nil {
		return err
	}
	if len(cycles) == 0 {
		fmt.Println("No cycles recorded yet.")
		return nil
	}

	fmt.Printf("%-25s %8s %6s %6s %6s %6s %6s %8s\n",
		"STARTED", "SCANNED", "NEW", "MOD", "DEL", "OK", "FAIL", "DURATION")
	for _, c := range cycles {
		fmt.Printf("%-25s %8d %6d %6d %6d %6d %6d %7dms\n",
			c.StartedAt.Format(time.RFC3339), c.ScannedCount, c.NewCount,
			c.ModifiedCount, c.DeletedCount, c.IndexedCount, c.FailedCount,
			c.DurationMS)
	}
	return nil
}
