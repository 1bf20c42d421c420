package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/localmind/indexd/internal/metrics"
	"github.com/localmind/indexd/internal/observability"
	"github.com/localmind/indexd/internal/scheduler"
	"github.com/localmind/indexd/internal/workflow"
)

var runImmediately bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the indexing daemon",
	Long: `
The run command starts the indexing daemon: it recovers records left
RUNNING by a previous process, then fires a discovery + indexing cycle
every scan interval until interrupted.
`,
	RunE: runDaemon,
}

func init() {
	runCmd.Flags().BoolVar(&runImmediately, "now", true, "Run the first cycle immediately instead of waiting one interval")
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	shutdownOTel, err := observability.Init(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}

	if cfg.MetricsDBPath != "" {
		if err := metrics.InitWithPath(cfg.MetricsDBPath); err != nil {
			log.Printf("WARNING: cycle metrics disabled: %v", err)
		}
	} else if err := metrics.Init(); err != nil {
		log.Printf("WARNING: cycle metrics disabled: %v", err)
	}
	if err := metrics.InitOTelMetrics(); err != nil {
		log.Printf("WARNING: failed to register OTel gauges: %v", err)
	}

	tracker, svc, scanner, err := openDiscovery(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingestor, err := buildIngestor(ctx, cfg)
	if err != nil {
		return err
	}

	validateCtx, validateCancel := context.WithTimeout(ctx, 30*time.Second)
	if err := ingestor.ValidateConnection(validateCtx); err != nil {
		validateCancel()
		return fmt.Errorf("ingestion backend validation failed: %w", err)
	}
	validateCancel()
	log.Println("Ingestion backend validation successful")

	driver, err := workflow.NewDriver(tracker, scanner, ingestor, workflow.Config{
		Concurrency:   cfg.Concurrency,
		IngestTimeout: cfg.IngestTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create workflow driver: %w", err)
	}

	// Records left RUNNING by a crash are requeued before the first cycle.
	if err := driver.RecoverInterrupted(); err != nil {
		return err
	}

	cycle := func(ctx context.Context) error {
		scan, err := svc.Scan(false)
		if err != nil {
			log.Printf("ERROR: discovery scan failed: %v", err)
			return err
		}
		result := driver.Run(ctx, scan)
		metrics.RecordCycleResult(result)
		return nil
	}

	sched := scheduler.New(cfg.ScanInterval(), cycle)
	sched.Start(ctx)
	defer sched.Stop()

	log.Printf("Indexing daemon started: root=%s interval=%v concurrency=%d",
		cfg.WatchedRoot, cfg.ScanInterval(), cfg.Concurrency)

	if runImmediately {
		sched.RunNow(ctx)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Printf("Received signal: %v, shutting down...", sig)

	cancel()
	sched.Stop()

	if err := metrics.Close(); err != nil {
		log.Printf("WARNING: failed to close metrics store: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := shutdownOTel(shutdownCtx); err != nil {
		log.Printf("WARNING: observability shutdown failed: %v", err)
	}

	return nil
}
