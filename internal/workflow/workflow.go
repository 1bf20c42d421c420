package workflow

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/localmind/indexd/internal/statustore"
	"github.com/localmind/indexd/internal/types"
)

// Driver consumes a discovery result and pushes every affected file
// through the indexing state machine, invoking the external ingestion
// collaborator and recording outcomes via the tracker.
type Driver struct {
	tracker       *statustore.Tracker
	reader        ContentReader
	ingestor      Ingestor
	concurrency   int
	ingestTimeout time.Duration
}

// Config contains the settings for creating a Driver.
type Config struct {
	Concurrency   int
	IngestTimeout time.Duration
}

// NewDriver creates a workflow driver.
func NewDriver(tracker *statustore.Tracker, reader ContentReader, ingestor Ingestor, cfg Config) (*Driver, error) {
	if tracker == nil {
		return nil, fmt.Errorf("tracker cannot be nil")
	}
	if reader == nil {
		return nil, fmt.Errorf("content reader cannot be nil")
	}
	if ingestor == nil {
		return nil, fmt.Errorf("ingestor cannot be nil")
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.IngestTimeout <= 0 {
		cfg.IngestTimeout = 2 * time.Minute
	}

	return &Driver{
		tracker:       tracker,
		reader:        reader,
		ingestor:      ingestor,
		concurrency:   cfg.Concurrency,
		ingestTimeout: cfg.IngestTimeout,
	}, nil
}

// RecoverInterrupted reclassifies records left RUNNING by a prior process
// lifetime as FAILED so they are requeued rather than presumed complete.
// Must be called once at startup, before the first discovery cycle.
func (d *Driver) RecoverInterrupted() error {
	requeued, err := d.tracker.RequeueInterrupted("indexing interrupted by process restart")
	if err != nil {
		return fmt.Errorf("failed to requeue interrupted records: %w", err)
	}
	if requeued > 0 {
		log.Printf("Requeued %d record(s) left RUNNING by a previous run", requeued)
	}
	return nil
}

// Run processes one discovery result: deletions first (downstream removal
// before the record is marked deleted), then the indexing work list with
// a bounded pool of workers. Per-file failures never abort the cycle.
func (d *Driver) Run(ctx context.Context, scan *types.ScanResult) *types.CycleResult {
	start := time.Now()
	result := &types.CycleResult{
		Scan:      scan,
		StartTime: start,
	}

	result.RemovedCount = d.processDeletions(ctx, scan.Deleted)

	indexed, failed := d.processWorkList(ctx, scan.ToIndex)
	result.IndexedCount = indexed
	result.FailedCount = failed
	result.Duration = time.Since(start)

	log.Printf("Cycle complete: %d indexed, %d failed, %d removed (%.1fs)",
		indexed, failed, result.RemovedCount, result.Duration.Seconds())
	return result
}

// processDeletions removes each deleted file from the downstream index
// and, only on success, marks its record DELETED_FROM_STORE. A failed
// removal leaves the record in its prior status to be retried next cycle.
func (d *Driver) processDeletions(ctx context.Context, deleted []*types.FileStatusRecord) int {
	removed := 0
	for _, record := range deleted {
		if ctx.Err() != nil {
			return removed
		}

		removeCtx, cancel := context.WithTimeout(ctx, d.ingestTimeout)
		err := d.ingestor.Remove(removeCtx, record.RelativePath)
		cancel()

		if err != nil {
			procErr := WrapError(err, ErrorTypeRemoval, record.RelativePath)
			log.Printf("ERROR: Failed to remove %s from index, will retry next cycle: %v",
				record.RelativePath, procErr)
			continue
		}

		record.IndexingStatus = types.StatusDeletedFromStore
		record.ErrorMessage = ""
		// LastIndexedTime is left untouched as history.
		if err := d.tracker.Upsert(record); err != nil {
			log.Printf("ERROR: Failed to persist deletion of %s: %v", record.RelativePath, err)
			continue
		}

		removed++
		log.Printf("Removed from index: %s", record.RelativePath)
	}
	return removed
}

// processWorkList drives each PENDING or FAILED record through
// RUNNING -> COMPLETE/FAILED with bounded concurrency. Status mutations
// funnel through the tracker's serialized upsert; the store lock is never
// held across an ingestion call.
func (d *Driver) processWorkList(ctx context.Context, records []*types.FileStatusRecord) (int, int) {
	if len(records) == 0 {
		return 0, 0
	}

	log.Printf("Processing %d file(s) with concurrency limit of %d", len(records), d.concurrency)

	var indexed, failed int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.concurrency)

	for _, record := range records {
		record := record
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}

			if d.processOne(gctx, record) {
				atomic.AddInt64(&indexed, 1)
			} else {
				atomic.AddInt64(&failed, 1)
			}
			return nil
		})
	}

	_ = g.Wait()
	return int(indexed), int(failed)
}

// processOne runs the state machine for a single record. Returns true on
// a COMPLETE transition.
func (d *Driver) processOne(ctx context.Context, record *types.FileStatusRecord) bool {
	// Commit RUNNING before invoking ingestion so partially-processed
	// work is visible and recoverable after a crash.
	record.IndexingStatus = types.StatusRunning
	record.ErrorMessage = ""
	if err := d.tracker.Upsert(record); err != nil {
		log.Printf("ERROR: Could not mark %s RUNNING, skipping this cycle: %v", record.RelativePath, err)
		return false
	}

	content, err := d.reader.ReadFileContent(record.RelativePath)
	if err != nil {
		return d.markFailed(record, WrapError(err, ErrorTypeFileRead, record.RelativePath))
	}

	ingestCtx, cancel := context.WithTimeout(ctx, d.ingestTimeout)
	err = d.ingestor.Ingest(ingestCtx, record.RelativePath, content)
	cancel()

	if err != nil {
		return d.markFailed(record, WrapError(err, ErrorTypeIngestion, record.RelativePath))
	}

	now := time.Now()
	record.IndexingStatus = types.StatusComplete
	record.LastIndexedTime = &now
	record.ErrorMessage = ""
	if err := d.tracker.Upsert(record); err != nil {
		log.Printf("ERROR: Failed to persist COMPLETE for %s: %v", record.RelativePath, err)
		return false
	}

	log.Printf("Indexed: %s", record.RelativePath)
	return true
}

// markFailed records a FAILED transition. LastIndexedTime is preserved:
// a prior successful run remains visible as history.
func (d *Driver) markFailed(record *types.FileStatusRecord, procErr *ProcessingError) bool {
	log.Printf("ERROR: %v", procErr)

	record.IndexingStatus = types.StatusFailed
	record.ErrorMessage = procErr.Message
	if err := d.tracker.Upsert(record); err != nil {
		log.Printf("ERROR: Failed to persist FAILED for %s: %v", record.RelativePath, err)
	}
	return false
}
