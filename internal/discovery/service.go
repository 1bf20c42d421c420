package discovery

import (
	"log"

	"github.com/localmind/indexd/internal/statustore"
	"github.com/localmind/indexd/internal/types"
)

// Service reconciles the live filesystem with the status table and
// produces the work list for the indexing workflow.
type Service struct {
	tracker *statustore.Tracker
	scanner *Scanner
}

// NewService creates a discovery service over the given tracker and scanner.
func NewService(tracker *statustore.Tracker, scanner *Scanner) *Service {
	return &Service{
		tracker: tracker,
		scanner: scanner,
	}
}

// Scan walks the watched root, classifies every discovered file against
// its stored record, persists all changes in one batched save, and
// returns the records that need indexing plus the deletion candidates.
//
// Deletion candidates are records whose file is gone from disk but whose
// status is not yet DELETED_FROM_STORE. They are not marked here: the
// workflow removes them from the downstream index first and only marks
// the record once removal succeeds, so a failed removal is retried next
// cycle instead of leaving stale vectors behind a "deleted" status.
//
// With dryRun set, the classification is computed and returned but
// nothing is persisted.
func (s *Service) Scan(dryRun bool) (*types.ScanResult, error) {
	files, err := s.scanner.ScanRoot()
	if err != nil {
		return nil, err
	}

	existing := s.tracker.List(nil)
	byPath := make(map[string]*types.FileStatusRecord, len(existing))
	for _, record := range existing {
		byPath[record.RelativePath] = record
	}

	result := &types.ScanResult{ScannedCount: len(files)}
	seen := make(map[string]bool, len(files))
	var updates []*types.FileStatusRecord

	for _, file := range files {
		seen[file.RelativePath] = true

		record, exists := byPath[file.RelativePath]
		switch {
		case !exists:
			updates = append(updates, types.NewPendingRecord(file.RelativePath, file.ModTime))
			result.NewCount++
			log.Printf("Discovered new file: %s", file.RelativePath)

		case record.IndexingStatus == types.StatusDeletedFromStore:
			// File reappeared after deletion; treat like new.
			record.IndexingStatus = types.StatusPending
			record.ErrorMessage = ""
			record.LastModifiedTime = file.ModTime
			updates = append(updates, record)
			result.ResurrectedCount++
			log.Printf("File reappeared, queued for re-indexing: %s", file.RelativePath)

		case file.ModTime.After(record.LastModifiedTime):
			record.IndexingStatus = types.StatusPending
			record.ErrorMessage = ""
			record.LastModifiedTime = file.ModTime
			updates = append(updates, record)
			result.ModifiedCount++
			log.Printf("File modified, queued for re-indexing: %s", file.RelativePath)

		default:
			// Equal mtime is unchanged; sub-resolution clock changes are
			// a deliberately accepted blind spot.
			result.UnchangedCount++
		}
	}

	for _, record := range existing {
		if seen[record.RelativePath] || record.IndexingStatus == types.StatusDeletedFromStore {
			continue
		}
		result.Deleted = append(result.Deleted, record)
		result.DeletedCount++
		log.Printf("File no longer on disk: %s", record.RelativePath)
	}

	if dryRun {
		result.ToIndex = previewWorkList(existing, updates, seen)
		return result, nil
	}

	if err := s.tracker.UpsertBatch(updates); err != nil {
		return nil, err
	}

	// The work list covers only files present in this walk. A PENDING or
	// FAILED record whose file is gone belongs to the deletion path and
	// must never be handed back to the indexing workflow.
	for _, record := range s.tracker.ListNeedingIndexing() {
		if seen[record.RelativePath] {
			result.ToIndex = append(result.ToIndex, record)
		}
	}
	return result, nil
}

// previewWorkList computes the work list that a persisting scan would
// return after the updates, without touching the store.
func previewWorkList(existing, updates []*types.FileStatusRecord, seen map[string]bool) []*types.FileStatusRecord {
	merged := make(map[string]*types.FileStatusRecord, len(existing)+len(updates))
	for _, record := range existing {
		merged[record.RelativePath] = record
	}
	for _, record := range updates {
		merged[record.RelativePath] = record
	}

	var work []*types.FileStatusRecord
	for _, record := range merged {
		if record.NeedsIndexing() && seen[record.RelativePath] {
			work = append(work, record)
		}
	}
	return work
}
