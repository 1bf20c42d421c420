package types

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// IndexingStatus represents the position of a file in the indexing state machine.
type IndexingStatus string

const (
	StatusPending          IndexingStatus = "PENDING"
	StatusRunning          IndexingStatus = "RUNNING"
	StatusComplete         IndexingStatus = "COMPLETE"
	StatusFailed           IndexingStatus = "FAILED"
	StatusDeletedFromStore IndexingStatus = "DELETED_FROM_STORE"
)

// ParseIndexingStatus converts a stored status string back to an IndexingStatus.
func ParseIndexingStatus(s string) (IndexingStatus, error) {
	switch IndexingStatus(s) {
	case StatusPending, StatusRunning, StatusComplete, StatusFailed, StatusDeletedFromStore:
		return IndexingStatus(s), nil
	default:
		return "", fmt.Errorf("unknown indexing status %q", s)
	}
}

// IsValid reports whether the status is one of the known states.
func (s IndexingStatus) IsValid() bool {
	_, err := ParseIndexingStatus(string(s))
	return err == nil
}

// String returns the string representation of the status.
func (s IndexingStatus) String() string {
	return string(s)
}

// FileStatusRecord is one row of the status table: the durable indexing
// state of a single file, keyed by its path relative to the watched root.
type FileStatusRecord struct {
	Filename         string         `json:"filename"`
	FileExtension    string         `json:"file_extension"`
	RelativePath     string         `json:"relative_path"`
	IndexingStatus   IndexingStatus `json:"indexing_status"`
	LastModifiedTime time.Time      `json:"last_modified_time"`
	LastIndexedTime  *time.Time     `json:"last_indexed_time,omitempty"`
	ErrorMessage     string         `json:"error_message,omitempty"`
}

// NewPendingRecord creates a record for a newly discovered file.
func NewPendingRecord(relativePath string, modifiedTime time.Time) *FileStatusRecord {
	return &FileStatusRecord{
		Filename:         filepath.Base(relativePath),
		FileExtension:    strings.ToLower(filepath.Ext(relativePath)),
		RelativePath:     relativePath,
		IndexingStatus:   StatusPending,
		LastModifiedTime: modifiedTime,
	}
}

// NeedsIndexing reports whether the record should be picked up by the
// indexing workflow on the next cycle.
func (r *FileStatusRecord) NeedsIndexing() bool {
	return r.IndexingStatus == StatusPending || r.IndexingStatus == StatusFailed
}

// FileInfo describes a regular file observed during a directory walk.
type FileInfo struct {
	Path         string    `json:"path"`
	RelativePath string    `json:"relative_path"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ModTime      time.Time `json:"mod_time"`
}

// ChangeType classifies a discovered file against its stored record.
type ChangeType int

const (
	// ChangeTypeNone indicates no change detected
	ChangeTypeNone ChangeType = iota
	// ChangeTypeNew indicates a file with no existing record
	ChangeTypeNew
	// ChangeTypeModified indicates a file whose mtime advanced past the record
	ChangeTypeModified
	// ChangeTypeResurrected indicates a previously deleted file that reappeared
	ChangeTypeResurrected
	// ChangeTypeDeleted indicates a record whose file is gone from disk
	ChangeTypeDeleted
)

// String returns the string representation of ChangeType
func (c ChangeType) String() string {
	switch c {
	case ChangeTypeNone:
		return "unchanged"
	case ChangeTypeNew:
		return "new"
	case ChangeTypeModified:
		return "modified"
	case ChangeTypeResurrected:
		return "resurrected"
	case ChangeTypeDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// ScanResult holds the outcome of one discovery pass over the watched root.
type ScanResult struct {
	// ToIndex contains the records now in PENDING (new, modified, resurrected).
	ToIndex []*FileStatusRecord
	// Deleted contains the records that must be removed from the downstream
	// index before they can be marked DELETED_FROM_STORE.
	Deleted []*FileStatusRecord

	NewCount         int
	ModifiedCount    int
	ResurrectedCount int
	UnchangedCount   int
	DeletedCount     int
	ScannedCount     int
}

// CycleResult summarizes one full discovery + workflow pass.
type CycleResult struct {
	Scan         *ScanResult
	IndexedCount int
	FailedCount  int
	RemovedCount int
	StartTime    time.Time
	Duration     time.Duration
}
