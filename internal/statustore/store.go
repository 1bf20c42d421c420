package statustore

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/localmind/indexd/internal/types"
)

// Tracker is the sole gatekeeper of the durable status table. All reads
// and writes of per-file indexing state go through it. Writes are
// serialized by a store-scoped mutex; the persisted table is replaced
// atomically (temp file + rename) with the previous version copied to a
// backup first.
type Tracker struct {
	path    string
	mu      sync.Mutex
	records map[string]*types.FileStatusRecord
}

// NewTracker creates a tracker backed by the table at path and loads the
// persisted state. A missing table yields an empty store. I/O failures
// are returned as *StorageIOError; callers treat a failure here (startup
// load) as fatal since ground truth cannot be established.
func NewTracker(path string) (*Tracker, error) {
	t := &Tracker{
		path:    path,
		records: make(map[string]*types.FileStatusRecord),
	}

	if err := t.load(); err != nil {
		return nil, err
	}

	return t, nil
}

// BackupPath returns the location of the last-known-good copy.
func (t *Tracker) BackupPath() string {
	return t.path + ".backup"
}

// load reconstructs the in-memory table from disk. Corruption is handled
// by falling back to the backup; if both are unreadable the store starts
// empty and discovery rebuilds it.
func (t *Tracker) load() error {
	records, err := readTable(t.path)
	if err == nil {
		t.records = records
		return nil
	}

	var corrupt *CorruptStoreError
	if !errors.As(err, &corrupt) {
		return err
	}

	log.Printf("WARNING: %v; attempting recovery from backup", err)

	backup, backupErr := readTable(t.BackupPath())
	if backupErr != nil {
		log.Printf("WARNING: backup recovery failed (%v); starting with empty store", backupErr)
		t.records = make(map[string]*types.FileStatusRecord)
		return nil
	}

	log.Printf("Recovered %d records from backup %s", len(backup), t.BackupPath())
	t.records = backup
	return nil
}

// readTable reads and parses a status table file. A missing file is an
// empty table; unreadable files are *StorageIOError and unparsable
// content is *CorruptStoreError.
func readTable(path string) (map[string]*types.FileStatusRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]*types.FileStatusRecord), nil
		}
		return nil, &StorageIOError{Op: "load", Path: path, Err: err}
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(csvHeader)

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return make(map[string]*types.FileStatusRecord), nil
		}
		return nil, &CorruptStoreError{Path: path, Err: err}
	}
	if len(header) != len(csvHeader) || header[0] != csvHeader[0] {
		return nil, &CorruptStoreError{Path: path, Err: fmt.Errorf("unexpected header %v", header)}
	}

	records := make(map[string]*types.FileStatusRecord)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &CorruptStoreError{Path: path, Err: err}
		}

		record, err := rowToRecord(row)
		if err != nil {
			return nil, &CorruptStoreError{Path: path, Err: err}
		}
		records[record.RelativePath] = record
	}

	return records, nil
}

// save persists the full table atomically. The caller must hold t.mu.
// The current table is first copied to the backup location, then the new
// table is written to a temp file and swapped into place so readers never
// observe a partially written table.
func (t *Tracker) save() error {
	dir := filepath.Dir(t.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &StorageIOError{Op: "save", Path: t.path, Err: err}
	}

	if err := copyFile(t.path, t.BackupPath()); err != nil {
		return &StorageIOError{Op: "backup", Path: t.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".index_status-*.tmp")
	if err != nil {
		return &StorageIOError{Op: "save", Path: t.path, Err: err}
	}
	tmpName := tmp.Name()

	if err := writeTable(tmp, t.records); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &StorageIOError{Op: "save", Path: t.path, Err: err}
	}

	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return &StorageIOError{Op: "save", Path: t.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return &StorageIOError{Op: "save", Path: t.path, Err: err}
	}

	if err := os.Rename(tmpName, t.path); err != nil {
		_ = os.Remove(tmpName)
		return &StorageIOError{Op: "save", Path: t.path, Err: err}
	}

	return nil
}

// writeTable writes the header and all rows in a stable order.
func writeTable(w io.Writer, records map[string]*types.FileStatusRecord) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	paths := make([]string, 0, len(records))
	for path := range records {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := writer.Write(recordToRow(records[path])); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// copyFile copies src to dst, creating or truncating dst. A missing src
// is not an error (first save has nothing to back up).
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}

	return out.Close()
}

// Upsert inserts or replaces the record for its relative path and
// persists the table. Concurrent callers are serialized.
func (t *Tracker) Upsert(record *types.FileStatusRecord) error {
	if record == nil || record.RelativePath == "" {
		return fmt.Errorf("record must have a relative path")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.records[record.RelativePath] = cloneRecord(record)
	return t.save()
}

// UpsertBatch applies multiple record updates with a single save. Used by
// discovery to avoid one atomic rewrite per classified file.
func (t *Tracker) UpsertBatch(records []*types.FileStatusRecord) error {
	if len(records) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, record := range records {
		if record == nil || record.RelativePath == "" {
			return fmt.Errorf("record must have a relative path")
		}
		t.records[record.RelativePath] = cloneRecord(record)
	}
	return t.save()
}

// Get returns a copy of the record for the given relative path, or nil
// when the path has never been observed.
func (t *Tracker) Get(relativePath string) *types.FileStatusRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, ok := t.records[relativePath]
	if !ok {
		return nil
	}
	return cloneRecord(record)
}

// List returns copies of all records, optionally filtered by status.
// Results are ordered by relative path.
func (t *Tracker) List(filter *types.IndexingStatus) []*types.FileStatusRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := make([]*types.FileStatusRecord, 0, len(t.records))
	for _, record := range t.records {
		if filter != nil && record.IndexingStatus != *filter {
			continue
		}
		result = append(result, cloneRecord(record))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RelativePath < result[j].RelativePath
	})
	return result
}

// ListNeedingIndexing returns copies of all records the workflow should
// pick up: PENDING plus FAILED (retried every cycle).
func (t *Tracker) ListNeedingIndexing() []*types.FileStatusRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := make([]*types.FileStatusRecord, 0)
	for _, record := range t.records {
		if record.NeedsIndexing() {
			result = append(result, cloneRecord(record))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].RelativePath < result[j].RelativePath
	})
	return result
}

// Counts returns the number of records per status.
func (t *Tracker) Counts() map[types.IndexingStatus]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	counts := make(map[types.IndexingStatus]int)
	for _, record := range t.records {
		counts[record.IndexingStatus]++
	}
	return counts
}

// Len returns the number of tracked records.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.records)
}

// RequeueInterrupted reclassifies records left RUNNING by a previous
// process lifetime as FAILED so they are retried instead of presumed
// complete. Returns the number of requeued records.
func (t *Tracker) RequeueInterrupted(message string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	requeued := 0
	for _, record := range t.records {
		if record.IndexingStatus == types.StatusRunning {
			record.IndexingStatus = types.StatusFailed
			record.ErrorMessage = message
			requeued++
		}
	}

	if requeued == 0 {
		return 0, nil
	}
	return requeued, t.save()
}
