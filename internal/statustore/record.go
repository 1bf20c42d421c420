package statustore

import (
	"fmt"
	"time"

	"github.com/localmind/indexd/internal/types"
)

// csvHeader is the durable column set of the status table. Any external
// reader or writer of the table must preserve this order.
var csvHeader = []string{
	"filename",
	"file_extension",
	"relative_path",
	"indexing_status",
	"last_modified_time",
	"last_indexed_time",
	"error_message",
}

// recordToRow converts a record to one CSV row.
func recordToRow(r *types.FileStatusRecord) []string {
	lastIndexed := ""
	if r.LastIndexedTime != nil {
		lastIndexed = r.LastIndexedTime.Format(time.RFC3339Nano)
	}

	return []string{
		r.Filename,
		r.FileExtension,
		r.RelativePath,
		string(r.IndexingStatus),
		r.LastModifiedTime.Format(time.RFC3339Nano),
		lastIndexed,
		r.ErrorMessage,
	}
}

// rowToRecord parses one CSV row back into a record.
func rowToRecord(row []string) (*types.FileStatusRecord, error) {
	if len(row) != len(csvHeader) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(row))
	}

	status, err := types.ParseIndexingStatus(row[3])
	if err != nil {
		return nil, err
	}

	if row[2] == "" {
		return nil, fmt.Errorf("relative_path cannot be empty")
	}

	lastModified, err := time.Parse(time.RFC3339Nano, row[4])
	if err != nil {
		return nil, fmt.Errorf("invalid last_modified_time %q: %w", row[4], err)
	}

	var lastIndexed *time.Time
	if row[5] != "" {
		t, err := time.Parse(time.RFC3339Nano, row[5])
		if err != nil {
			return nil, fmt.Errorf("invalid last_indexed_time %q: %w", row[5], err)
		}
		lastIndexed = &t
	}

	return &types.FileStatusRecord{
		Filename:         row[0],
		FileExtension:    row[1],
		RelativePath:     row[2],
		IndexingStatus:   status,
		LastModifiedTime: lastModified,
		LastIndexedTime:  lastIndexed,
		ErrorMessage:     row[6],
	}, nil
}

// cloneRecord returns a copy so callers never share memory with the store.
func cloneRecord(r *types.FileStatusRecord) *types.FileStatusRecord {
	clone := *r
	if r.LastIndexedTime != nil {
		t := *r.LastIndexedTime
		clone.LastIndexedTime = &t
	}
	return &clone
}
