package workflow

import "context"

// Ingestor is the external ingestion collaborator: it turns file content
// into downstream index entries and removes them. Both operations are
// potentially slow, fallible, and idempotent; re-ingesting an
// already-ingested file must not corrupt the downstream index.
type Ingestor interface {
	// Ingest indexes the content of the file at the given relative path.
	Ingest(ctx context.Context, relativePath string, content string) error

	// Remove deletes the downstream index entry for the given relative path.
	Remove(ctx context.Context, relativePath string) error

	// ValidateConnection checks if the ingestion backend is accessible.
	ValidateConnection(ctx context.Context) error
}

// ContentReader provides file content for ingestion. The discovery
// scanner satisfies this.
type ContentReader interface {
	ReadFileContent(relativePath string) (string, error)
}
