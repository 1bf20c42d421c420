package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localmind/indexd/internal/statustore"
	"github.com/localmind/indexd/internal/types"
)

// mockIngestor is a hand-written Ingestor with pluggable behaviour.
type mockIngestor struct {
	mu       sync.Mutex
	ingested []string
	removed  []string

	ingestFn func(ctx context.Context, relativePath, content string) error
	removeFn func(ctx context.Context, relativePath string) error
}

func (m *mockIngestor) Ingest(ctx context.Context, relativePath, content string) error {
	m.mu.Lock()
	m.ingested = append(m.ingested, relativePath)
	m.mu.Unlock()

	if m.ingestFn != nil {
		return m.ingestFn(ctx, relativePath, content)
	}
	return nil
}

func (m *mockIngestor) Remove(ctx context.Context, relativePath string) error {
	m.mu.Lock()
	m.removed = append(m.removed, relativePath)
	m.mu.Unlock()

	if m.removeFn != nil {
		return m.removeFn(ctx, relativePath)
	}
	return nil
}

func (m *mockIngestor) ValidateConnection(ctx context.Context) error {
	return nil
}

// mockReader serves content from a map.
type mockReader struct {
	content map[string]string
}

func (m *mockReader) ReadFileContent(relativePath string) (string, error) {
	content, ok := m.content[relativePath]
	if !ok {
		return "", fmt.Errorf("no such file: %s", relativePath)
	}
	return content, nil
}

func newTestDriver(t *testing.T, ingestor Ingestor, reader ContentReader) (*Driver, *statustore.Tracker) {
	t.Helper()

	tracker, err := statustore.NewTracker(filepath.Join(t.TempDir(), "status.csv"))
	require.NoError(t, err)

	driver, err := NewDriver(tracker, reader, ingestor, Config{
		Concurrency:   2,
		IngestTimeout: time.Second,
	})
	require.NoError(t, err)

	return driver, tracker
}

func pendingRecord(t *testing.T, tracker *statustore.Tracker, rel string) *types.FileStatusRecord {
	t.Helper()

	record := types.NewPendingRecord(rel, time.Now().UTC())
	require.NoError(t, tracker.Upsert(record))
	return record
}

func TestDriver_SuccessfulIngestion(t *testing.T) {
	ingestor := &mockIngestor{}
	reader := &mockReader{content: map[string]string{"a.md": "# a", "b.md": "# b"}}
	driver, tracker := newTestDriver(t, ingestor, reader)

	scan := &types.ScanResult{
		ToIndex: []*types.FileStatusRecord{
			pendingRecord(t, tracker, "a.md"),
			pendingRecord(t, tracker, "b.md"),
		},
	}

	result := driver.Run(context.Background(), scan)
	assert.Equal(t, 2, result.IndexedCount)
	assert.Equal(t, 0, result.FailedCount)

	for _, rel := range []string{"a.md", "b.md"} {
		record := tracker.Get(rel)
		require.NotNil(t, record)
		assert.Equal(t, types.StatusComplete, record.IndexingStatus)
		require.NotNil(t, record.LastIndexedTime)
		assert.Empty(t, record.ErrorMessage)
	}
}

func TestDriver_RunningCommittedBeforeIngestion(t *testing.T) {
	var observed types.IndexingStatus

	reader := &mockReader{content: map[string]string{"a.md": "# a"}}
	driver, tracker := newTestDriver(t, &mockIngestor{}, reader)

	ingestor := &mockIngestor{
		ingestFn: func(ctx context.Context, relativePath, content string) error {
			observed = tracker.Get(relativePath).IndexingStatus
			return nil
		},
	}
	driver.ingestor = ingestor

	driver.Run(context.Background(), &types.ScanResult{
		ToIndex: []*types.FileStatusRecord{pendingRecord(t, tracker, "a.md")},
	})

	assert.Equal(t, types.StatusRunning, observed)
}

func TestDriver_IngestionFailure(t *testing.T) {
	ingestor := &mockIngestor{
		ingestFn: func(ctx context.Context, relativePath, content string) error {
			return fmt.Errorf("backend unavailable")
		},
	}
	reader := &mockReader{content: map[string]string{"c.txt": "ccc"}}
	driver, tracker := newTestDriver(t, ingestor, reader)

	record := pendingRecord(t, tracker, "c.txt")
	earlier := time.Now().Add(-time.Hour).UTC()
	record.LastIndexedTime = &earlier
	require.NoError(t, tracker.Upsert(record))

	result := driver.Run(context.Background(), &types.ScanResult{
		ToIndex: []*types.FileStatusRecord{record},
	})
	assert.Equal(t, 1, result.FailedCount)

	after := tracker.Get("c.txt")
	assert.Equal(t, types.StatusFailed, after.IndexingStatus)
	assert.Equal(t, "backend unavailable", after.ErrorMessage)
	// Prior successful timestamp preserved as history.
	require.NotNil(t, after.LastIndexedTime)
	assert.True(t, after.LastIndexedTime.Equal(earlier))
}

func TestDriver_IngestionTimeout(t *testing.T) {
	ingestor := &mockIngestor{
		ingestFn: func(ctx context.Context, relativePath, content string) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	reader := &mockReader{content: map[string]string{"slow.md": "x"}}

	tracker, err := statustore.NewTracker(filepath.Join(t.TempDir(), "status.csv"))
	require.NoError(t, err)
	driver, err := NewDriver(tracker, reader, ingestor, Config{
		Concurrency:   1,
		IngestTimeout: 20 * time.Millisecond,
	})
	require.NoError(t, err)

	result := driver.Run(context.Background(), &types.ScanResult{
		ToIndex: []*types.FileStatusRecord{pendingRecord(t, tracker, "slow.md")},
	})
	assert.Equal(t, 1, result.FailedCount)

	record := tracker.Get("slow.md")
	assert.Equal(t, types.StatusFailed, record.IndexingStatus)
	assert.Contains(t, record.ErrorMessage, "deadline exceeded")
}

func TestDriver_UnreadableFileFails(t *testing.T) {
	ingestor := &mockIngestor{}
	reader := &mockReader{content: map[string]string{}}
	driver, tracker := newTestDriver(t, ingestor, reader)

	result := driver.Run(context.Background(), &types.ScanResult{
		ToIndex: []*types.FileStatusRecord{pendingRecord(t, tracker, "ghost.md")},
	})
	assert.Equal(t, 1, result.FailedCount)
	assert.Empty(t, ingestor.ingested)
	assert.Equal(t, types.StatusFailed, tracker.Get("ghost.md").IndexingStatus)
}

func TestDriver_DeletionMarksRecordAfterRemoval(t *testing.T) {
	ingestor := &mockIngestor{}
	driver, tracker := newTestDriver(t, ingestor, &mockReader{})

	record := pendingRecord(t, tracker, "gone.md")
	record.IndexingStatus = types.StatusComplete
	indexed := time.Now().UTC()
	record.LastIndexedTime = &indexed
	require.NoError(t, tracker.Upsert(record))

	result := driver.Run(context.Background(), &types.ScanResult{
		Deleted: []*types.FileStatusRecord{record},
	})
	assert.Equal(t, 1, result.RemovedCount)
	assert.Equal(t, []string{"gone.md"}, ingestor.removed)

	after := tracker.Get("gone.md")
	assert.Equal(t, types.StatusDeletedFromStore, after.IndexingStatus)
	assert.Empty(t, after.ErrorMessage)
	require.NotNil(t, after.LastIndexedTime)
}

func TestDriver_FailedRemovalLeavesStatus(t *testing.T) {
	ingestor := &mockIngestor{
		removeFn: func(ctx context.Context, relativePath string) error {
			return fmt.Errorf("index unreachable")
		},
	}
	driver, tracker := newTestDriver(t, ingestor, &mockReader{})

	record := pendingRecord(t, tracker, "stuck.md")
	record.IndexingStatus = types.StatusComplete
	require.NoError(t, tracker.Upsert(record))

	result := driver.Run(context.Background(), &types.ScanResult{
		Deleted: []*types.FileStatusRecord{record},
	})
	assert.Equal(t, 0, result.RemovedCount)

	// Record keeps its prior status so the removal is retried next cycle.
	assert.Equal(t, types.StatusComplete, tracker.Get("stuck.md").IndexingStatus)
}

func TestDriver_RecoverInterrupted(t *testing.T) {
	driver, tracker := newTestDriver(t, &mockIngestor{}, &mockReader{})

	record := pendingRecord(t, tracker, "crashed.md")
	record.IndexingStatus = types.StatusRunning
	require.NoError(t, tracker.Upsert(record))

	require.NoError(t, driver.RecoverInterrupted())

	after := tracker.Get("crashed.md")
	assert.Equal(t, types.StatusFailed, after.IndexingStatus)
	assert.Contains(t, after.ErrorMessage, "interrupted")
	assert.True(t, after.NeedsIndexing())
}

func TestDriver_ConcurrentProcessingIsSerializedThroughTracker(t *testing.T) {
	content := make(map[string]string)
	var records []*types.FileStatusRecord

	tracker, err := statustore.NewTracker(filepath.Join(t.TempDir(), "status.csv"))
	require.NoError(t, err)

	for i := 0; i < 12; i++ {
		rel := fmt.Sprintf("f%02d.md", i)
		content[rel] = "data"
		record := types.NewPendingRecord(rel, time.Now().UTC())
		require.NoError(t, tracker.Upsert(record))
		records = append(records, record)
	}

	driver, err := NewDriver(tracker, &mockReader{content: content}, &mockIngestor{}, Config{
		Concurrency:   4,
		IngestTimeout: time.Second,
	})
	require.NoError(t, err)

	result := driver.Run(context.Background(), &types.ScanResult{ToIndex: records})
	assert.Equal(t, 12, result.IndexedCount)

	complete := types.StatusComplete
	assert.Len(t, tracker.List(&complete), 12)
}
