package metrics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localmind/indexd/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStoreWithPath(filepath.Join(t.TempDir(), "cycles.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleResult(indexed, failed int) *types.CycleResult {
	return &types.CycleResult{
		Scan: &types.ScanResult{
			ScannedCount:  indexed + failed,
			NewCount:      indexed,
			ModifiedCount: 0,
			DeletedCount:  0,
		},
		IndexedCount: indexed,
		FailedCount:  failed,
		StartTime:    time.Now(),
		Duration:     1500 * time.Millisecond,
	}
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.RecordCycle(sampleResult(3, 1)))
	require.NoError(t, store.RecordCycle(sampleResult(5, 0)))

	records, err := store.RecentCycles(10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, 5, records[0].IndexedCount)
	assert.Equal(t, 3, records[1].IndexedCount)
	assert.Equal(t, 1, records[1].FailedCount)
	assert.Equal(t, int64(1500), records[0].DurationMS)
}

func TestStore_RecentCyclesLimit(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordCycle(sampleResult(i, 0)))
	}

	records, err := store.RecentCycles(3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, 4, records[0].IndexedCount)
}

func TestStore_Totals(t *testing.T) {
	store := newTestStore(t)

	indexed, failed, err := store.Totals()
	require.NoError(t, err)
	assert.Zero(t, indexed)
	assert.Zero(t, failed)

	require.NoError(t, store.RecordCycle(sampleResult(4, 2)))
	require.NoError(t, store.RecordCycle(sampleResult(6, 1)))

	indexed, failed, err = store.Totals()
	require.NoError(t, err)
	assert.Equal(t, int64(10), indexed)
	assert.Equal(t, int64(3), failed)
}

func TestStore_CycleCount(t *testing.T) {
	store := newTestStore(t)

	count, err := store.CycleCount()
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, store.RecordCycle(sampleResult(1, 0)))
	count, err = store.CycleCount()
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestStore_RejectsIncompleteResult(t *testing.T) {
	store := newTestStore(t)

	assert.Error(t, store.RecordCycle(nil))
	assert.Error(t, store.RecordCycle(&types.CycleResult{}))
}

func TestGlobalRecordCycleResult(t *testing.T) {
	ResetForTesting()
	t.Cleanup(ResetForTesting)

	store := newTestStore(t)
	SetStoreForTesting(store)

	RecordCycleResult(sampleResult(2, 0))

	indexed, failed := GetTotals()
	assert.Equal(t, int64(2), indexed)
	assert.Zero(t, failed)
	assert.Equal(t, int64(1), GetCycleCount())
}
