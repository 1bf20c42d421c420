package metrics

import (
	"log"
	"sync"

	"github.com/localmind/indexd/internal/types"
)

var (
	globalStore *Store
	initOnce    sync.Once
	initErr     error
)

// Init initializes the global cycle history store.
// This should be called once at application startup.
// It is safe to call multiple times; subsequent calls are no-ops.
func Init() error {
	initOnce.Do(func() {
		globalStore, initErr = NewStore()
		if initErr != nil {
			log.Printf("metrics: failed to initialize store: %v", initErr)
		}
	})
	return initErr
}

// InitWithPath initializes the global store at a specific database path.
func InitWithPath(dbPath string) error {
	initOnce.Do(func() {
		globalStore, initErr = NewStoreWithPath(dbPath)
		if initErr != nil {
			log.Printf("metrics: failed to initialize store: %v", initErr)
		}
	})
	return initErr
}

// RecordCycleResult persists one cycle result to the history.
// If the store is not initialized, this is a no-op (logs a warning).
func RecordCycleResult(result *types.CycleResult) {
	if globalStore == nil {
		if err := Init(); err != nil {
			log.Printf("metrics: cannot record cycle, store not initialized: %v", err)
			return
		}
	}

	if err := globalStore.RecordCycle(result); err != nil {
		log.Printf("metrics: failed to record cycle: %v", err)
	}
}

// GetTotals returns cumulative indexed and failed counts across all cycles.
// Returns zeros if the store is not initialized.
func GetTotals() (indexed, failed int64) {
	if globalStore == nil {
		return 0, 0
	}

	indexed, failed, err := globalStore.Totals()
	if err != nil {
		log.Printf("metrics: failed to get totals: %v", err)
		return 0, 0
	}
	return indexed, failed
}

// GetCycleCount returns the number of recorded cycles, or 0 if the store is
// not initialized.
func GetCycleCount() int64 {
	if globalStore == nil {
		return 0
	}

	count, err := globalStore.CycleCount()
	if err != nil {
		log.Printf("metrics: failed to count cycles: %v", err)
		return 0
	}
	return count
}

// Close closes the global store.
// Should be called at application shutdown.
func Close() error {
	if globalStore != nil {
		return globalStore.Close()
	}
	return nil
}

// GetStore returns the global store instance.
// This is primarily for testing purposes.
func GetStore() *Store {
	return globalStore
}

// SetStoreForTesting sets the global store instance for testing purposes.
// This should only be used in tests.
func SetStoreForTesting(store *Store) {
	globalStore = store
}

// ResetForTesting resets the global state for testing purposes.
// This should only be used in tests.
func ResetForTesting() {
	if globalStore != nil {
		_ = globalStore.Close()
	}
	globalStore = nil
	initOnce = sync.Once{}
	initErr = nil
}
