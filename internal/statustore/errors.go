package statustore

import "fmt"

// StorageIOError indicates a disk failure while loading or saving the
// status table. Outside of startup this is transient: callers log it and
// retry on the next cycle.
type StorageIOError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageIOError) Error() string {
	return fmt.Sprintf("status store %s failed for %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageIOError) Unwrap() error {
	return e.Err
}

// CorruptStoreError indicates the persisted table could not be parsed.
// The tracker recovers from the backup when possible; if that also fails
// the store is treated as empty and rebuilt by discovery.
type CorruptStoreError struct {
	Path string
	Err  error
}

func (e *CorruptStoreError) Error() string {
	return fmt.Sprintf("status store at %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptStoreError) Unwrap() error {
	return e.Err
}
