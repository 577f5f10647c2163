package core

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrNotFound signals an operation on an unknown id or path. Never retried.
	ErrNotFound = errors.New("note not found")

	// ErrConflictUnresolved signals the resolver could not produce a result.
	// Fatal for that sync attempt only.
	ErrConflictUnresolved = errors.New("conflict could not be resolved")
)

// ValidationError rejects caller input (e.g. an empty id). Never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// StorageError wraps an adapter-level I/O failure. Storage errors are
// considered transient and retryable by the sync manager.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// SyncError reports exhausted retries for a single logical sync.
type SyncError struct {
	ID       string
	Attempts int
	Err      error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync for %s failed after %d attempts: %v", e.ID, e.Attempts, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }

// Retryable reports whether err is worth retrying. Validation and not-found
// failures are returned to the caller immediately; everything else that came
// out of a storage adapter is treated as transient.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflictUnresolved) {
		return false
	}
	return true
}
