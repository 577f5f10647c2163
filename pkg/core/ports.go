package core

import "context"

// StorageAdapter defines the contract for the external file store. The core
// never touches the filesystem directly; adhering to this interface keeps it
// independent of the underlying storage mechanism.
//
// Implementations must return errors rather than panic; internal panics are
// the adapter's responsibility to catch and convert.
type StorageAdapter interface {
	// Read returns the full text content of the file at path.
	Read(ctx context.Context, path string) (string, error)

	// Write replaces the file at path with text, creating it if needed.
	Write(ctx context.Context, path string, text string) error

	// Delete removes the file at path.
	Delete(ctx context.Context, path string) error

	// Exists reports whether a file exists at path.
	Exists(ctx context.Context, path string) (bool, error)

	// List returns the names of the entries directly under folder.
	List(ctx context.Context, folder string) ([]string, error)

	// CreateFolder ensures the folder exists, creating parents as needed.
	CreateFolder(ctx context.Context, path string) error

	// WatchFile registers fn to be called whenever the file at path changes
	// outside this process. It returns an unsubscribe function.
	WatchFile(path string, fn func()) (func(), error)

	// Cleanup releases watcher resources held by the adapter.
	Cleanup() error
}

// Renamer is an optional StorageAdapter capability. Adapters that cannot
// rename natively are handled by the repository's read/write/delete fallback.
type Renamer interface {
	Rename(ctx context.Context, oldPath, newPath string) error
}

// Lister is the minimal listing capability the sequential naming strategy
// needs to scan existing file names.
type Lister func(ctx context.Context, folder string) ([]string, error)

// Handler receives events published on the bus.
type Handler func(topic string, payload any)

// EventBus is the publish/subscribe capability the core consumes. Subscribe
// accepts wildcard patterns (e.g. "note.*" or "**"); it returns an
// unsubscribe function.
type EventBus interface {
	Subscribe(pattern string, h Handler) (func(), error)
	Emit(topic string, payload any)
}
