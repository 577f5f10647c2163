// Package fs implements the core.StorageAdapter port on the local filesystem.
//
// Writes are atomic (temp file + rename) and write/delete operations are
// serialized per path: a second request for the same path queues behind any
// in-flight operation rather than racing it. A single shared fsnotify watcher
// fans change notifications out to per-file callbacks.
package fs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/aretw0/lifecycle"
	"github.com/fsnotify/fsnotify"

	"github.com/telmoq/stickysync/pkg/core"
)

// Adapter is the filesystem storage adapter.
type Adapter struct {
	logger *slog.Logger

	pathMu    sync.Mutex
	pathLocks map[string]*sync.Mutex

	watchMu   sync.Mutex
	watcher   *fsnotify.Watcher
	watchDirs map[string]int
	callbacks map[string]map[int]func()
	nextToken int

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an Adapter. logger may be nil.
func New(logger *slog.Logger) *Adapter {
	ctx, cancel := context.WithCancel(context.Background())
	return &Adapter{
		logger:    logger,
		pathLocks: make(map[string]*sync.Mutex),
		watchDirs: make(map[string]int),
		callbacks: make(map[string]map[int]func()),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// lockPath serializes operations for a single path and returns the unlock.
func (a *Adapter) lockPath(path string) func() {
	a.pathMu.Lock()
	mu, ok := a.pathLocks[path]
	if !ok {
		mu = &sync.Mutex{}
		a.pathLocks[path] = mu
	}
	a.pathMu.Unlock()

	mu.Lock()
	return mu.Unlock
}

// guard converts adapter-internal panics into storage errors.
func guard(op, path string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.StorageError{Op: op, Path: path, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	return fn()
}

func (a *Adapter) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var text string
	err := guard("read", path, func() error {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return &core.StorageError{Op: "read", Path: path, Err: core.ErrNotFound}
		}
		if err != nil {
			return &core.StorageError{Op: "read", Path: path, Err: err}
		}
		text = string(data)
		return nil
	})
	return text, err
}

func (a *Adapter) Write(ctx context.Context, path string, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := a.lockPath(path)
	defer unlock()

	return guard("write", path, func() error {
		if err := writeNoteAtomic(path, []byte(text)); err != nil {
			return &core.StorageError{Op: "write", Path: path, Err: err}
		}
		return nil
	})
}

func (a *Adapter) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	unlock := a.lockPath(path)
	defer unlock()

	return guard("delete", path, func() error {
		err := os.Remove(path)
		if os.IsNotExist(err) {
			return &core.StorageError{Op: "delete", Path: path, Err: core.ErrNotFound}
		}
		if err != nil {
			return &core.StorageError{Op: "delete", Path: path, Err: err}
		}
		return nil
	})
}

func (a *Adapter) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, &core.StorageError{Op: "stat", Path: path, Err: err}
	}
	return true, nil
}

func (a *Adapter) List(ctx context.Context, folder string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(folder)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &core.StorageError{Op: "list", Path: folder, Err: err}
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (a *Adapter) CreateFolder(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return &core.StorageError{Op: "mkdir", Path: path, Err: err}
	}
	return nil
}

// Rename implements the optional core.Renamer capability.
func (a *Adapter) Rename(ctx context.Context, oldPath, newPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	// Both path locks are taken in lexical order so that crossing renames
	// cannot deadlock each other.
	first, second := oldPath, newPath
	if second < first {
		first, second = second, first
	}
	unlock := a.lockPath(first)
	defer unlock()
	if first != second {
		unlockSecond := a.lockPath(second)
		defer unlockSecond()
	}

	return guard("rename", oldPath, func() error {
		if err := os.Rename(oldPath, newPath); err != nil {
			return &core.StorageError{Op: "rename", Path: oldPath, Err: err}
		}
		return nil
	})
}

// Cleanup releases the shared watcher and cancels its event loop.
func (a *Adapter) Cleanup() error {
	a.cancel()

	a.watchMu.Lock()
	defer a.watchMu.Unlock()

	a.callbacks = make(map[string]map[int]func())
	a.watchDirs = make(map[string]int)
	if a.watcher != nil {
		err := a.watcher.Close()
		a.watcher = nil
		return err
	}
	return nil
}

var (
	_ core.StorageAdapter = (*Adapter)(nil)
	_ core.Renamer        = (*Adapter)(nil)
)

// --- watching ---

// WatchFile registers fn for external changes to path. The parent directory
// is watched rather than the file itself: editors and atomic writers replace
// files by rename, which would silently detach a per-file watch.
func (a *Adapter) WatchFile(path string, fn func()) (func(), error) {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)

	a.watchMu.Lock()
	defer a.watchMu.Unlock()

	if a.callbacks == nil {
		a.callbacks = make(map[string]map[int]func())
	}

	if a.watcher == nil {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return nil, &core.StorageError{Op: "watch", Path: path, Err: err}
		}
		a.watcher = watcher
		a.startEventLoop()
	}

	if a.watchDirs[dir] == 0 {
		if err := a.watcher.Add(dir); err != nil {
			return nil, &core.StorageError{Op: "watch", Path: dir, Err: err}
		}
	}
	a.watchDirs[dir]++

	token := a.nextToken
	a.nextToken++
	if a.callbacks[path] == nil {
		a.callbacks[path] = make(map[int]func())
	}
	a.callbacks[path][token] = fn

	var once sync.Once
	return func() {
		once.Do(func() { a.unwatch(path, dir, token) })
	}, nil
}

func (a *Adapter) unwatch(path, dir string, token int) {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()

	if fns, ok := a.callbacks[path]; ok {
		delete(fns, token)
		if len(fns) == 0 {
			delete(a.callbacks, path)
		}
	}
	if a.watchDirs[dir] > 0 {
		a.watchDirs[dir]--
		if a.watchDirs[dir] == 0 {
			delete(a.watchDirs, dir)
			if a.watcher != nil {
				_ = a.watcher.Remove(dir)
			}
		}
	}
}

func (a *Adapter) startEventLoop() {
	watcher := a.watcher
	lifecycle.Go(a.ctx, func(ctx context.Context) error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				a.dispatch(event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				if a.logger != nil {
					a.logger.Error("fsnotify error", "error", err)
				}
			}
		}
	}, lifecycle.WithErrorHandler(func(err error) {
		if a.logger != nil {
			a.logger.Error("watch loop panic", "error", err)
		}
	}))
}

func (a *Adapter) dispatch(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return
	}

	path := filepath.Clean(event.Name)

	a.watchMu.Lock()
	fns := make([]func(), 0, len(a.callbacks[path]))
	for _, fn := range a.callbacks[path] {
		fns = append(fns, fn)
	}
	a.watchMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
