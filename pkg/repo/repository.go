// Package repo mediates between the in-memory note cache and the external
// file store. It owns the cache, drives persistence through the storage
// adapter, encodes/decodes the persisted record format, and tracks per-note
// file-watch subscriptions.
package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/telmoq/stickysync/pkg/core"
	"github.com/telmoq/stickysync/pkg/restore"
)

// DefaultSettleDelay is how long an external-change handler waits before
// re-reading, to avoid reading a just-created empty file.
const DefaultSettleDelay = 100 * time.Millisecond

// Config holds the repository's collaborators.
type Config struct {
	Adapter   core.StorageAdapter
	Bus       core.EventBus
	Validator *restore.Validator
	Logger    *slog.Logger
	Folder    string
	// SettleDelay overrides DefaultSettleDelay. Zero means default.
	SettleDelay time.Duration
}

// Repository implements note persistence over a storage adapter.
type Repository struct {
	adapter   core.StorageAdapter
	bus       core.EventBus
	validator *restore.Validator
	logger    *slog.Logger
	folder    string
	settle    time.Duration

	cache *noteCache

	watchMu  sync.Mutex
	watchers map[string]func()

	stateMu sync.RWMutex
	states  map[string]core.SyncStatus
}

// New creates a Repository.
func New(cfg Config) (*Repository, error) {
	if cfg.Adapter == nil {
		return nil, errors.New("repository requires a storage adapter")
	}
	if cfg.Bus == nil {
		return nil, errors.New("repository requires an event bus")
	}
	if cfg.Validator == nil {
		cfg.Validator = restore.New(core.DefaultBounds(), cfg.Logger)
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = DefaultSettleDelay
	}
	return &Repository{
		adapter:   cfg.Adapter,
		bus:       cfg.Bus,
		validator: cfg.Validator,
		logger:    cfg.Logger,
		folder:    cfg.Folder,
		settle:    cfg.SettleDelay,
		cache:     newNoteCache(),
		watchers:  make(map[string]func()),
		states:    make(map[string]core.SyncStatus),
	}, nil
}

// Folder returns the configured notes folder.
func (r *Repository) Folder() string { return r.folder }

// Save encodes the note, ensures the parent folder exists, writes through the
// storage adapter, updates the cache and (re)installs a change watch on the
// note's path.
func (r *Repository) Save(ctx context.Context, n core.Note) error {
	if n.ID == "" {
		return &core.ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if n.FilePath == "" {
		return &core.ValidationError{Field: "filePath", Reason: "must not be empty"}
	}

	data, err := encodeNote(n)
	if err != nil {
		return err
	}

	if err := r.adapter.CreateFolder(ctx, filepath.Dir(n.FilePath)); err != nil {
		return err
	}
	if err := r.adapter.Write(ctx, n.FilePath, string(data)); err != nil {
		return err
	}

	r.cache.Set(n)
	r.setState(n.ID, core.StatusSaved)
	r.installWatch(n.ID, n.FilePath)
	r.bus.Emit(core.TopicNoteSaved, core.SavedEvent{ID: n.ID, Note: n.Clone()})
	return nil
}

// FindByID prefers the cache; an unknown id is ErrNotFound.
func (r *Repository) FindByID(_ context.Context, id string) (core.Note, error) {
	if n, ok := r.cache.Get(id); ok {
		return n, nil
	}
	return core.Note{}, fmt.Errorf("find %s: %w", id, core.ErrNotFound)
}

// FindAll performs a full scan of the configured folder, decoding each
// candidate file. Files without the marker tag are not ours and are skipped;
// decoding failures are logged and skipped, never fatal to the scan. Every
// discovered note is cached and watched.
func (r *Repository) FindAll(ctx context.Context) ([]core.Note, error) {
	names, err := r.adapter.List(ctx, r.folder)
	if err != nil {
		return nil, err
	}

	var notes []core.Note
	for _, name := range names {
		if !strings.HasSuffix(name, ".md") {
			continue
		}
		path := filepath.Join(r.folder, name)
		text, err := r.adapter.Read(ctx, path)
		if err != nil {
			r.logWarn("scan read failed", "path", path, "error", err)
			continue
		}
		n, warns, err := decodeNote(text, r.validator)
		if errors.Is(err, errNotRecord) {
			continue
		}
		if err != nil {
			r.logWarn("scan decode failed", "path", path, "error", err)
			continue
		}
		if len(warns) > 0 {
			r.logWarn("restored note with corrections", "path", path, "corrections", len(warns))
		}
		n.FilePath = path
		r.cache.Set(n)
		r.installWatch(n.ID, path)
		notes = append(notes, n)
	}

	sort.Slice(notes, func(i, j int) bool {
		if !notes[i].Metadata.Created.Equal(notes[j].Metadata.Created) {
			return notes[i].Metadata.Created.Before(notes[j].Metadata.Created)
		}
		return notes[i].ID < notes[j].ID
	})
	return notes, nil
}

// UpdateRequest is a partial-note patch. Nil pointers leave fields untouched.
type UpdateRequest struct {
	Title      *string
	Content    *string
	Position   *core.Position
	Dimensions *core.Dimensions
	Appearance AppearancePatch
	Completed  *bool

	// Nil slices leave the set unchanged; non-nil replaces it.
	Tags        []string
	Links       []string
	Attachments []string
}

// AppearancePatch shallow-merges into the current appearance.
type AppearancePatch struct {
	Color    *core.Color
	Size     *core.Size
	Rotation *float64
}

// Merge reads the current note and applies req without persisting. Modified
// is bumped, never backwards.
func (r *Repository) Merge(ctx context.Context, id string, req UpdateRequest) (core.Note, error) {
	n, err := r.FindByID(ctx, id)
	if err != nil {
		return core.Note{}, err
	}

	if req.Title != nil {
		n.Title = *req.Title
	}
	if req.Content != nil {
		n.Content = *req.Content
	}
	if req.Position != nil {
		n.Position = *req.Position
	}
	if req.Dimensions != nil {
		n.Dimensions = *req.Dimensions
	}
	if req.Appearance.Color != nil {
		n.Appearance.Color = *req.Appearance.Color
	}
	if req.Appearance.Size != nil {
		n.Appearance.Size = *req.Appearance.Size
	}
	if req.Appearance.Rotation != nil {
		n.Appearance.Rotation = *req.Appearance.Rotation
	}
	if req.Completed != nil {
		n.Completed = *req.Completed
	}
	if req.Tags != nil {
		n.Metadata.Tags = req.Tags
	}
	if req.Links != nil {
		n.Metadata.Links = req.Links
	}
	if req.Attachments != nil {
		n.Metadata.Attachments = req.Attachments
	}

	now := time.Now()
	if now.After(n.Metadata.Modified) {
		n.Metadata.Modified = now
	}
	return n, nil
}

// Update is a read-merge-write: Merge followed by Save.
func (r *Repository) Update(ctx context.Context, id string, req UpdateRequest) (core.Note, error) {
	n, err := r.Merge(ctx, id, req)
	if err != nil {
		return core.Note{}, err
	}
	if err := r.Save(ctx, n); err != nil {
		return core.Note{}, err
	}
	return n, nil
}

// Delete removes the persisted file, purges the cache entry and the file
// watcher, and emits a deletion notification.
func (r *Repository) Delete(ctx context.Context, id string) error {
	n, ok := r.cache.Get(id)
	if !ok {
		return fmt.Errorf("delete %s: %w", id, core.ErrNotFound)
	}

	if err := r.adapter.Delete(ctx, n.FilePath); err != nil && !errors.Is(err, core.ErrNotFound) {
		return err
	}

	r.removeWatch(id)
	r.cache.Delete(id)
	r.clearState(id)
	r.bus.Emit(core.TopicNoteDeleted, core.DeletedEvent{ID: id, FilePath: n.FilePath})
	return nil
}

// Exists checks the cache first, then the file store.
func (r *Repository) Exists(ctx context.Context, id string) (bool, error) {
	n, ok := r.cache.Get(id)
	if !ok {
		return false, nil
	}
	return r.adapter.Exists(ctx, n.FilePath)
}

// Rename moves the note's persisted file. When the adapter lacks a native
// rename it falls back to read-old, write-new, delete-old; any step's failure
// undoes already-applied steps and restores the prior file watcher before
// returning the error.
func (r *Repository) Rename(ctx context.Context, id string, newName string) (core.Note, error) {
	n, ok := r.cache.Get(id)
	if !ok {
		return core.Note{}, fmt.Errorf("rename %s: %w", id, core.ErrNotFound)
	}

	if !strings.HasSuffix(newName, ".md") {
		newName += ".md"
	}
	newPath := filepath.Join(r.folder, newName)
	if newPath == n.FilePath {
		return n, nil
	}

	oldPath := n.FilePath
	r.removeWatch(id)

	if ren, ok := r.adapter.(core.Renamer); ok {
		if err := ren.Rename(ctx, oldPath, newPath); err != nil {
			r.installWatch(id, oldPath)
			return core.Note{}, err
		}
	} else {
		text, err := r.adapter.Read(ctx, oldPath)
		if err != nil {
			r.installWatch(id, oldPath)
			return core.Note{}, err
		}
		if err := r.adapter.Write(ctx, newPath, text); err != nil {
			r.installWatch(id, oldPath)
			return core.Note{}, err
		}
		if err := r.adapter.Delete(ctx, oldPath); err != nil {
			// Undo the copy so we do not leave two live files behind.
			if cleanupErr := r.adapter.Delete(ctx, newPath); cleanupErr != nil {
				r.logWarn("rename rollback failed", "path", newPath, "error", cleanupErr)
			}
			r.installWatch(id, oldPath)
			return core.Note{}, err
		}
	}

	n.FilePath = newPath
	r.cache.Set(n)
	r.installWatch(id, newPath)
	return n, nil
}

// NoteSyncState reports the last-known persistence state for one note.
func (r *Repository) NoteSyncState(id string) core.SyncStatus {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	if s, ok := r.states[id]; ok {
		return s
	}
	return core.StatusIdle
}

// StopWatching cancels every per-note file watcher.
func (r *Repository) StopWatching() {
	r.watchMu.Lock()
	defer r.watchMu.Unlock()
	for id, unsub := range r.watchers {
		unsub()
		delete(r.watchers, id)
		r.bus.Emit(core.TopicWatchStopped, core.WatchEvent{ID: id})
	}
}

// --- internals ---

func (r *Repository) setState(id string, s core.SyncStatus) {
	r.stateMu.Lock()
	r.states[id] = s
	r.stateMu.Unlock()
}

func (r *Repository) clearState(id string) {
	r.stateMu.Lock()
	delete(r.states, id)
	r.stateMu.Unlock()
}

// installWatch cancels any prior watcher for id before establishing the new
// one, so a rename never leaves a stale subscription behind.
func (r *Repository) installWatch(id, path string) {
	r.watchMu.Lock()
	if old, ok := r.watchers[id]; ok {
		old()
		delete(r.watchers, id)
	}
	unsub, err := r.adapter.WatchFile(path, func() { r.onFileEvent(id, path) })
	if err != nil {
		r.watchMu.Unlock()
		r.logWarn("failed to watch file", "path", path, "error", err)
		return
	}
	r.watchers[id] = unsub
	r.watchMu.Unlock()

	r.bus.Emit(core.TopicWatchStarted, core.WatchEvent{ID: id})
}

func (r *Repository) removeWatch(id string) {
	r.watchMu.Lock()
	if unsub, ok := r.watchers[id]; ok {
		unsub()
		delete(r.watchers, id)
	}
	r.watchMu.Unlock()
}

// onFileEvent handles a change notification for a watched path. The re-read
// happens after a short settle delay, and a notification goes out only when
// the decoded content or completion flag actually differs from the cached
// version. No-op writes stay quiet.
func (r *Repository) onFileEvent(id, path string) {
	lifecycle.Go(context.Background(), func(ctx context.Context) error {
		select {
		case <-time.After(r.settle):
		case <-ctx.Done():
			return nil
		}

		text, err := r.adapter.Read(ctx, path)
		if err != nil {
			if !errors.Is(err, core.ErrNotFound) {
				r.logWarn("external re-read failed", "path", path, "error", err)
			}
			return nil
		}

		fileNote, _, err := decodeNote(text, r.validator)
		if err != nil {
			r.logWarn("external change not decodable", "path", path, "error", err)
			return nil
		}
		fileNote.FilePath = path

		if cached, ok := r.cache.Get(id); ok {
			if cached.Title == fileNote.Title &&
				cached.Content == fileNote.Content &&
				cached.Completed == fileNote.Completed {
				return nil
			}
		}

		r.bus.Emit(core.TopicNoteExternalModified, core.ExternalModifiedEvent{ID: id, Note: fileNote})
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		r.logWarn("external change handler panic", "path", path, "error", err)
	}))
}

func (r *Repository) logWarn(msg string, args ...any) {
	if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}
