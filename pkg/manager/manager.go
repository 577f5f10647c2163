// Package manager re-exposes create/update/delete operations and change
// notifications to the UI layer, wiring the repository, the sync manager and
// the conflict-resolution path together.
package manager

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/telmoq/stickysync/pkg/core"
	"github.com/telmoq/stickysync/pkg/naming"
	"github.com/telmoq/stickysync/pkg/repo"
	"github.com/telmoq/stickysync/pkg/syncer"
)

// Config holds the data manager's collaborators.
type Config struct {
	Repo   *repo.Repository
	Syncer *syncer.Manager
	Bus    core.EventBus
	Naming naming.Strategy
	Logger *slog.Logger
	Bounds core.Bounds
}

// DataManager is the consumer-facing surface of the note system.
type DataManager struct {
	repo   *repo.Repository
	syncer *syncer.Manager
	bus    core.EventBus
	naming naming.Strategy
	logger *slog.Logger
	bounds core.Bounds

	unsubscribe func()
}

// New creates a DataManager.
func New(cfg Config) (*DataManager, error) {
	if cfg.Repo == nil || cfg.Syncer == nil || cfg.Bus == nil {
		return nil, errors.New("data manager requires repository, syncer and bus")
	}
	if cfg.Naming == nil {
		cfg.Naming = naming.NewTimestamp(nil)
	}
	if cfg.Bounds == (core.Bounds{}) {
		cfg.Bounds = core.DefaultBounds()
	}
	return &DataManager{
		repo:   cfg.Repo,
		syncer: cfg.Syncer,
		bus:    cfg.Bus,
		naming: cfg.Naming,
		logger: cfg.Logger,
		bounds: cfg.Bounds,
	}, nil
}

// Start subscribes the external-modification handler. Call Stop to release.
func (d *DataManager) Start() error {
	unsub, err := d.bus.Subscribe(core.TopicNoteExternalModified, d.onExternalModified)
	if err != nil {
		return err
	}
	d.unsubscribe = unsub
	return nil
}

// Stop cancels the subscription, every pending debounce timer and every file
// watcher.
func (d *DataManager) Stop() {
	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
	d.syncer.StopWatching()
	d.repo.StopWatching()
}

// CreateRequest carries the user's intent for a new note.
type CreateRequest struct {
	Title      string
	Content    string
	Position   *core.Position
	Dimensions *core.Dimensions
	Appearance *core.Appearance
	Tags       []string
}

// CreateNote assigns an id and file name, stamps created = modified = now,
// and persists immediately (creation is never debounced).
func (d *DataManager) CreateNote(ctx context.Context, req CreateRequest) (core.Note, error) {
	if strings.TrimSpace(req.Title) == "" && strings.TrimSpace(req.Content) == "" {
		return core.Note{}, &core.ValidationError{Field: "content", Reason: "note must have a title or content"}
	}

	now := time.Now()
	name := d.naming.GenerateFileName(ctx, naming.Intent{Title: req.Title})

	n := core.Note{
		ID:         uuid.NewString(),
		FilePath:   filepath.Join(d.repo.Folder(), name+".md"),
		Title:      req.Title,
		Content:    req.Content,
		Position:   core.Position{X: d.bounds.MinX, Y: d.bounds.MinY},
		Dimensions: core.DefaultDimensions(),
		Appearance: core.DefaultAppearance(),
		Metadata: core.Meta{
			Created:  now,
			Modified: now,
			Tags:     req.Tags,
		},
	}
	if req.Position != nil {
		n.Position = *req.Position
	}
	if req.Dimensions != nil {
		n.Dimensions = *req.Dimensions
	}
	if req.Appearance != nil {
		n.Appearance = *req.Appearance
	}

	if err := d.syncer.SyncNoteToFileImmediate(ctx, n); err != nil {
		return core.Note{}, err
	}
	return n, nil
}

// UpdateNote merges the patch over the cached note and schedules a debounced
// write, so bursts of edits coalesce into one persisted write.
func (d *DataManager) UpdateNote(ctx context.Context, id string, req repo.UpdateRequest) (core.Note, error) {
	n, err := d.repo.Merge(ctx, id, req)
	if err != nil {
		return core.Note{}, err
	}
	d.syncer.SyncNoteToFile(n)
	return n, nil
}

// CompleteNote flips the completion flag and persists immediately.
func (d *DataManager) CompleteNote(ctx context.Context, id string, done bool) (core.Note, error) {
	n, err := d.repo.Merge(ctx, id, repo.UpdateRequest{Completed: &done})
	if err != nil {
		return core.Note{}, err
	}
	if err := d.syncer.SyncNoteToFileImmediate(ctx, n); err != nil {
		return core.Note{}, err
	}
	return n, nil
}

// DeleteNote purges the file, the cache entry and any pending watch or timer.
func (d *DataManager) DeleteNote(ctx context.Context, id string) error {
	return d.repo.Delete(ctx, id)
}

// Note returns the cached note for id.
func (d *DataManager) Note(ctx context.Context, id string) (core.Note, error) {
	return d.repo.FindByID(ctx, id)
}

// Notes performs a full rescan of the configured folder, bypassing the cache.
func (d *DataManager) Notes(ctx context.Context) ([]core.Note, error) {
	return d.repo.FindAll(ctx)
}

// MarkEditing and UnmarkEditing expose the sync manager's editing guard.
func (d *DataManager) MarkEditing(id string)   { d.syncer.MarkNoteAsEditing(id) }
func (d *DataManager) UnmarkEditing(id string) { d.syncer.UnmarkNoteAsEditing(id) }

// onExternalModified reconciles a file-side change against the cached UI
// version. Notes under active local edit are left alone so in-progress
// keystrokes are not clobbered.
func (d *DataManager) onExternalModified(_ string, payload any) {
	ev, ok := payload.(core.ExternalModifiedEvent)
	if !ok {
		return
	}
	if d.syncer.IsNoteBeingEdited(ev.ID) {
		if d.logger != nil {
			d.logger.Debug("skipping reconciliation, note under edit", "id", ev.ID)
		}
		return
	}

	ctx := context.Background()
	uiNote, err := d.repo.FindByID(ctx, ev.ID)
	if errors.Is(err, core.ErrNotFound) {
		// Nothing cached: adopt the file version as-is.
		if saveErr := d.repo.Save(ctx, ev.Note); saveErr != nil && d.logger != nil {
			d.logger.Error("failed to adopt external note", "id", ev.ID, "error", saveErr)
		}
		return
	}
	if err != nil {
		return
	}

	if _, err := d.syncer.ResolveAndSync(ctx, ev.Note, uiNote); err != nil && d.logger != nil {
		d.logger.Error("reconciliation failed", "id", ev.ID, "error", err)
	}
}
