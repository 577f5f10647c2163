// Package syncer orchestrates when a note is written: debounced or immediate,
// with bounded exponential-backoff retries and conflict resolution when both
// a file-side and a UI-side version of a note exist.
package syncer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/telmoq/stickysync/pkg/conflict"
	"github.com/telmoq/stickysync/pkg/core"
)

// DefaultDebounce is the per-note write coalescing window.
const DefaultDebounce = 500 * time.Millisecond

// Persister is the single collaborator allowed to touch the cache and the
// file store. The repository satisfies it.
type Persister interface {
	Save(ctx context.Context, n core.Note) error
}

// Policy configures the retry behavior for failed writes.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt, so total
	// attempts = MaxRetries + 1.
	MaxRetries int
	// InitialDelay is the wait before the first retry.
	InitialDelay time.Duration
	// BackoffMultiplier scales the wait after each failed attempt.
	BackoffMultiplier float64
}

// DefaultPolicy retries three times with delays of 1s, 2s, 4s.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: 3, InitialDelay: time.Second, BackoffMultiplier: 2}
}

// Config holds the manager's collaborators.
type Config struct {
	Persister Persister
	Bus       core.EventBus
	Logger    *slog.Logger
	// Debounce overrides DefaultDebounce. Zero means default.
	Debounce time.Duration
	// Retry overrides DefaultPolicy. The zero value means default.
	Retry Policy
}

// Manager is the sync state machine. Status is global, not per note, and
// status changes are only broadcast when the new state differs from the
// previous one.
type Manager struct {
	persist  Persister
	bus      core.EventBus
	logger   *slog.Logger
	debounce time.Duration
	retry    Policy

	timerMu sync.Mutex
	timers  map[string]*time.Timer

	editMu  sync.Mutex
	editing map[string]bool

	statusMu sync.Mutex
	status   core.SyncStatus
	active   int
}

// New creates a Manager.
func New(cfg Config) *Manager {
	if cfg.Debounce == 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Retry == (Policy{}) {
		cfg.Retry = DefaultPolicy()
	}
	return &Manager{
		persist:  cfg.Persister,
		bus:      cfg.Bus,
		logger:   cfg.Logger,
		debounce: cfg.Debounce,
		retry:    cfg.Retry,
		timers:   make(map[string]*time.Timer),
		editing:  make(map[string]bool),
		status:   core.StatusIdle,
	}
}

// Status returns the current global sync status.
func (m *Manager) Status() core.SyncStatus {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	return m.status
}

// SyncNoteToFile schedules a debounced write. Repeated calls for the same id
// within the debounce window cancel and replace the pending timer, so only
// the last call's note value is persisted.
func (m *Manager) SyncNoteToFile(n core.Note) {
	n = n.Clone()

	m.timerMu.Lock()
	defer m.timerMu.Unlock()

	if t, ok := m.timers[n.ID]; ok {
		t.Stop()
	}
	m.timers[n.ID] = time.AfterFunc(m.debounce, func() {
		m.timerMu.Lock()
		delete(m.timers, n.ID)
		m.timerMu.Unlock()

		if err := m.runSync(context.Background(), n); err != nil && m.logger != nil {
			m.logger.Error("debounced sync failed", "id", n.ID, "error", err)
		}
	})
}

// SyncNoteToFileImmediate bypasses debouncing and executes the retry policy
// synchronously. Any pending debounced write for the same id is superseded.
func (m *Manager) SyncNoteToFileImmediate(ctx context.Context, n core.Note) error {
	m.timerMu.Lock()
	if t, ok := m.timers[n.ID]; ok {
		t.Stop()
		delete(m.timers, n.ID)
	}
	m.timerMu.Unlock()

	return m.runSync(ctx, n)
}

// ResolveAndSync detects conflicts between a file-side and a UI-side version.
// With none, the UI note is persisted as-is; otherwise the resolved note is
// persisted and a conflict-resolved notification goes out naming the conflict
// kinds and the strategy used.
func (m *Manager) ResolveAndSync(ctx context.Context, fileNote, uiNote core.Note) (core.Note, error) {
	report := conflict.DetectAll(fileNote, uiNote)
	if !report.HasConflict {
		return uiNote, m.runSync(ctx, uiNote)
	}

	resolved, strategy := conflict.ResolveAll(fileNote, uiNote, time.Now())
	if err := m.runSync(ctx, resolved); err != nil {
		return resolved, err
	}

	kinds := make([]string, len(report.Kinds))
	for i, k := range report.Kinds {
		kinds[i] = string(k)
	}
	m.bus.Emit(core.TopicConflictResolved, core.ConflictResolvedEvent{
		ID:       resolved.ID,
		Kinds:    kinds,
		Strategy: string(strategy),
		Note:     resolved,
	})
	return resolved, nil
}

// MarkNoteAsEditing suppresses external-change reconciliation for id while a
// local edit is in progress.
func (m *Manager) MarkNoteAsEditing(id string) {
	m.editMu.Lock()
	m.editing[id] = true
	m.editMu.Unlock()
}

// UnmarkNoteAsEditing lifts the editing guard for id.
func (m *Manager) UnmarkNoteAsEditing(id string) {
	m.editMu.Lock()
	delete(m.editing, id)
	m.editMu.Unlock()
}

// IsNoteBeingEdited reports whether the editing guard is set for id.
func (m *Manager) IsNoteBeingEdited(id string) bool {
	m.editMu.Lock()
	defer m.editMu.Unlock()
	return m.editing[id]
}

// StopWatching cancels every pending debounce timer without firing the
// writes.
func (m *Manager) StopWatching() {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
}

// PendingSyncs reports how many debounced writes are waiting.
func (m *Manager) PendingSyncs() int {
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	return len(m.timers)
}

// --- internals ---

// runSync drives one logical sync through the state machine:
// idle -> syncing -> {saved, error} -> idle.
func (m *Manager) runSync(ctx context.Context, n core.Note) error {
	m.beginSync()
	defer m.endSync()

	attempts, err := m.saveWithRetry(ctx, n)
	if err != nil {
		m.setStatus(core.StatusError)
		if core.Retryable(err) {
			m.bus.Emit(core.TopicSyncRetryFailed, core.RetryFailedEvent{
				ID:       n.ID,
				Attempts: attempts,
				Err:      err.Error(),
			})
			return &core.SyncError{ID: n.ID, Attempts: attempts, Err: err}
		}
		return err
	}

	m.setStatus(core.StatusSaved)
	if attempts > 1 {
		m.bus.Emit(core.TopicSyncRetrySucceeded, core.RetrySucceededEvent{
			ID:       n.ID,
			Attempts: attempts,
		})
	}
	return nil
}

// saveWithRetry attempts the write up to MaxRetries+1 times, waiting
// InitialDelay * BackoffMultiplier^attemptIndex between failed attempts and
// never after the final one. Attempts are strictly sequential. Non-retryable
// failures (validation, not-found) return immediately.
func (m *Manager) saveWithRetry(ctx context.Context, n core.Note) (int, error) {
	var lastErr error
	for attempt := 0; attempt <= m.retry.MaxRetries; attempt++ {
		err := m.trySave(ctx, n)
		if err == nil {
			return attempt + 1, nil
		}
		lastErr = err

		if !core.Retryable(err) {
			return attempt + 1, err
		}
		if attempt == m.retry.MaxRetries {
			break
		}

		delay := m.backoffDelay(attempt)
		if m.logger != nil {
			m.logger.Debug("sync attempt failed, backing off",
				"id", n.ID, "attempt", attempt+1, "delay", delay, "error", err)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return attempt + 1, ctx.Err()
		}
	}
	return m.retry.MaxRetries + 1, lastErr
}

// trySave converts a panicking persister into a failed attempt.
func (m *Manager) trySave(ctx context.Context, n core.Note) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.StorageError{Op: "save", Path: n.FilePath, Err: errFromPanic(r)}
		}
	}()
	return m.persist.Save(ctx, n)
}

func (m *Manager) backoffDelay(attemptIndex int) time.Duration {
	delay := float64(m.retry.InitialDelay)
	for i := 0; i < attemptIndex; i++ {
		delay *= m.retry.BackoffMultiplier
	}
	return time.Duration(delay)
}

func (m *Manager) beginSync() {
	m.statusMu.Lock()
	m.active++
	m.statusMu.Unlock()
	m.setStatus(core.StatusSyncing)
}

// endSync settles the machine back to idle once no sync is in flight and no
// debounced write is waiting. The saved or error outcome has already been
// broadcast by then.
func (m *Manager) endSync() {
	m.statusMu.Lock()
	m.active--
	last := m.active == 0
	m.statusMu.Unlock()

	if last && m.PendingSyncs() == 0 {
		m.setStatus(core.StatusIdle)
	}
}

func (m *Manager) setStatus(s core.SyncStatus) {
	m.statusMu.Lock()
	changed := m.status != s
	m.status = s
	m.statusMu.Unlock()

	if changed {
		m.bus.Emit(core.TopicSyncStatus, core.StatusEvent{Status: s})
	}
}
