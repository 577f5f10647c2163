package syncer_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/telmoq/stickysync/pkg/conflict"
	"github.com/telmoq/stickysync/pkg/core"
	"github.com/telmoq/stickysync/pkg/syncer"
)

// mockPersister records saves and can be told to fail the first N attempts.
type mockPersister struct {
	mu        sync.Mutex
	saves     []core.Note
	failFirst int
	failWith  error
	panicOn   int // 1-based attempt to panic on; 0 disables
	attempts  int
}

func (p *mockPersister) Save(_ context.Context, n core.Note) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts++
	if p.panicOn > 0 && p.attempts == p.panicOn {
		panic("persister blew up")
	}
	if p.attempts <= p.failFirst {
		if p.failWith != nil {
			return p.failWith
		}
		return &core.StorageError{Op: "write", Path: n.FilePath, Err: errors.New("transient")}
	}
	p.saves = append(p.saves, n.Clone())
	return nil
}

func (p *mockPersister) saved() []core.Note {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]core.Note(nil), p.saves...)
}

func (p *mockPersister) attemptCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.attempts
}

// recorderBus captures emitted events.
type recorderBus struct {
	mu     sync.Mutex
	events map[string][]any
}

func newRecorderBus() *recorderBus {
	return &recorderBus{events: make(map[string][]any)}
}

func (b *recorderBus) Subscribe(string, core.Handler) (func(), error) {
	return func() {}, nil
}

func (b *recorderBus) Emit(topic string, payload any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[topic] = append(b.events[topic], payload)
}

func (b *recorderBus) onTopic(topic string) []any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]any(nil), b.events[topic]...)
}

func fastPolicy(maxRetries int) syncer.Policy {
	return syncer.Policy{
		MaxRetries:        maxRetries,
		InitialDelay:      time.Millisecond,
		BackoffMultiplier: 2,
	}
}

func setup(t *testing.T, p *mockPersister, policy syncer.Policy, debounce time.Duration) (*syncer.Manager, *recorderBus) {
	t.Helper()
	eventBus := newRecorderBus()
	m := syncer.New(syncer.Config{
		Persister: p,
		Bus:       eventBus,
		Debounce:  debounce,
		Retry:     policy,
	})
	t.Cleanup(m.StopWatching)
	return m, eventBus
}

func note(id, content string) core.Note {
	return core.Note{ID: id, FilePath: "/notes/" + id + ".md", Content: content}
}

func waitFor(t *testing.T, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestManager_ImmediateSync(t *testing.T) {
	p := &mockPersister{}
	m, eventBus := setup(t, p, fastPolicy(3), 10*time.Millisecond)

	if err := m.SyncNoteToFileImmediate(context.Background(), note("n1", "body")); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if len(p.saved()) != 1 {
		t.Fatalf("want one save, got %d", len(p.saved()))
	}
	if m.Status() != core.StatusIdle {
		t.Errorf("machine should settle back to idle, got %s", m.Status())
	}
	if events := eventBus.onTopic(core.TopicSyncRetrySucceeded); len(events) != 0 {
		t.Errorf("first-attempt success should not announce a retry, got %d events", len(events))
	}
}

func TestManager_Debounce(t *testing.T) {
	p := &mockPersister{}
	m, _ := setup(t, p, fastPolicy(0), 30*time.Millisecond)

	for _, content := range []string{"v1", "v2", "v3", "v4", "v5"} {
		m.SyncNoteToFile(note("n1", content))
		time.Sleep(2 * time.Millisecond)
	}
	if got := m.PendingSyncs(); got != 1 {
		t.Errorf("rapid calls should hold a single pending timer, got %d", got)
	}

	waitFor(t, func() bool { return len(p.saved()) > 0 }, "debounced write never fired")

	saves := p.saved()
	if len(saves) != 1 {
		t.Fatalf("five rapid calls should coalesce into one write, got %d", len(saves))
	}
	if saves[0].Content != "v5" {
		t.Errorf("the last value should win, got %q", saves[0].Content)
	}
	if m.PendingSyncs() != 0 {
		t.Errorf("timer should be cleared after firing, got %d pending", m.PendingSyncs())
	}
}

func TestManager_DebouncePerNote(t *testing.T) {
	p := &mockPersister{}
	m, _ := setup(t, p, fastPolicy(0), 20*time.Millisecond)

	m.SyncNoteToFile(note("n1", "a"))
	m.SyncNoteToFile(note("n2", "b"))

	if got := m.PendingSyncs(); got != 2 {
		t.Errorf("distinct ids debounce independently, got %d pending", got)
	}
	waitFor(t, func() bool { return len(p.saved()) == 2 }, "both notes should persist")
}

func TestManager_ImmediateSupersedesPending(t *testing.T) {
	p := &mockPersister{}
	m, _ := setup(t, p, fastPolicy(0), 50*time.Millisecond)

	m.SyncNoteToFile(note("n1", "stale"))
	if err := m.SyncNoteToFileImmediate(context.Background(), note("n1", "fresh")); err != nil {
		t.Fatalf("sync: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	saves := p.saved()
	if len(saves) != 1 || saves[0].Content != "fresh" {
		t.Errorf("immediate sync should cancel the pending debounce, got %+v", saves)
	}
}

func TestManager_StopWatchingCancelsPending(t *testing.T) {
	p := &mockPersister{}
	m, _ := setup(t, p, fastPolicy(0), 20*time.Millisecond)

	m.SyncNoteToFile(note("n1", "doomed"))
	m.StopWatching()

	time.Sleep(50 * time.Millisecond)
	if len(p.saved()) != 0 {
		t.Errorf("cancelled debounce should not write, got %d saves", len(p.saved()))
	}
	if m.PendingSyncs() != 0 {
		t.Errorf("want no pending timers, got %d", m.PendingSyncs())
	}
}

func TestManager_RetrySucceedsAfterFailures(t *testing.T) {
	p := &mockPersister{failFirst: 2}
	m, eventBus := setup(t, p, fastPolicy(3), 10*time.Millisecond)

	if err := m.SyncNoteToFileImmediate(context.Background(), note("n1", "body")); err != nil {
		t.Fatalf("sync should eventually succeed: %v", err)
	}
	if got := p.attemptCount(); got != 3 {
		t.Errorf("want 3 attempts, got %d", got)
	}

	events := eventBus.onTopic(core.TopicSyncRetrySucceeded)
	if len(events) != 1 {
		t.Fatalf("want one retry-succeeded event, got %d", len(events))
	}
	if ev := events[0].(core.RetrySucceededEvent); ev.Attempts != 3 {
		t.Errorf("want 3 attempts in event, got %d", ev.Attempts)
	}
	if m.Status() != core.StatusIdle {
		t.Errorf("machine should settle back to idle, got %s", m.Status())
	}
}

func TestManager_RetryExhaustion(t *testing.T) {
	p := &mockPersister{failFirst: 100}
	m, eventBus := setup(t, p, fastPolicy(3), 10*time.Millisecond)

	err := m.SyncNoteToFileImmediate(context.Background(), note("n1", "body"))
	if err == nil {
		t.Fatal("expected exhaustion error")
	}

	var serr *core.SyncError
	if !errors.As(err, &serr) {
		t.Fatalf("want SyncError, got %T: %v", err, err)
	}
	if serr.Attempts != 4 {
		t.Errorf("3 retries mean 4 total attempts, got %d", serr.Attempts)
	}
	if got := p.attemptCount(); got != 4 {
		t.Errorf("want 4 persister calls, got %d", got)
	}

	events := eventBus.onTopic(core.TopicSyncRetryFailed)
	if len(events) != 1 {
		t.Fatalf("want one retry-failed event, got %d", len(events))
	}
	if ev := events[0].(core.RetryFailedEvent); ev.Attempts != 4 {
		t.Errorf("want 4 attempts in event, got %d", ev.Attempts)
	}

	statuses := eventBus.onTopic(core.TopicSyncStatus)
	if len(statuses) != 3 {
		t.Fatalf("want syncing, error, idle, got %d events", len(statuses))
	}
	if ev := statuses[1].(core.StatusEvent); ev.Status != core.StatusError {
		t.Errorf("failure should broadcast the error state, got %s", ev.Status)
	}
	if m.Status() != core.StatusIdle {
		t.Errorf("machine should settle back to idle after a failure, got %s", m.Status())
	}
}

func TestManager_NonRetryableFailsFast(t *testing.T) {
	p := &mockPersister{failFirst: 100, failWith: &core.ValidationError{Field: "id", Reason: "must not be empty"}}
	m, eventBus := setup(t, p, fastPolicy(3), 10*time.Millisecond)

	err := m.SyncNoteToFileImmediate(context.Background(), note("n1", "body"))
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("validation errors should pass through untouched, got %v", err)
	}
	if got := p.attemptCount(); got != 1 {
		t.Errorf("non-retryable failure should not retry, got %d attempts", got)
	}
	if events := eventBus.onTopic(core.TopicSyncRetryFailed); len(events) != 0 {
		t.Errorf("no retry-failed event for non-retryable failures, got %d", len(events))
	}
}

func TestManager_PanickingPersisterBecomesError(t *testing.T) {
	p := &mockPersister{panicOn: 1}
	m, _ := setup(t, p, fastPolicy(0), 10*time.Millisecond)

	err := m.SyncNoteToFileImmediate(context.Background(), note("n1", "body"))
	if err == nil {
		t.Fatal("panic should surface as an error")
	}
	var serr *core.StorageError
	if !errors.As(err, &serr) {
		t.Errorf("want StorageError, got %T: %v", err, err)
	}
}

func TestManager_CanceledContextStopsRetrying(t *testing.T) {
	p := &mockPersister{failFirst: 100}
	m, _ := setup(t, p, syncer.Policy{MaxRetries: 5, InitialDelay: 10 * time.Second, BackoffMultiplier: 2}, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.SyncNoteToFileImmediate(ctx, note("n1", "body"))
	if err == nil {
		t.Fatal("expected error")
	}
	if got := p.attemptCount(); got != 1 {
		t.Errorf("canceled context should stop after the in-flight attempt, got %d", got)
	}
}

func TestManager_StatusTransitions(t *testing.T) {
	p := &mockPersister{}
	m, eventBus := setup(t, p, fastPolicy(0), 10*time.Millisecond)

	if m.Status() != core.StatusIdle {
		t.Fatalf("want idle initially, got %s", m.Status())
	}
	if err := m.SyncNoteToFileImmediate(context.Background(), note("n1", "body")); err != nil {
		t.Fatalf("sync: %v", err)
	}

	events := eventBus.onTopic(core.TopicSyncStatus)
	want := []core.SyncStatus{core.StatusSyncing, core.StatusSaved, core.StatusIdle}
	if len(events) != len(want) {
		t.Fatalf("want syncing, saved, idle, got %d events", len(events))
	}
	for i, w := range want {
		if got := events[i].(core.StatusEvent).Status; got != w {
			t.Errorf("event %d: want %s, got %s", i, w, got)
		}
	}
	if m.Status() != core.StatusIdle {
		t.Errorf("machine should settle back to idle, got %s", m.Status())
	}

	if err := m.SyncNoteToFileImmediate(context.Background(), note("n1", "body")); err != nil {
		t.Fatalf("sync: %v", err)
	}
	events = eventBus.onTopic(core.TopicSyncStatus)
	if len(events) != 6 {
		t.Errorf("want 6 status events after two syncs, got %d", len(events))
	}
}

func TestManager_ResolveAndSync(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	base := func(modified time.Time) core.Note {
		n := note("n1", "shared")
		n.Metadata.Created = modified.Add(-time.Hour)
		n.Metadata.Modified = modified
		return n
	}

	t.Run("no conflict persists the memory version", func(t *testing.T) {
		p := &mockPersister{}
		m, eventBus := setup(t, p, fastPolicy(0), 10*time.Millisecond)

		n := base(at)
		resolved, err := m.ResolveAndSync(context.Background(), n, n.Clone())
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if resolved.Content != "shared" {
			t.Errorf("unexpected resolution: %+v", resolved)
		}
		if events := eventBus.onTopic(core.TopicConflictResolved); len(events) != 0 {
			t.Errorf("no event without a conflict, got %d", len(events))
		}
	})

	t.Run("conflict persists the resolution and announces it", func(t *testing.T) {
		p := &mockPersister{}
		m, eventBus := setup(t, p, fastPolicy(0), 10*time.Millisecond)

		fileNote := base(at.Add(time.Minute))
		fileNote.Content = "from file"
		uiNote := base(at)
		uiNote.Position = core.Position{X: 42, Y: 7}

		resolved, err := m.ResolveAndSync(context.Background(), fileNote, uiNote)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if resolved.Content != "from file" {
			t.Errorf("newer file content should win, got %q", resolved.Content)
		}
		if resolved.Position != uiNote.Position {
			t.Errorf("memory position should win, got %+v", resolved.Position)
		}

		saves := p.saved()
		if len(saves) != 1 || saves[0].Content != "from file" {
			t.Errorf("resolution should persist, got %+v", saves)
		}

		events := eventBus.onTopic(core.TopicConflictResolved)
		if len(events) != 1 {
			t.Fatalf("want one conflict-resolved event, got %d", len(events))
		}
		ev := events[0].(core.ConflictResolvedEvent)
		if len(ev.Kinds) != 2 {
			t.Errorf("want position and content kinds, got %v", ev.Kinds)
		}
		if ev.Strategy != string(conflict.StrategyFileWins) {
			t.Errorf("want file-wins strategy, got %s", ev.Strategy)
		}
	})

	t.Run("persist failure skips the announcement", func(t *testing.T) {
		p := &mockPersister{failFirst: 100}
		m, eventBus := setup(t, p, fastPolicy(1), 10*time.Millisecond)

		fileNote := base(at.Add(time.Minute))
		fileNote.Content = "from file"
		uiNote := base(at)

		if _, err := m.ResolveAndSync(context.Background(), fileNote, uiNote); err == nil {
			t.Fatal("expected persist failure")
		}
		if events := eventBus.onTopic(core.TopicConflictResolved); len(events) != 0 {
			t.Errorf("failed persist should not announce, got %d", len(events))
		}
	})
}

func TestManager_State(t *testing.T) {
	p := &mockPersister{}
	m, _ := setup(t, p, fastPolicy(0), time.Second)

	m.SyncNoteToFile(note("n1", "pending"))
	m.MarkNoteAsEditing("n2")

	state, ok := m.State().(syncer.ManagerState)
	if !ok {
		t.Fatalf("unexpected state type %T", m.State())
	}
	if state.Status != core.StatusIdle || state.PendingSyncs != 1 || state.EditingNotes != 1 {
		t.Errorf("unexpected state: %+v", state)
	}
	if m.ComponentType() != "sync-manager" {
		t.Errorf("unexpected component type %q", m.ComponentType())
	}
}

func TestManager_EditingGuard(t *testing.T) {
	p := &mockPersister{}
	m, _ := setup(t, p, fastPolicy(0), 10*time.Millisecond)

	if m.IsNoteBeingEdited("n1") {
		t.Fatal("fresh manager should have no editing marks")
	}
	m.MarkNoteAsEditing("n1")
	if !m.IsNoteBeingEdited("n1") {
		t.Error("mark should stick")
	}
	if m.IsNoteBeingEdited("n2") {
		t.Error("marks are per note")
	}
	m.UnmarkNoteAsEditing("n1")
	if m.IsNoteBeingEdited("n1") {
		t.Error("unmark should clear the guard")
	}
}
