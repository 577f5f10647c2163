package core

// Event topics published toward collaborators.
const (
	TopicNoteSaved            = "note.saved"
	TopicNoteDeleted          = "note.deleted"
	TopicNoteExternalModified = "note.external-modified"
	TopicSyncStatus           = "sync.status"
	TopicSyncRetrySucceeded   = "sync.retry-succeeded"
	TopicSyncRetryFailed      = "sync.retry-failed"
	TopicConflictResolved     = "sync.conflict-resolved"
	TopicWatchStarted         = "watch.started"
	TopicWatchStopped         = "watch.stopped"
)

// SyncStatus is the global state of the sync manager.
type SyncStatus string

const (
	StatusIdle    SyncStatus = "idle"
	StatusSyncing SyncStatus = "syncing"
	StatusSaved   SyncStatus = "saved"
	StatusError   SyncStatus = "error"
)

// SavedEvent is published on TopicNoteSaved.
type SavedEvent struct {
	ID   string
	Note Note
}

// DeletedEvent is published on TopicNoteDeleted.
type DeletedEvent struct {
	ID       string
	FilePath string
}

// ExternalModifiedEvent is published on TopicNoteExternalModified when a
// persisted file changed outside the process and the decoded content actually
// differs from the cached copy.
type ExternalModifiedEvent struct {
	ID   string
	Note Note
}

// StatusEvent is published on TopicSyncStatus whenever the status changes.
type StatusEvent struct {
	Status SyncStatus
}

// RetrySucceededEvent is published when a sync succeeded after at least one
// failed attempt.
type RetrySucceededEvent struct {
	ID       string
	Attempts int
}

// RetryFailedEvent is published when every retry attempt was exhausted.
type RetryFailedEvent struct {
	ID       string
	Attempts int
	Err      string
}

// ConflictResolvedEvent is published after a detected conflict was resolved
// and the result persisted.
type ConflictResolvedEvent struct {
	ID       string
	Kinds    []string
	Strategy string
	Note     Note
}

// WatchEvent is published on TopicWatchStarted / TopicWatchStopped.
type WatchEvent struct {
	ID string
}
