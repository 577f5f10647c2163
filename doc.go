// Package stickysync is the Composition Root for the sticky-note
// synchronization library.
//
// It keeps a collection of sticky notes synchronized between an in-memory
// cache and individually persisted markdown files. The files are also
// editable by other actors (a human, another tool), so the persisted and
// in-memory copies of a note can diverge and are reconciled automatically.
//
// Features:
//
//   - **Hexagonal Architecture**: the core consumes storage and pub/sub
//     through ports; the filesystem adapter and in-process broker are
//     default implementations, not requirements.
//   - **Debounced Sync**: bursts of edits to a note coalesce into a single
//     write; failed writes retry with exponential backoff.
//   - **Deterministic Conflict Resolution**: position conflicts favor the
//     UI, content conflicts favor the newer version, metadata merges
//     losslessly.
//   - **Self-Repairing Records**: malformed persisted records are corrected
//     on load, never rejected.
//
// Usage:
//
//	sys, err := stickysync.New("./notes",
//		stickysync.WithLogger(logger),
//		stickysync.WithNaming(naming.KindSequential),
//	)
//	defer sys.Close()
//
//	note, err := sys.Manager.CreateNote(ctx, manager.CreateRequest{
//		Title:   "groceries",
//		Content: "oat milk",
//	})
package stickysync
