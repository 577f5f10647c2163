package fs

import (
	"fmt"
	"os"
	"path/filepath"
)

// tempPrefix marks in-progress writes so that directory scans can tell
// staged content apart from note files.
const tempPrefix = "stickysync-tmp-"

// notePerm is the mode every note record is written with.
const notePerm os.FileMode = 0o644

// writeNoteAtomic replaces path with data without ever exposing a partial
// record to readers or to the watcher. The content is staged under tempPrefix
// in the target directory, flushed to disk, then renamed over path.
func writeNoteAtomic(path string, data []byte) error {
	staged, err := os.CreateTemp(filepath.Dir(path), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("stage write for %s: %w", path, err)
	}
	name := staged.Name()
	defer os.Remove(name)

	_, err = staged.Write(data)
	if err == nil {
		err = staged.Sync()
	}
	if closeErr := staged.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("stage write for %s: %w", path, err)
	}

	// CreateTemp opens the file 0600. Records are meant to be readable by
	// other vault tooling, so widen before publishing.
	if err := os.Chmod(name, notePerm); err != nil {
		return fmt.Errorf("set mode on %s: %w", name, err)
	}
	if err := os.Rename(name, path); err != nil {
		return fmt.Errorf("publish %s: %w", path, err)
	}
	return nil
}
