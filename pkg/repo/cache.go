package repo

import (
	"sync"

	"github.com/telmoq/stickysync/pkg/core"
)

// noteCache maps id to the last-known-good note. It is the source of truth
// for reads unless a full rescan is requested, and only the repository's
// save/delete paths mutate it.
type noteCache struct {
	mu    sync.RWMutex
	notes map[string]core.Note
}

func newNoteCache() *noteCache {
	return &noteCache{notes: make(map[string]core.Note)}
}

// Get returns a deep copy so callers cannot alias cached state.
func (c *noteCache) Get(id string) (core.Note, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, ok := c.notes[id]
	if !ok {
		return core.Note{}, false
	}
	return n.Clone(), true
}

func (c *noteCache) Set(n core.Note) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notes[n.ID] = n.Clone()
}

func (c *noteCache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.notes, id)
}

func (c *noteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.notes)
}
