package repo

import (
	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Folder        string `json:"folder"`
	CacheSize     int    `json:"cache_size"`
	ActiveWatches int    `json:"active_watches"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.watchMu.Lock()
	watches := len(r.watchers)
	r.watchMu.Unlock()

	return RepositoryState{
		Folder:        r.folder,
		CacheSize:     r.cache.Len(),
		ActiveWatches: watches,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "note-repository"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)
