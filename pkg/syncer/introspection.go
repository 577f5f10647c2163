package syncer

import (
	"github.com/aretw0/introspection"

	"github.com/telmoq/stickysync/pkg/core"
)

// ManagerState exposes internal state for observability.
type ManagerState struct {
	Status       core.SyncStatus `json:"status"`
	PendingSyncs int             `json:"pending_syncs"`
	EditingNotes int             `json:"editing_notes"`
}

// State implements introspection.Introspectable.
func (m *Manager) State() any {
	m.editMu.Lock()
	editing := len(m.editing)
	m.editMu.Unlock()

	return ManagerState{
		Status:       m.Status(),
		PendingSyncs: m.PendingSyncs(),
		EditingNotes: editing,
	}
}

// ComponentType implements introspection.Component.
func (m *Manager) ComponentType() string {
	return "sync-manager"
}

var _ introspection.Introspectable = (*Manager)(nil)
var _ introspection.Component = (*Manager)(nil)
