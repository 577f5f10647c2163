// Package platform is the composition root: it wires the storage adapter,
// event bus, repository, sync manager and data manager into a working system
// using explicit construction rather than a service locator.
package platform

import (
	"github.com/telmoq/stickysync/pkg/adapters/fs"
	"github.com/telmoq/stickysync/pkg/bus"
	"github.com/telmoq/stickysync/pkg/core"
	"github.com/telmoq/stickysync/pkg/manager"
	"github.com/telmoq/stickysync/pkg/naming"
	"github.com/telmoq/stickysync/pkg/repo"
	"github.com/telmoq/stickysync/pkg/restore"
	"github.com/telmoq/stickysync/pkg/syncer"
)

// System bundles the constructed component graph.
type System struct {
	Manager *manager.DataManager
	Repo    *repo.Repository
	Syncer  *syncer.Manager
	Bus     core.EventBus

	adapter core.StorageAdapter
}

// Close stops watchers, pending timers and the adapter's resources.
func (s *System) Close() error {
	s.Manager.Stop()
	return s.adapter.Cleanup()
}

// New builds the system rooted at folder.
func New(folder string, opts ...Option) (*System, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	adapter := o.adapter
	if adapter == nil {
		adapter = fs.New(o.logger)
	}

	eventBus := o.bus
	if eventBus == nil {
		eventBus = bus.New(o.logger)
	}

	validator := restore.New(o.bounds, o.logger)

	repository, err := repo.New(repo.Config{
		Adapter:     adapter,
		Bus:         eventBus,
		Validator:   validator,
		Logger:      o.logger,
		Folder:      folder,
		SettleDelay: o.settleDelay,
	})
	if err != nil {
		return nil, err
	}

	syncManager := syncer.New(syncer.Config{
		Persister: repository,
		Bus:       eventBus,
		Logger:    o.logger,
		Debounce:  o.debounce,
		Retry:     o.retry,
	})

	strategy := naming.ForKind(o.namingKind, naming.Config{
		Folder:   folder,
		Lister:   adapter.List,
		Template: o.namingTemplate,
	})

	dataManager, err := manager.New(manager.Config{
		Repo:   repository,
		Syncer: syncManager,
		Bus:    eventBus,
		Naming: strategy,
		Logger: o.logger,
		Bounds: o.bounds,
	})
	if err != nil {
		return nil, err
	}
	if err := dataManager.Start(); err != nil {
		return nil, err
	}

	return &System{
		Manager: dataManager,
		Repo:    repository,
		Syncer:  syncManager,
		Bus:     eventBus,
		adapter: adapter,
	}, nil
}
