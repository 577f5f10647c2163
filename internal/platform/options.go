package platform

import (
	"log/slog"
	"time"

	"github.com/telmoq/stickysync/pkg/core"
	"github.com/telmoq/stickysync/pkg/naming"
	"github.com/telmoq/stickysync/pkg/syncer"
)

// options holds the internal configuration for the sticky system.
type options struct {
	logger         *slog.Logger
	adapter        core.StorageAdapter
	bus            core.EventBus
	bounds         core.Bounds
	namingKind     naming.Kind
	namingTemplate string
	debounce       time.Duration
	retry          syncer.Policy
	settleDelay    time.Duration
}

// Option defines a functional option for configuring the system.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		bounds:     core.DefaultBounds(),
		namingKind: naming.KindTimestamp,
	}
}

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAdapter injects a custom storage adapter (e.g. a mock or a remote
// store). If not provided, the default filesystem adapter is used.
func WithAdapter(adapter core.StorageAdapter) Option {
	return func(o *options) {
		o.adapter = adapter
	}
}

// WithBus injects an external publish/subscribe implementation. Defaults to
// the in-process broker.
func WithBus(b core.EventBus) Option {
	return func(o *options) {
		o.bus = b
	}
}

// WithBounds sets the canvas bounds note positions are clamped to.
func WithBounds(b core.Bounds) Option {
	return func(o *options) {
		o.bounds = b
	}
}

// WithNaming selects the file-naming strategy. An unrecognized kind falls
// back to the timestamp strategy.
func WithNaming(kind naming.Kind) Option {
	return func(o *options) {
		o.namingKind = kind
	}
}

// WithNamingTemplate sets the custom strategy's template. Implies
// naming.KindCustom.
func WithNamingTemplate(template string) Option {
	return func(o *options) {
		o.namingKind = naming.KindCustom
		o.namingTemplate = template
	}
}

// WithDebounce sets the per-note write coalescing window.
func WithDebounce(d time.Duration) Option {
	return func(o *options) {
		o.debounce = d
	}
}

// WithRetryPolicy overrides the sync manager's retry policy.
func WithRetryPolicy(p syncer.Policy) Option {
	return func(o *options) {
		o.retry = p
	}
}

// WithSettleDelay sets how long external-change handling waits before
// re-reading a changed file.
func WithSettleDelay(d time.Duration) Option {
	return func(o *options) {
		o.settleDelay = d
	}
}
