package stickysync

import (
	"log/slog"
	"time"

	"github.com/telmoq/stickysync/internal/platform"
	"github.com/telmoq/stickysync/pkg/core"
	"github.com/telmoq/stickysync/pkg/naming"
	"github.com/telmoq/stickysync/pkg/syncer"
)

// --- Types ---

// Note is a public alias for the core note entity.
type Note = core.Note

// Bounds is a public alias for the canvas bounds.
type Bounds = core.Bounds

// System is the wired component graph returned by New.
type System = platform.System

// RetryPolicy is a public alias for the sync manager's retry policy.
type RetryPolicy = syncer.Policy

// --- Configuration ---

// Option defines a functional option for configuring the system.
type Option = platform.Option

// WithLogger sets the logger for every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithAdapter allows injecting a custom storage adapter.
func WithAdapter(adapter core.StorageAdapter) Option {
	return platform.WithAdapter(adapter)
}

// WithBus allows injecting an external publish/subscribe implementation.
func WithBus(b core.EventBus) Option {
	return platform.WithBus(b)
}

// WithBounds sets the canvas bounds note positions are clamped to.
func WithBounds(b Bounds) Option {
	return platform.WithBounds(b)
}

// WithNaming selects the file-naming strategy: naming.KindTimestamp,
// naming.KindSequential or naming.KindCustom.
func WithNaming(kind naming.Kind) Option {
	return platform.WithNaming(kind)
}

// WithNamingTemplate sets the custom naming template.
func WithNamingTemplate(template string) Option {
	return platform.WithNamingTemplate(template)
}

// WithDebounce sets the per-note write coalescing window.
func WithDebounce(d time.Duration) Option {
	return platform.WithDebounce(d)
}

// WithRetryPolicy overrides the retry policy for failed writes.
func WithRetryPolicy(p RetryPolicy) Option {
	return platform.WithRetryPolicy(p)
}

// WithSettleDelay sets the wait before re-reading an externally changed file.
func WithSettleDelay(d time.Duration) Option {
	return platform.WithSettleDelay(d)
}

// --- Factory ---

// New builds a sticky-note system rooted at folder.
func New(folder string, opts ...Option) (*System, error) {
	return platform.New(folder, opts...)
}
